// Package stage runs one pipeline stage instance: it watches the instance's
// input directory, pushes every new chunk through a Transform, publishes the
// result atomically and records what it did.
package stage

import (
	"io"
	"reflect"

	"github.com/teranos/pipestage/codec"
	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

// Transform is the per-stage logic. A stage author supplies only this; the
// Runner owns directories, publishing, archiving and provenance.
//
// Data flows Parse -> NewData -> Write. Values are opaque to the Runner
// apart from their row count (see Count).
type Transform interface {
	// Parse decodes one input chunk. name is the chunk's file name without
	// its directory.
	Parse(r io.Reader, name string) (any, error)
	// NewData computes the stage's output from the parsed input.
	NewData(in any) (any, error)
	// Write serializes the output. w is the temporary output file.
	Write(w io.Writer, out any) error
}

// Lener is implemented by values that know their own row count.
type Lener interface {
	Len() int
}

// Count returns the number of rows in v: Len() when v implements Lener,
// the length of a slice, array or map, otherwise 0.
func Count(v any) int {
	if v == nil {
		return 0
	}
	if l, ok := v.(Lener); ok {
		return l.Len()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	}
	return 0
}

// Base implements Transform on top of a chunk codec. Parse and Write go
// through the codec and NewData passes its input through unchanged.
// Stages embed Base and override NewData.
type Base struct {
	Codec codec.Codec
}

// NewBase returns a Base for c. A nil codec means the default codec.
func NewBase(c codec.Codec) Base {
	return Base{Codec: c}
}

func (b Base) codec() codec.Codec {
	if b.Codec == nil {
		return codec.NewCBOR()
	}
	return b.Codec
}

// Parse decodes r into a *tabular.Result.
func (b Base) Parse(r io.Reader, name string) (any, error) {
	res, err := b.codec().Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", name)
	}
	return res, nil
}

// NewData returns in unchanged.
func (b Base) NewData(in any) (any, error) {
	return in, nil
}

// Write encodes out, which must be a *tabular.Result.
func (b Base) Write(w io.Writer, out any) error {
	res, ok := out.(*tabular.Result)
	if !ok {
		return errors.NewInvalidRequestError("%s codec cannot write %T", b.codec().Name(), out)
	}
	return b.codec().Encode(w, res)
}

// Identity republishes every chunk unchanged.
type Identity struct {
	Base
}

// NewIdentity returns an Identity stage using c.
func NewIdentity(c codec.Codec) *Identity {
	return &Identity{Base: NewBase(c)}
}

// className is the producer name a transform appears under in logs.
func className(t Transform) string {
	typ := reflect.TypeOf(t)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Name() == "" {
		return "Stage"
	}
	return typ.Name()
}
