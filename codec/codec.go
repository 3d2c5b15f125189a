// Package codec turns chunk bytes into a *tabular.Result and back.
//
// The stage runner treats a codec as opaque; stages pick one by name
// (stage.codec in configuration). CBOR is the default wire format.
package codec

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

// Codec serializes tabular results. Decode accepts only input that
// Encode(Decode(b)) reproduces byte for byte; anything else, trailing data
// included, is an error.
type Codec interface {
	Name() string
	Decode(r io.Reader) (*tabular.Result, error)
	Encode(w io.Writer, res *tabular.Result) error
}

// Default is the codec name used when none is configured.
const Default = "cbor"

// ErrNotCanonical means a chunk decoded but would not re-encode to the same
// bytes.
var ErrNotCanonical = errors.New("chunk is not in canonical form")

var registry = map[string]func() Codec{
	"cbor": func() Codec { return NewCBOR() },
	"csv":  func() Codec { return NewCSV(',') },
	"yaml": func() Codec { return NewYAML() },
}

// Lookup returns a fresh codec by name. Names are case-insensitive; empty
// selects Default.
func Lookup(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.WithHintf(
			errors.NewInvalidRequestError("unknown codec %q", name),
			"supported codecs: %s", strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the registered codec names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// canonical rejects data unless c encodes res back to exactly data.
func canonical(c Codec, data []byte, res *tabular.Result) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf, res); err != nil {
		return err
	}
	if !bytes.Equal(buf.Bytes(), data) {
		return errors.WithHintf(
			errors.Wrapf(ErrNotCanonical, "%s: %d bytes in, %d bytes re-encoded", c.Name(), len(data), buf.Len()),
			"rewrite the chunk with the %s codec", c.Name())
	}
	return nil
}
