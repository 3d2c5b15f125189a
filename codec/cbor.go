package codec

import (
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

// cborTable is the on-disk shape of a chunk.
type cborTable struct {
	Fields []string `cbor:"fields"`
	Rows   [][]any  `cbor:"rows"`
}

// CBOR encodes chunks as a deterministic CBOR map {fields, rows}.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the codec with core deterministic encoding, so identical
// tables always produce identical bytes.
func NewCBOR() *CBOR {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(errors.Wrap(err, "cbor encode options"))
	}
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  math.MaxInt32,
		MaxMapPairs:       math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(errors.Wrap(err, "cbor decode options"))
	}
	return &CBOR{enc: enc, dec: dec}
}

func (c *CBOR) Name() string { return "cbor" }

// Decode reads the whole stream as a single table. Trailing items, duplicate
// or unknown keys, indefinite lengths and non-minimal encodings are rejected.
func (c *CBOR) Decode(r io.Reader) (*tabular.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read cbor chunk")
	}
	var t cborTable
	if err := c.dec.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "decode cbor chunk")
	}
	res := tabular.New(t.Fields, t.Rows)
	if err := canonical(c, data, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CBOR) Encode(w io.Writer, res *tabular.Result) error {
	t := cborTable{Fields: res.Fields(), Rows: res.Rows()}
	if t.Fields == nil {
		t.Fields = []string{}
	}
	if err := c.enc.NewEncoder(w).Encode(t); err != nil {
		return errors.Wrap(err, "encode cbor chunk")
	}
	return nil
}
