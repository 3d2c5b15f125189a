package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

// CSV reads a header record followed by data records. Every value decodes
// as a string; nil encodes as an empty field.
type CSV struct {
	Comma rune
}

// NewCSV returns a CSV codec using the given delimiter.
func NewCSV(comma rune) *CSV {
	return &CSV{Comma: comma}
}

func (c *CSV) Name() string { return "csv" }

func (c *CSV) Decode(r io.Reader) (*tabular.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv chunk")
	}
	res, err := c.records(data)
	if err != nil {
		return nil, err
	}
	if err := canonical(c, data, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *CSV) records(data []byte) (*tabular.Result, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = c.Comma
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return tabular.New(nil, nil), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	res := tabular.New(header, nil)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv row %d", res.Len()+1)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		res.Append(row)
	}
	return res, nil
}

func (c *CSV) Encode(w io.Writer, res *tabular.Result) error {
	if len(res.Fields()) == 0 && res.Len() == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	cw.Comma = c.Comma

	if err := cw.Write(res.Fields()); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for i, row := range res.Rows() {
		rec := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rec[j] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write csv row %d", i+1)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
