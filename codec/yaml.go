package codec

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/pipestage/errors"
	"github.com/teranos/pipestage/tabular"
)

type yamlTable struct {
	Fields []string `yaml:"fields"`
	Rows   [][]any  `yaml:"rows"`
}

// YAML stores a chunk as a single {fields, rows} document, indented by two
// spaces. Useful for debugging stages; hand-written fixtures must match the
// encoder's layout to be accepted.
type YAML struct{}

func NewYAML() *YAML { return &YAML{} }

func (YAML) Name() string { return "yaml" }

func (y YAML) Decode(r io.Reader) (*tabular.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read yaml chunk")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var t yamlTable
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "decode yaml chunk")
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			err = errors.New("more than one document")
		}
		return nil, errors.Wrap(err, "decode yaml chunk")
	}
	res := tabular.New(t.Fields, t.Rows)
	if err := canonical(y, data, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (YAML) Encode(w io.Writer, res *tabular.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlTable{Fields: res.Fields(), Rows: res.Rows()}); err != nil {
		return errors.Wrap(err, "encode yaml chunk")
	}
	return errors.Wrap(enc.Close(), "close yaml encoder")
}
