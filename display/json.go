package display

import (
	"encoding/json"

	"github.com/teranos/pipestage/tabular"
)

// MarshalJSON marshals with two-space indentation
func MarshalJSON(v interface{}) ([]byte, error) {
	if res, ok := v.(*tabular.Result); ok {
		v = Records(res)
	}
	return json.MarshalIndent(v, "", "  ")
}

// Records turns a table into one field->value map per row, in row order.
func Records(res *tabular.Result) []map[string]any {
	records := make([]map[string]any, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		records = append(records, res.Row(i))
	}
	return records
}
