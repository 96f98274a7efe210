package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// WriteJSON encodes v as indented JSON. A non-empty query is a gjson path
// evaluated against the encoded document; only the matching part is
// written.
func WriteJSON(w io.Writer, v any, query string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if query != "" {
		result := gjson.GetBytes(data, query)
		if !result.Exists() {
			return fmt.Errorf("query %q matched nothing", query)
		}
		data = []byte(result.Raw)
		if result.IsObject() || result.IsArray() {
			data = bytes.TrimRight([]byte(gjson.Get(result.Raw, "@pretty").Raw), "\n")
		}
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
