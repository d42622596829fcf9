package arr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/groblegark/formsync/internal/model"
)

// BuildRemoteFormat converts a locally authored format into the remote
// payload shape. The local version counter never leaves the service; the
// remote only ever sees the format content.
func BuildRemoteFormat(f *model.Format) (RemoteFormat, error) {
	specs := make([]RemoteSpecification, 0, len(f.Specifications))
	for _, s := range f.Specifications {
		fields, err := FieldsToArray(s.Fields)
		if err != nil {
			return RemoteFormat{}, fmt.Errorf("specification %q: %w", s.Name, err)
		}
		specs = append(specs, RemoteSpecification{
			Name:           s.Name,
			Implementation: s.Implementation,
			Negate:         s.Negate,
			Required:       s.Required,
			Fields:         fields,
		})
	}
	return RemoteFormat{
		Name:                            f.Name,
		IncludeCustomFormatWhenRenaming: f.IncludeWhenRenaming,
		Specifications:                  specs,
	}, nil
}

// FieldsToArray converts a fields object ({"key": value, ...}) into the
// remote's name/value pair list. Key order follows the order in the original
// JSON document, which a plain map unmarshal would destroy, so the object is
// walked with a streaming decoder instead. The input is never mutated.
func FieldsToArray(raw json.RawMessage) ([]Field, error) {
	if len(raw) == 0 {
		return []Field{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("fields must be a JSON object")
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode field name: %w", err)
		}
		key := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		fields = append(fields, Field{Name: key, Value: normalizeValue(value)})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}

	if fields == nil {
		fields = []Field{}
	}
	return fields, nil
}

// normalizeValue converts json.Number tokens into int64 when the value is
// integral, float64 otherwise. Nested values pass through untouched.
func normalizeValue(v any) any {
	num, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}
	return num.String()
}
