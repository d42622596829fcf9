package arr

import (
	"encoding/json"
	"testing"

	"github.com/groblegark/formsync/internal/model"
)

func TestFieldsToArray_PreservesKeyOrder(t *testing.T) {
	raw := json.RawMessage(`{"zebra":1,"apple":"two","min":3,"max":4}`)

	fields, err := FieldsToArray(raw)
	if err != nil {
		t.Fatalf("FieldsToArray: %v", err)
	}

	wantNames := []string{"zebra", "apple", "min", "max"}
	if len(fields) != len(wantNames) {
		t.Fatalf("got %d fields, want %d", len(fields), len(wantNames))
	}
	for i, name := range wantNames {
		if fields[i].Name != name {
			t.Errorf("field %d: got %q, want %q", i, fields[i].Name, name)
		}
	}
	if fields[0].Value != int64(1) {
		t.Errorf("zebra value: got %v (%T), want int64(1)", fields[0].Value, fields[0].Value)
	}
	if fields[1].Value != "two" {
		t.Errorf("apple value: got %v, want \"two\"", fields[1].Value)
	}
}

func TestFieldsToArray_DoesNotMutateInput(t *testing.T) {
	raw := json.RawMessage(`{"a":1,"b":2}`)
	orig := string(raw)

	if _, err := FieldsToArray(raw); err != nil {
		t.Fatalf("FieldsToArray: %v", err)
	}
	if string(raw) != orig {
		t.Errorf("input mutated: %s", raw)
	}
}

func TestFieldsToArray_Empty(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage(`{}`)} {
		fields, err := FieldsToArray(raw)
		if err != nil {
			t.Fatalf("FieldsToArray(%s): %v", raw, err)
		}
		if fields == nil || len(fields) != 0 {
			t.Errorf("FieldsToArray(%s) = %v, want empty non-nil slice", raw, fields)
		}
	}
}

func TestFieldsToArray_RejectsNonObject(t *testing.T) {
	for _, raw := range []json.RawMessage{
		json.RawMessage(`[1,2]`),
		json.RawMessage(`"str"`),
		json.RawMessage(`42`),
	} {
		if _, err := FieldsToArray(raw); err == nil {
			t.Errorf("FieldsToArray(%s) should fail", raw)
		}
	}
}

func TestFieldsToArray_FloatsAndNested(t *testing.T) {
	raw := json.RawMessage(`{"ratio":2.5,"tags":["a","b"]}`)
	fields, err := FieldsToArray(raw)
	if err != nil {
		t.Fatalf("FieldsToArray: %v", err)
	}
	if fields[0].Value != 2.5 {
		t.Errorf("ratio: got %v (%T), want 2.5", fields[0].Value, fields[0].Value)
	}
	if _, ok := fields[1].Value.([]any); !ok {
		t.Errorf("tags: got %T, want []any", fields[1].Value)
	}
}

func TestBuildRemoteFormat(t *testing.T) {
	f := &model.Format{
		Name:                "HDR Boost",
		IncludeWhenRenaming: true,
		Version:             7,
		Specifications: []model.Specification{
			{
				Name:           "hdr title",
				Implementation: "ReleaseTitleSpecification",
				Negate:         false,
				Required:       true,
				Fields:         json.RawMessage(`{"value":"\\bHDR\\b"}`),
			},
			{
				Name:           "not dv",
				Implementation: "ReleaseTitleSpecification",
				Negate:         true,
				Required:       true,
				Fields:         json.RawMessage(`{"value":"\\bDV\\b"}`),
			},
		},
	}

	rf, err := BuildRemoteFormat(f)
	if err != nil {
		t.Fatalf("BuildRemoteFormat: %v", err)
	}
	if rf.Name != "HDR Boost" || !rf.IncludeCustomFormatWhenRenaming {
		t.Errorf("unexpected remote format: %+v", rf)
	}
	if rf.ID != 0 {
		t.Errorf("new payload must not carry a remote id, got %d", rf.ID)
	}
	if len(rf.Specifications) != 2 {
		t.Fatalf("got %d specifications, want 2", len(rf.Specifications))
	}
	if !rf.Specifications[1].Negate {
		t.Errorf("second specification should be negated")
	}
	if len(rf.Specifications[0].Fields) != 1 || rf.Specifications[0].Fields[0].Name != "value" {
		t.Errorf("unexpected fields: %+v", rf.Specifications[0].Fields)
	}

	// The local version counter must never appear in the payload.
	data, err := json.Marshal(rf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(data, &asMap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := asMap["version"]; ok {
		t.Error("remote payload must not include a version field")
	}
}

func TestBuildRemoteFormat_InvalidFields(t *testing.T) {
	f := &model.Format{
		Name: "bad",
		Specifications: []model.Specification{
			{Name: "s", Implementation: "X", Fields: json.RawMessage(`[1]`)},
		},
	}
	if _, err := BuildRemoteFormat(f); err == nil {
		t.Fatal("expected error for non-object fields")
	}
}
