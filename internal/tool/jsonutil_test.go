package tool

import (
	"context"
	"strings"
	"testing"
)

const sampleDoc = `{"users": [{"name": "Ada", "roles": ["admin"]}, {"name": "Grace"}], "total": 2}`

func TestJSONUtilExtract(t *testing.T) {
	ju := NewJSONUtil()
	cases := []struct {
		path string
		want any
	}{
		{"total", 2.0},
		{"users[0].name", "Ada"},
		{"users[1].name", "Grace"},
		{"users[0].roles[0]", "admin"},
	}
	for _, tc := range cases {
		result, err := ju.Execute(context.Background(),
			map[string]any{"operation": "extract", "data": sampleDoc, "path": tc.path}, nil)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.path, err)
			continue
		}
		if result != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.path, tc.want, result)
		}
	}
}

func TestJSONUtilExtractErrors(t *testing.T) {
	ju := NewJSONUtil()
	cases := []struct {
		path    string
		wantSub string
	}{
		{"missing", "not found"},
		{"users[5]", "out of range"},
		{"total[0]", "not an array"},
		{"users[x]", "malformed index"},
	}
	for _, tc := range cases {
		_, err := ju.Execute(context.Background(),
			map[string]any{"operation": "extract", "data": sampleDoc, "path": tc.path}, nil)
		if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("%s: expected error containing %q, got %v", tc.path, tc.wantSub, err)
		}
	}
}

func TestJSONUtilValidateOperation(t *testing.T) {
	ju := NewJSONUtil()

	result, err := ju.Execute(context.Background(),
		map[string]any{"operation": "validate", "data": `{"ok": true}`}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(map[string]any)["valid"] != true {
		t.Errorf("expected valid=true, got %v", result)
	}

	result, err = ju.Execute(context.Background(),
		map[string]any{"operation": "validate", "data": `{broken`}, nil)
	if err != nil {
		t.Fatalf("validate must not error on bad JSON: %v", err)
	}
	out := result.(map[string]any)
	if out["valid"] != false || out["error"] == nil {
		t.Errorf("expected valid=false with error, got %v", out)
	}
}

func TestJSONUtilFormat(t *testing.T) {
	ju := NewJSONUtil()
	result, err := ju.Execute(context.Background(),
		map[string]any{"operation": "format", "data": `{"a":1}`}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.(string), "\n  \"a\": 1") {
		t.Errorf("expected indented output, got %q", result)
	}
}

func TestJSONUtilParamValidation(t *testing.T) {
	ju := NewJSONUtil()
	if err := ju.Validate(map[string]any{"data": "{}"}); err == nil {
		t.Error("expected error for missing operation")
	}
	if err := ju.Validate(map[string]any{"operation": "explode", "data": "{}"}); err == nil {
		t.Error("expected error for unknown operation")
	}
	if err := ju.Validate(map[string]any{"operation": "extract", "data": "{}"}); err == nil {
		t.Error("expected error for extract without path")
	}
}
