package jsonutil

import "testing"

func TestExtractObjectPureJSON(t *testing.T) {
	raw, err := ExtractObject(`{"name": "test", "value": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"name": "test", "value": 42}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestExtractObjectWithPrefix(t *testing.T) {
	raw, err := ExtractObject(`Here is the result: {"a": 1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"a": 1}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestExtractObjectMarkdownFences(t *testing.T) {
	raw, err := ExtractObject("```json\n{\"a\": 1}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"a": 1}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestExtractObjectNoJSON(t *testing.T) {
	if _, err := ExtractObject("nothing here"); err == nil {
		t.Error("expected error for non-JSON input")
	}
}

func TestNormalizeObject(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"valid", `{"a":1}`, `{"a":1}`},
		{"empty", "", `{}`},
		{"whitespace", "   ", `{}`},
		{"garbage", "not json at all", `{}`},
		{"embedded", `text {"b":2} trailer`, `{"b":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(NormalizeObject(tt.payload)); got != tt.want {
				t.Errorf("NormalizeObject(%q) = %s, want %s", tt.payload, got, tt.want)
			}
		})
	}
}
