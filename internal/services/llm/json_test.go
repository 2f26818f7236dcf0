package llm_test

import (
	"testing"

	"cadence/internal/services/llm"
)

func TestDecodeJSONDirect(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := llm.DecodeJSON(`{"name": "alpha"}`, &payload); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if payload.Name != "alpha" {
		t.Errorf("name = %q", payload.Name)
	}
}

func TestDecodeJSONStripsCodeFence(t *testing.T) {
	content := "```json\n{\"name\": \"beta\"}\n```"
	var payload struct {
		Name string `json:"name"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if payload.Name != "beta" {
		t.Errorf("name = %q", payload.Name)
	}
}

func TestDecodeJSONExtractsEmbeddedObject(t *testing.T) {
	content := "Sure, here is the result you asked for: {\"name\": \"gamma\"} hope that helps!"
	var payload struct {
		Name string `json:"name"`
	}
	if err := llm.DecodeJSON(content, &payload); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if payload.Name != "gamma" {
		t.Errorf("name = %q", payload.Name)
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	var payload map[string]any
	if err := llm.DecodeJSON("not json at all", &payload); err == nil {
		t.Fatal("expected decode failure")
	}
	if err := llm.DecodeJSON("", &payload); err == nil {
		t.Fatal("expected empty payload failure")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"valid passthrough", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n[1, 2]\n```", "[1, 2]"},
		{"prose wrapped", `answer: {"a": 1} done`, `{"a": 1}`},
		{"nothing recoverable", "plain text", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := llm.ExtractJSON(tc.content); got != tc.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}
