package json

import "testing"

func TestExtractPureJSON(t *testing.T) {
	got, err := Extract(`{"tool": "calculator"}`)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got != `{"tool": "calculator"}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractFromMarkdownFence(t *testing.T) {
	text := "```json\n{\"a\": 1}\n```"
	got, err := Extract(text)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got != `{"a": 1}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractEmbeddedObject(t *testing.T) {
	text := `Sure, here is the call: {"tool": "clock", "arguments": {}} — let me know.`
	got, err := Extract(text)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got != `{"tool": "clock", "arguments": {}}` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractNoObject(t *testing.T) {
	if _, err := Extract("just prose, no JSON here"); err == nil {
		t.Error("expected error for text without JSON")
	}
}

func TestUnmarshal(t *testing.T) {
	var decoded struct {
		Tool string `json:"tool"`
	}
	if err := Unmarshal(`noise {"tool": "calculator"} noise`, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Tool != "calculator" {
		t.Errorf("expected calculator, got %q", decoded.Tool)
	}
}

func TestUnmarshalInvalidTarget(t *testing.T) {
	var decoded []string
	if err := Unmarshal(`{"tool": "x"}`, &decoded); err == nil {
		t.Error("expected decode error when shapes mismatch")
	}
}
