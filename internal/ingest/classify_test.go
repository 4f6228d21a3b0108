package ingest

import "testing"

func TestClassify_Empty(t *testing.T) {
	class, _ := Classify("   ")
	if class != ClassEmpty {
		t.Fatalf("expected ClassEmpty, got %v", class)
	}
}

func TestClassify_ControlCommands(t *testing.T) {
	for _, text := range []string{"/start", "/help"} {
		class, _ := Classify(text)
		if class != ClassControl {
			t.Fatalf("text %q: expected ClassControl, got %v", text, class)
		}
	}
}

func TestClassify_PromptWithText(t *testing.T) {
	class, prompt := Classify("/prompt Build a landing page")
	if class != ClassPrompt {
		t.Fatalf("expected ClassPrompt, got %v", class)
	}
	if prompt != "Build a landing page" {
		t.Fatalf("expected extracted prompt text, got %q", prompt)
	}
}

func TestClassify_EmptyPrompt(t *testing.T) {
	class, _ := Classify("/prompt   ")
	if class != ClassEmptyPrompt {
		t.Fatalf("expected ClassEmptyPrompt, got %v", class)
	}
}

func TestClassify_Invalid(t *testing.T) {
	class, _ := Classify("just chatting")
	if class != ClassInvalid {
		t.Fatalf("expected ClassInvalid, got %v", class)
	}
}
