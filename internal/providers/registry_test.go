package providers

import "testing"

func TestAllProvidersHaveNormalizedNames(t *testing.T) {
	seen := map[string]bool{}
	for _, adapter := range All() {
		name := adapter.Name()
		if name == "" {
			t.Fatal("adapter with empty name")
		}
		if seen[name] {
			t.Fatalf("duplicate adapter name %q", name)
		}
		seen[name] = true
	}
	if !seen["openai"] || !seen["anthropic"] {
		t.Errorf("expected openai and anthropic adapters, got %v", seen)
	}
}

func TestByName(t *testing.T) {
	if adapter := ByName(" OpenAI "); adapter == nil || adapter.Name() != "openai" {
		t.Errorf("ByName(\" OpenAI \") = %v", adapter)
	}
	if adapter := ByName("nope"); adapter != nil {
		t.Errorf("ByName(nope) = %v, want nil", adapter)
	}
}
