package i18n

import "testing"

func TestParse(t *testing.T) {
	for in, want := range map[string]Lang{"en": EN, "fr": FR, "": EN} {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := Parse("de"); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestLabel(t *testing.T) {
	if got := Label(EN, "no_data"); got != "No data" {
		t.Errorf("got %q", got)
	}
	if got := Label(FR, "no_data"); got != "Pas de données" {
		t.Errorf("got %q", got)
	}
	if got := Label(FR, "missing-key"); got != "missing-key" {
		t.Errorf("got %q", got)
	}
}
