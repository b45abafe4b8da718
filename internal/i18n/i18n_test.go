package i18n

import "testing"

func TestLocalizeFallsBackToKey(t *testing.T) {
	if got := Localize("noSuchKey", HI); got != "noSuchKey" {
		t.Fatalf("expected raw key fallback, got %q", got)
	}
	if got := Localize("reportIssue", Locale("fr")); got != "Report Issue" {
		t.Fatalf("unsupported locale should render english, got %q", got)
	}
	if got := Localize("reportIssue", KN); got != "ಸಮಸ್ಯೆ ವರದಿ ಮಾಡಿ" {
		t.Fatalf("unexpected kannada rendering %q", got)
	}
}

func TestEveryKeyCoversEveryLocale(t *testing.T) {
	for _, key := range Keys() {
		for _, loc := range Supported {
			if !Has(key, loc) {
				t.Errorf("key %q missing locale %s", key, loc)
			}
		}
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Locale{
		"en":    EN,
		"HI":    HI,
		"kn-IN": KN,
		"hi_IN": HI,
	}
	for raw, want := range cases {
		got, ok := Parse(raw)
		if !ok || got != want {
			t.Fatalf("Parse(%q) = %q, %v", raw, got, ok)
		}
	}
	for _, raw := range []string{"", "fr", "  "} {
		if _, ok := Parse(raw); ok {
			t.Fatalf("Parse(%q) should fail", raw)
		}
	}
}

func TestNegotiate(t *testing.T) {
	if got := Negotiate("kn-IN,kn;q=0.9,en;q=0.8"); got != KN {
		t.Fatalf("expected kn, got %s", got)
	}
	if got := Negotiate("hi"); got != HI {
		t.Fatalf("expected hi, got %s", got)
	}
	if got := Negotiate(""); got != EN {
		t.Fatalf("expected default, got %s", got)
	}
}
