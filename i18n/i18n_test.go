package i18n

import (
	"context"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("EN-gb") != "en" {
		t.Fatalf("expected en for EN-gb")
	}
	if DetectLanguage("fr-FR,ar;q=0.8") != "ar" {
		t.Fatalf("expected ar from second entry")
	}
	if DetectLanguage("fr-FR,fr;q=0.8") != "ar" {
		t.Fatalf("expected ar fallback")
	}
	if DetectLanguage("") != "ar" {
		t.Fatalf("expected default ar")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("ar", "required") != "مطلوب" {
		t.Fatalf("expected arabic translation")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to ar translation
	if T("es", "required") != "مطلوب" {
		t.Fatalf("expected ar fallback for es lang")
	}
}

func TestCatalogsHaveSameCodes(t *testing.T) {
	for code := range catalogs["ar"] {
		if _, ok := catalogs["en"][code]; !ok {
			t.Errorf("code %q missing from en catalog", code)
		}
	}
	for code := range catalogs["en"] {
		if _, ok := catalogs["ar"][code]; !ok {
			t.Errorf("code %q missing from ar catalog", code)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("en") != "en" || Normalize("de") != "ar" || Normalize("") != "ar" {
		t.Fatalf("unexpected normalization")
	}
}

func TestLangContext(t *testing.T) {
	if got := FromContext(context.Background()); got != DefaultLang {
		t.Fatalf("empty context lang = %q", got)
	}
	if got := FromContext(WithLang(context.Background(), "en")); got != "en" {
		t.Fatalf("lang = %q, want en", got)
	}
	if got := FromContext(WithLang(context.Background(), "xx")); got != DefaultLang {
		t.Fatalf("unsupported lang kept: %q", got)
	}
}
