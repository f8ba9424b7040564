package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":                     LocaleZH,
		"en":                   LocaleEN,
		"en-GB,en;q=0.8":       LocaleEN,
		"zh-TW":                LocaleTW,
		"zh-Hant-HK":           LocaleTW,
		"zh":                   LocaleZH,
		"fr-FR":                LocaleZH,
		"!!invalid!!":          LocaleZH,
		"ja;q=0.9,en-US;q=0.8": LocaleEN,
	}
	for raw, want := range cases {
		if got := NormalizeLocale(raw); got != want {
			t.Fatalf("NormalizeLocale(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestResolveLocalePrefersHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/?lang=zh-TW", nil)
	req.Header.Set("Accept-Language", "zh-CN")
	req.Header.Set("X-Locale", "en-US")
	c.Request = req
	if got := ResolveLocale(c); got != LocaleEN {
		t.Fatalf("expected header locale, got %s", got)
	}
	req.Header.Del("X-Locale")
	if got := ResolveLocale(c); got != LocaleTW {
		t.Fatalf("expected query locale, got %s", got)
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(LocaleEN, "error.key_not_found"); got != "Activation key not found" {
		t.Fatalf("unexpected translation %q", got)
	}
	if got := T("xx", "error.key_not_found"); got != "激活码不存在" {
		t.Fatalf("expected default locale fallback, got %q", got)
	}
	if got := T(LocaleEN, "error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("expected key echo, got %q", got)
	}
	if got := Sprintf(LocaleEN, "error.password_min_length", 8); got != "Password must be at least 8 characters" {
		t.Fatalf("unexpected formatted message %q", got)
	}
}

func TestEveryLocaleHasSameKeys(t *testing.T) {
	base := messages[DefaultLocale]
	for locale, table := range messages {
		if len(table) != len(base) {
			t.Fatalf("locale %s has %d keys, want %d", locale, len(table), len(base))
		}
		for key := range base {
			if _, ok := table[key]; !ok {
				t.Fatalf("locale %s missing key %s", locale, key)
			}
		}
	}
}
