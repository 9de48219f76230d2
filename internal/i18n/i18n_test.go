package i18n

import (
	"sort"
	"strings"
	"testing"
)

// TestI18nCompleteness verifies that all language profiles contain all message keys
func TestI18nCompleteness(t *testing.T) {
	languages := GetSupportedLanguages()
	if len(languages) == 0 {
		t.Fatal("No supported languages found")
	}

	referenceMessages := getMessages(DefaultLanguage)
	if len(referenceMessages) == 0 {
		t.Fatal("No reference messages found in default language")
	}

	var referenceKeys []string
	for key := range referenceMessages {
		referenceKeys = append(referenceKeys, key)
	}
	sort.Strings(referenceKeys)

	for _, lang := range languages {
		t.Run("Language_"+lang, func(t *testing.T) {
			messages := getMessages(lang)

			var missingKeys []string
			for _, refKey := range referenceKeys {
				if _, exists := messages[refKey]; !exists {
					missingKeys = append(missingKeys, refKey)
				}
			}

			var extraKeys []string
			for langKey := range messages {
				if _, exists := referenceMessages[langKey]; !exists {
					extraKeys = append(extraKeys, langKey)
				}
			}

			if len(missingKeys) > 0 {
				t.Errorf("Language %s is missing %d keys: %v", lang, len(missingKeys), missingKeys)
			}
			if len(extraKeys) > 0 {
				t.Errorf("Language %s has %d keys not in reference: %v", lang, len(extraKeys), extraKeys)
			}
		})
	}
}

// TestI18nKeyConsistency verifies that all message keys follow expected patterns
func TestI18nKeyConsistency(t *testing.T) {
	expectedPrefixes := []string{
		"error.",
		"title.",
		"play.",
		"status.",
		"queue.",
		"nowplaying.",
		"lyrics.",
		"flood.",
	}

	for key := range getMessages(DefaultLanguage) {
		hasValidPrefix := false
		for _, prefix := range expectedPrefixes {
			if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
				hasValidPrefix = true
				break
			}
		}

		if !hasValidPrefix {
			t.Errorf("Message key '%s' does not follow expected naming convention (should start with one of: %v)", key, expectedPrefixes)
		}
	}
}

func countPlaceholders(message string) int {
	count := 0
	for i := 0; i < len(message)-1; i++ {
		if message[i] == '%' && (message[i+1] == 's' || message[i+1] == 'd') {
			count++
		}
	}
	return count
}

// TestI18nPlaceholdersMatch verifies every translation takes the same arguments as the reference
func TestI18nPlaceholdersMatch(t *testing.T) {
	reference := getMessages(DefaultLanguage)
	for _, lang := range GetSupportedLanguages() {
		for key, message := range getMessages(lang) {
			ref, ok := reference[key]
			if !ok {
				continue
			}
			if got, want := countPlaceholders(message), countPlaceholders(ref); got != want {
				t.Errorf("%s/%s has %d placeholders, reference has %d", lang, key, got, want)
			}
		}
	}
}

// TestLocalizerFunctionality tests the Localizer methods
func TestLocalizerFunctionality(t *testing.T) {
	localizer := NewLocalizer(DefaultLanguage)

	result := localizer.T("error.generic")
	if result == "" || result == "error.generic" {
		t.Errorf("Expected translated message for 'error.generic', got: %s", result)
	}

	nonExistentKey := "this.key.does.not.exist"
	if result = localizer.T(nonExistentKey); result != nonExistentKey {
		t.Errorf("Expected fallback to key name for non-existent key, got: %s", result)
	}

	if result = localizer.T("status.joined", "General"); result != "✅ Conectado a General" {
		t.Errorf("Unexpected formatted message: %s", result)
	}

	english := NewLocalizer(EnglishMessages)
	if result = english.T("queue.removed", "Song"); result != "🗑️ Removed: **Song**" {
		t.Errorf("Unexpected english message: %s", result)
	}

	if unknown := NewLocalizer("fr"); unknown.T("queue.empty") != spanishMessages["queue.empty"] {
		t.Error("Unknown language should fall back to Spanish messages")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"es", "es"},
		{"es-AR", "es"},
		{"es-419", "es"},
		{"en", "en"},
		{"en-US", "en"},
		{"en_GB", "en"},
		{" EN-us ", "en"},
		{"fr", DefaultLanguage},
		{"", DefaultLanguage},
		{"not a locale", DefaultLanguage},
	}

	for _, tt := range tests {
		if got := Match(tt.locale); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestLocalizerRegionalLocale(t *testing.T) {
	localizer := NewLocalizer("en-GB")
	if localizer.Language() != EnglishMessages {
		t.Fatalf("Language() = %q, want %q", localizer.Language(), EnglishMessages)
	}
	if got := localizer.T("queue.empty"); got != englishMessages["queue.empty"] {
		t.Errorf("T(queue.empty) = %q", got)
	}
}

func TestLocalizerHas(t *testing.T) {
	localizer := NewLocalizer(EnglishMessages)
	if !localizer.Has("error.generic") {
		t.Error("Has(error.generic) = false")
	}
	if localizer.Has("this.key.does.not.exist") {
		t.Error("Has() reported an unknown key")
	}
}

// BenchmarkLocalizerWithArgs benchmarks localization with arguments
func BenchmarkLocalizerWithArgs(b *testing.B) {
	localizer := NewLocalizer(DefaultLanguage)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = localizer.T("play.queued", "Test Track Name")
	}
}
