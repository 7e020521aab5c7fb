// Package messages holds the localized texts the bot sends to users
package messages

import "fmt"

// Supported languages
const (
	LangEnglish = "en"
	LangRussian = "ru"
	LangSystem  = "system"
)

// Catalog manages message translations
type Catalog struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys
const (
	KeyWelcome          = "welcome"
	KeyHelp             = "help"
	KeyButtonHelp       = "button_help"
	KeyButtonVideo      = "button_video"
	KeyButtonAudio      = "button_audio"
	KeyBadLink          = "bad_link"
	KeyChecking         = "checking"
	KeyProbeNotFound    = "probe_not_found"
	KeyProbeTimeout     = "probe_timeout"
	KeyFormatPrompt     = "format_prompt"
	KeyDownloading      = "downloading"
	KeyUploading        = "uploading"
	KeyCaption          = "caption"
	KeyFormatNameVideo  = "format_name_video"
	KeyFormatNameAudio  = "format_name_audio"
	KeyFetchFailed      = "fetch_failed"
	KeyFetchTimeout     = "fetch_timeout"
	KeyNoOutput         = "no_output"
	KeyOversize         = "oversize"
	KeyInternalError    = "internal_error"
	KeyStaleChoice      = "stale_choice"
	KeyNotUnderstood    = "not_understood"
	KeyBusy             = "busy"
	KeyRateLimited      = "rate_limited"
	KeyStatsEmpty       = "stats_empty"
	KeyStatsUser        = "stats_user"
	KeyStatsUnknownFav  = "stats_unknown_favorite"
	KeyStatsAdmin       = "stats_admin"
	KeyAccessDenied     = "access_denied"
	KeyStatsUnavailable = "stats_unavailable"
)

// NewCatalog creates a catalog set to lang, falling back to English
func NewCatalog(lang string) *Catalog {
	c := &Catalog{
		currentLanguage: LangEnglish,
		texts:           make(map[string]map[string]string),
	}

	c.initializeTexts()
	c.SetLanguage(lang)
	return c
}

// SetLanguage sets the current language
func (c *Catalog) SetLanguage(lang string) {
	if lang == LangSystem || lang == "" {
		lang = LangEnglish
	}

	if _, exists := c.texts[lang]; exists {
		c.currentLanguage = lang
	}
}

// Language returns the current language code
func (c *Catalog) Language() string {
	return c.currentLanguage
}

// AvailableLanguages returns the language codes with their display names
func (c *Catalog) AvailableLanguages() map[string]string {
	return map[string]string{
		LangEnglish: "English",
		LangRussian: "Русский",
	}
}

// Text returns the localized text for key
func (c *Catalog) Text(key string) string {
	if texts, exists := c.texts[c.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := c.texts[LangEnglish]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// Format returns the localized text for key with args substituted
func (c *Catalog) Format(key string, args ...any) string {
	return fmt.Sprintf(c.Text(key), args...)
}
