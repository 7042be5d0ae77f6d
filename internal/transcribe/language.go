package transcribe

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName returns the English display name for a whisper language
// code such as "de" or "pt". Unknown codes are returned unchanged.
func LanguageName(code string) string {
	if code == "" || code == "auto" {
		return code
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
