package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language pairs a human-readable name with the ISO-like code used in
// output filenames and skip checks.
type Language struct {
	Name string
	Code string
}

// Tag returns the BCP 47 tag for the language code.
func (l Language) Tag() language.Tag {
	return language.Make(l.Code)
}

// Languages is the fixed set of supported target languages.
var Languages = []Language{
	{Name: "German", Code: "de"},
	{Name: "French", Code: "fr"},
	{Name: "Spanish", Code: "es"},
	{Name: "Italian", Code: "it"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Russian", Code: "ru"},
	{Name: "Japanese", Code: "ja"},
	{Name: "Korean", Code: "ko"},
	{Name: "Chinese (Simplified)", Code: "zh-CN"},
	{Name: "Chinese (Traditional)", Code: "zh-TW"},
	{Name: "Arabic", Code: "ar"},
	{Name: "Hindi", Code: "hi"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Dutch", Code: "nl"},
	{Name: "Polish", Code: "pl"},
	{Name: "Swedish", Code: "sv"},
	{Name: "Norwegian", Code: "no"},
	{Name: "Danish", Code: "da"},
	{Name: "Finnish", Code: "fi"},
	{Name: "Greek", Code: "el"},
	{Name: "Czech", Code: "cs"},
	{Name: "Hungarian", Code: "hu"},
	{Name: "Thai", Code: "th"},
	{Name: "Vietnamese", Code: "vi"},
	{Name: "Indonesian", Code: "id"},
	{Name: "Romanian", Code: "ro"},
	{Name: "Ukrainian", Code: "uk"},
}

// LanguageByCode looks up a supported language by its code,
// case-insensitively.
func LanguageByCode(code string) (Language, error) {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, code) {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("unsupported target language code: %s", code)
}
