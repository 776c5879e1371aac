package file

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// langSuffix matches a trailing two/three-letter language code on a file
// stem, optionally with a region part, e.g. ".en", ".eng", ".pt-BR".
var langSuffix = regexp.MustCompile(`(?i)\.[a-z]{2,3}(-[a-zA-Z]{2,3})?$`)

// OutputPath derives the translated-file path for inputPath: any existing
// language-code suffix on the stem is stripped and the target code is
// appended before the original extension.
//
// "show.eng.srt" with code "de" becomes "show.de.srt".
func OutputPath(inputPath, langCode string) string {
	dir := filepath.Dir(inputPath)
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)

	stem = langSuffix.ReplaceAllString(stem, "")

	return filepath.Join(dir, fmt.Sprintf("%s.%s%s", stem, langCode, ext))
}

// HasLangCode reports whether the file name already carries langCode as a
// dotted segment, e.g. "show.de.srt" for code "de". The comparison is
// case-insensitive.
func HasLangCode(path, langCode string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.Contains(name, "."+strings.ToLower(langCode)+".")
}
