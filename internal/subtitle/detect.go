package subtitle

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage guesses the dominant language of the block texts by
// majority vote. Returns language.Und for empty input.
func DetectLanguage(blocks []Block) language.Tag {
	if len(blocks) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)
	for _, b := range blocks {
		lang := whatlanggo.DetectLang(b.Text).Iso6391()
		langMap[lang]++
	}

	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}

	return language.All.Make(topLang)
}
