package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestBuildDefaultInstruction(t *testing.T) {
	got := Build("German", StyleNatural, "")

	assert.Contains(t, got, "into German")
	assert.Contains(t, got, "Use natural style")
	assert.Contains(t, got, "Only translate the USER text.")
	assert.Contains(t, got, "Keep placeholders like <BTAG_0>, <ETAG_0>, <TIME_0> unchanged.")
	assert.Contains(t, got, "Never translate content inside placeholders.")
	assert.Contains(t, got, "Answer with the translated text only.")
}

func TestBuildStyles(t *testing.T) {
	assert.Contains(t, Build("Swedish", StyleFormal, ""), "Use formal style")
	assert.Contains(t, Build("Swedish", StyleSimpleClear, ""), "Use simple and clear style")
}

func TestBuildOverrideWinsVerbatim(t *testing.T) {
	override := "You are a pirate. Translate everything into pirate German."
	assert.Equal(t, override, Build("German", StyleFormal, override))

	// Whitespace-only overrides do not count.
	assert.Contains(t, Build("German", StyleFormal, "   \n\t"), "Use formal style")
}

func TestParseStyle(t *testing.T) {
	assert.Equal(t, StyleNatural, ParseStyle("natural"))
	assert.Equal(t, StyleFormal, ParseStyle("Formal"))
	assert.Equal(t, StyleSimpleClear, ParseStyle("simple-clear"))
	assert.Equal(t, StyleSimpleClear, ParseStyle("simple and clear"))
	assert.Equal(t, StyleNatural, ParseStyle("whatever"))
}

func TestLanguageByCode(t *testing.T) {
	de, err := LanguageByCode("de")
	require.NoError(t, err)
	assert.Equal(t, "German", de.Name)

	zh, err := LanguageByCode("ZH-cn")
	require.NoError(t, err)
	assert.Equal(t, "Chinese (Simplified)", zh.Name)
	assert.Equal(t, "zh-CN", zh.Code)

	_, err = LanguageByCode("xx")
	assert.Error(t, err)
}

func TestLanguageTags(t *testing.T) {
	for _, l := range Languages {
		assert.NotEqual(t, language.Und, l.Tag(), "code %s should parse", l.Code)
	}
}
