// Package prompt derives the system instruction sent alongside each
// translation request.
package prompt

import (
	"fmt"
	"strings"
)

// Style selects the tone the model is asked to translate in.
type Style int

const (
	StyleNatural Style = iota
	StyleFormal
	StyleSimpleClear
)

// Descriptor returns the style wording used inside the instruction text.
func (s Style) Descriptor() string {
	switch s {
	case StyleFormal:
		return "formal"
	case StyleSimpleClear:
		return "simple and clear"
	default:
		return "natural"
	}
}

func (s Style) String() string {
	switch s {
	case StyleFormal:
		return "formal"
	case StyleSimpleClear:
		return "simple-clear"
	default:
		return "natural"
	}
}

// ParseStyle maps a style name to a Style. Unknown names fall back to
// natural, matching the reference behavior for unrecognized selections.
func ParseStyle(s string) Style {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "formal":
		return StyleFormal
	case "simple-clear", "simple", "simple and clear":
		return StyleSimpleClear
	default:
		return StyleNatural
	}
}

// Build constructs the system instruction for one translation call.
// A non-blank override is used verbatim; otherwise the instruction names
// the target language and style and states the placeholder invariants the
// model must honor.
func Build(targetLanguage string, style Style, override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}

	return fmt.Sprintf(
		"Translate the following text from English into %s.\n"+
			"Use %s style. Important:\n"+
			"Only translate the USER text.\n"+
			"Keep placeholders like <BTAG_0>, <ETAG_0>, <TIME_0> unchanged.\n"+
			"Never translate content inside placeholders.\n"+
			"Do NOT add explanations or commentary.\n"+
			"Answer with the translated text only.",
		targetLanguage, style.Descriptor())
}
