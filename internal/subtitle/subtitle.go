// Package subtitle parses and serializes SRT subtitle files.
//
// Blocks keep their index and time-range lines as literal strings so that
// untouched blocks round-trip byte-for-byte. Regions that do not match the
// block structure are skipped without error.
package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Block is a single subtitle entry. Index and TimeRange are the literal
// source lines; only Text is rewritten by translation.
type Block struct {
	Index     string
	TimeRange string
	Text      string
}

// blockPattern matches one SRT block: an integer index line, a time-range
// line, and the text up to a blank line or end of input.
var blockPattern = regexp.MustCompile(
	`(\d+)\n(\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3})\n([\s\S]*?)(?:\n\n|$)`)

// Parse scans content for subtitle blocks. Malformed regions are skipped;
// an input with no recognizable blocks yields an empty slice.
func Parse(content string) []Block {
	matches := blockPattern.FindAllStringSubmatch(content, -1)

	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{
			Index:     m[1],
			TimeRange: m[2],
			Text:      strings.TrimSpace(m[3]),
		})
	}
	return blocks
}

// Serialize renders blocks back to SRT text, one blank line after each
// block, preserving the original index and time-range lines.
func Serialize(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", b.Index, b.TimeRange, b.Text)
	}
	return sb.String()
}

// ReadFile reads and parses the subtitle file at path.
func ReadFile(path string) ([]Block, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return Parse(string(content)), nil
}

// WriteFile serializes blocks and writes them to path.
func WriteFile(path string, blocks []Block) error {
	if err := os.WriteFile(path, []byte(Serialize(blocks)), 0644); err != nil {
		return fmt.Errorf("failed to write subtitle file: %w", err)
	}
	return nil
}
