package cmd

import (
	"encoding/json"
	"os"
	"unicode/utf8"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
