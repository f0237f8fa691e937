package policy

import (
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// NormalizeAction lowercases and trims an action name so that callers can
// pass "  Write_To_File  " and "write_to_file" interchangeably.
func NormalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}

// NormalizeTarget lowercases and trims a target path or command line.
//
// The gate is a textual firewall: it deliberately performs no path
// canonicalization or unicode normalization, so the matched text is exactly
// what the caller would hand to the filesystem or shell.
func NormalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

// SplitCommand tokenizes a command-line target into argv using shell word
// splitting rules. The second return value reports whether tokenization
// fell back to plain whitespace splitting because the text was not valid
// shell syntax (unbalanced quotes, binary garbage). Either way a usable
// token list comes back; a group that cannot be tested simply does not
// match.
func SplitCommand(target string) ([]string, bool) {
	parser := shellwords.NewParser()
	tokens, err := parser.Parse(target)
	if err != nil || len(tokens) == 0 {
		fields := strings.Fields(target)
		return fields, err != nil
	}
	return tokens, false
}

// CommandVerb returns the first token of a command-line target, or "" if
// the target has no tokens. Used for human-readable reasons only, never
// for classification.
func CommandVerb(target string) string {
	tokens, _ := SplitCommand(target)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}
