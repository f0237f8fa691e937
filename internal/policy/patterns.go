package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Group names a pattern group in the library.
type Group string

const (
	// GroupRead holds action-name prefixes for inspection-only operations.
	GroupRead Group = "read"
	// GroupWrite holds action-name prefixes for content modification.
	GroupWrite Group = "write"
	// GroupExecute holds action-name prefixes for command execution.
	GroupExecute Group = "execute"
	// GroupDestructive holds command-line patterns for deletion, overwrite,
	// truncation and formatting verbs.
	GroupDestructive Group = "destructive"
	// GroupCriticalFile holds substrings indicating secrets, credentials or
	// sensitive configuration in a file path.
	GroupCriticalFile Group = "critical_file"
	// GroupRootScope holds patterns for filesystem/drive roots and other
	// uncontained deletion scopes.
	GroupRootScope Group = "root_scope"
)

// Pattern is a single compiled entry in a target-matching group.
type Pattern struct {
	// Group is the group this pattern belongs to.
	Group Group
	// Pattern is the regex source string.
	Pattern string
	// Compiled is the compiled regex.
	Compiled *regexp.Regexp
	// Source indicates where this pattern came from: "builtin" or "config".
	Source string
}

// Library is the fixed set of named pattern groups the engine consults.
//
// All patterns are compiled at construction and the library is immutable
// afterwards, so any number of goroutines may match against it without
// coordination.
type Library struct {
	readActions    []string
	writeActions   []string
	executeActions []string

	destructive  []*Pattern
	criticalFile []string
	rootScope    []*Pattern
}

// Extensions carries caller-supplied additions to the built-in groups.
// Additions can only widen what the gate recognizes as risky or read-only;
// built-in patterns can never be removed.
type Extensions struct {
	ReadActions    []string
	WriteActions   []string
	ExecuteActions []string
	Destructive    []string
	CriticalFiles  []string
	RootScopes     []string
}

// NewLibrary builds the library with the built-in pattern groups.
func NewLibrary() *Library {
	lib := &Library{}
	lib.loadBuiltins()
	return lib
}

// NewLibraryWithExtensions builds the library and appends the given
// extensions. Invalid extension regexes are rejected.
func NewLibraryWithExtensions(ext Extensions) (*Library, error) {
	lib := NewLibrary()

	lib.readActions = append(lib.readActions, normalizePrefixes(ext.ReadActions)...)
	lib.writeActions = append(lib.writeActions, normalizePrefixes(ext.WriteActions)...)
	lib.executeActions = append(lib.executeActions, normalizePrefixes(ext.ExecuteActions)...)

	for _, p := range ext.Destructive {
		if err := lib.addRegex(GroupDestructive, p, "config"); err != nil {
			return nil, err
		}
	}
	for _, p := range ext.RootScopes {
		if err := lib.addRegex(GroupRootScope, p, "config"); err != nil {
			return nil, err
		}
	}
	for _, s := range ext.CriticalFiles {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			lib.criticalFile = append(lib.criticalFile, s)
		}
	}

	return lib, nil
}

func (l *Library) loadBuiltins() {
	// Action-name prefixes. Matched against the normalized action, so every
	// entry is lowercase.
	l.readActions = []string{
		"read", "view", "list", "search", "cat", "get", "ls", "dir",
		"glob", "grep", "inspect", "stat",
	}
	l.writeActions = []string{
		"write", "replace", "append", "save",
	}
	l.executeActions = []string{
		"run", "exec", "execute", "shell", "bash", "command", "terminal",
	}

	// Deletion, overwrite, truncation and formatting verbs with their common
	// aliases. Matched against the normalized command-line target. Verbs are
	// anchored to command position (start of line, after a separator, or
	// after sudo/xargs) so that a verb appearing as an argument does not
	// match.
	const cmd = `(^|[;&|]\s*|\bsudo\s+|\bxargs\s+)`
	l.destructive = compileGroup(GroupDestructive, []string{
		cmd + `rm(\s|$)`,
		cmd + `rmdir(\s|$)`,
		cmd + `del(\s|$)`,
		cmd + `erase(\s|$)`,
		cmd + `rd(\s|$)`,
		cmd + `unlink(\s|$)`,
		cmd + `shred(\s|$)`,
		cmd + `srm(\s|$)`,
		cmd + `remove-item(\s|$)`,
		cmd + `format(\s|$)`,
		cmd + `mkfs`,
		cmd + `truncate(\s|$)`,
		cmd + `dd\s+.*of=`,
		`(^|[^>])>[^>&]`, // single > redirect overwrites the file (not >> or >&)
		cmd + `mv\s+.*\s/dev/null`,
	}, "builtin")

	// Secrets, credentials and sensitive configuration indicators. Plain
	// substrings, matched against the normalized file-path target.
	l.criticalFile = []string{
		".env",
		"secret",
		"secrets",
		"passwd",
		"shadow",
		"credential",
		"token",
		".pem",
		".key",
		".p12",
		".pfx",
		"id_rsa",
		"id_ed25519",
		".ssh",
		".git/",
		".gitconfig",
		"config",
	}

	// Entire-drive or filesystem-root deletion scopes.
	l.rootScope = compileGroup(GroupRootScope, []string{
		`(^|\s)/+\.?(\s|$)`,        // filesystem root, also // and /. spellings
		`(^|\s)/\*`,                // root wildcard
		`(^|\s)[a-z]:[\\/]?(\s|$)`, // bare drive root (c:, d:\)
		`(^|\s)[a-z]:[\\/]\*`,      // drive-root wildcard
		`(^|\s)~[\\/]?(\s|$)`,      // entire home directory
	}, "builtin")
}

func compileGroup(group Group, patterns []string, source string) []*Pattern {
	result := make([]*Pattern, 0, len(patterns))
	for _, p := range patterns {
		compiled, err := regexp.Compile("(?i)" + p)
		if err != nil {
			// Built-in patterns must always be valid.
			panic(fmt.Sprintf("invalid builtin pattern %q: %v", p, err))
		}
		result = append(result, &Pattern{
			Group:    group,
			Pattern:  p,
			Compiled: compiled,
			Source:   source,
		})
	}
	return result
}

func (l *Library) addRegex(group Group, pattern, source string) error {
	compiled, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid %s pattern %q: %w", group, pattern, err)
	}
	p := &Pattern{Group: group, Pattern: pattern, Compiled: compiled, Source: source}
	switch group {
	case GroupDestructive:
		l.destructive = append(l.destructive, p)
	case GroupRootScope:
		l.rootScope = append(l.rootScope, p)
	default:
		return fmt.Errorf("group %s does not take regex patterns", group)
	}
	return nil
}

func normalizePrefixes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsReadAction reports whether the normalized action names an
// inspection-only operation.
func (l *Library) IsReadAction(action string) bool {
	return hasAnyPrefix(action, l.readActions)
}

// IsWriteAction reports whether the normalized action names a file write,
// full-content replace, or append operation.
func (l *Library) IsWriteAction(action string) bool {
	return hasAnyPrefix(action, l.writeActions)
}

// IsExecuteAction reports whether the normalized action names a
// command-execution operation.
func (l *Library) IsExecuteAction(action string) bool {
	return hasAnyPrefix(action, l.executeActions)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// MatchDestructive returns the destructive-command pattern the normalized
// target matches, or nil.
func (l *Library) MatchDestructive(target string) *Pattern {
	return matchPatterns(target, l.destructive)
}

// MatchCriticalFile returns the critical-file substring the normalized
// target contains, or "".
func (l *Library) MatchCriticalFile(target string) string {
	for _, s := range l.criticalFile {
		if strings.Contains(target, s) {
			return s
		}
	}
	return ""
}

// MatchRootScope returns the root/broad-path pattern the normalized target
// matches, or nil.
func (l *Library) MatchRootScope(target string) *Pattern {
	return matchPatterns(target, l.rootScope)
}

func matchPatterns(target string, patterns []*Pattern) *Pattern {
	for _, p := range patterns {
		if p.Compiled.MatchString(target) {
			return p
		}
	}
	return nil
}

// HasTrailingWildcard reports whether the normalized target ends in an
// unrestricted wildcard token ("rm -rf ./build/*", "del c:\data\*").
// A wildcard restricted by a name or extension ("rm *.log") does not count.
func HasTrailingWildcard(target string) bool {
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return false
	}
	last := fields[len(fields)-1]
	if last == "*" {
		return true
	}
	return strings.HasSuffix(last, "/*") || strings.HasSuffix(last, `\*`)
}

// Export is a serializable snapshot of the library for external tools.
type Export struct {
	Version string              `json:"version"`
	SHA256  string              `json:"sha256"`
	Groups  map[string][]string `json:"groups"`
	Counts  map[string]int      `json:"counts"`
}

// Export returns all pattern groups in a deterministic, serializable form.
func (l *Library) Export() *Export {
	export := &Export{
		Version: "1.0.0",
		Groups:  make(map[string][]string),
		Counts:  make(map[string]int),
	}

	groups := map[string][]string{
		string(GroupRead):         append([]string(nil), l.readActions...),
		string(GroupWrite):        append([]string(nil), l.writeActions...),
		string(GroupExecute):      append([]string(nil), l.executeActions...),
		string(GroupDestructive):  patternStrings(l.destructive),
		string(GroupCriticalFile): append([]string(nil), l.criticalFile...),
		string(GroupRootScope):    patternStrings(l.rootScope),
	}

	for name, patterns := range groups {
		sorted := append([]string(nil), patterns...)
		sort.Strings(sorted)
		export.Groups[name] = sorted
		export.Counts[name] = len(sorted)
	}

	export.SHA256 = l.ComputeHash()
	return export
}

// ComputeHash returns a deterministic hash of all patterns, used to detect
// drift between the binary and exported pattern sets.
func (l *Library) ComputeHash() string {
	var all []string
	collect := func(group Group, patterns []string) {
		for _, p := range patterns {
			all = append(all, string(group)+":"+p)
		}
	}
	collect(GroupRead, l.readActions)
	collect(GroupWrite, l.writeActions)
	collect(GroupExecute, l.executeActions)
	collect(GroupDestructive, patternStrings(l.destructive))
	collect(GroupCriticalFile, l.criticalFile)
	collect(GroupRootScope, patternStrings(l.rootScope))

	sort.Strings(all)

	h := sha256.New()
	for _, p := range all {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func patternStrings(patterns []*Pattern) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, p.Pattern)
	}
	return out
}
