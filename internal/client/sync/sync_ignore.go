package sync

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/bucketsync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

const (
	// IgnoreFileName is the per-workspace ignore file, read once per sync call.
	IgnoreFileName = ".syncignore"
	// MetadataDirName holds the workspace lock and in-flight downloads.
	MetadataDirName = ".bucketsync"
)

var defaultIgnoreLines = []string{
	// version control
	".git/",
	".svn/",
	".hg/",
	// python
	"__pycache__/",
	".ipynb_checkpoints/",
	"*.py[cod]",
	// IDE/Editor-specific
	".vscode/",
	".idea/",
	"*.swp",
	// General excludes
	"*.tmp",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// DefaultIgnorePatterns returns a copy of the built-in ignore rules.
func DefaultIgnorePatterns() []string {
	return append([]string(nil), defaultIgnoreLines...)
}

// IgnoreFilter matches slash-separated relative paths against gitignore-style rules.
// The ignore file and the metadata directory are always excluded, regardless of negations.
type IgnoreFilter struct {
	ignore      *gitignore.GitIgnore
	rules       int
	hasNegation bool
}

// CompileIgnore builds a filter from defaults, file-based and caller-supplied patterns, in that
// precedence order. Later rules override earlier ones, so negations re-include paths excluded
// by lower-precedence rules. Malformed lines are dropped with a warning.
func CompileIgnore(logger Logger, defaults, fileBased, extra []string) *IgnoreFilter {
	if logger == nil {
		logger = discardLogger{}
	}

	lines := make([]string, 0, len(defaults)+len(fileBased)+len(extra))
	filter := &IgnoreFilter{}

	for _, group := range [][]string{defaults, fileBased, extra} {
		for _, raw := range group {
			line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := validateIgnorePattern(line); err != nil {
				logger.Warn("ignore pattern skipped", "pattern", line, "error", err)
				continue
			}
			escaped := escapeIgnoreLine(line)
			if _, err := regexp.Compile(ignoreLineSyntax.Replace(strings.TrimPrefix(escaped, "!"))); err != nil {
				logger.Warn("ignore pattern skipped", "pattern", line, "error", err)
				continue
			}
			if strings.HasPrefix(line, "!") {
				filter.hasNegation = true
			}
			lines = append(lines, escaped)
		}
	}

	filter.ignore = gitignore.CompileIgnoreLines(lines...)
	filter.rules = len(lines)
	return filter
}

// IsIgnored reports whether a relative path is excluded from sync.
// Directory paths may carry a trailing slash.
func (f *IgnoreFilter) IsIgnored(relPath string) bool {
	relPath = strings.TrimLeft(relPath, "/")
	if relPath == "" {
		return false
	}

	if relPath == IgnoreFileName ||
		relPath == MetadataDirName ||
		strings.HasPrefix(relPath, MetadataDirName+"/") {
		return true
	}

	if f == nil || f.ignore == nil {
		return false
	}
	return f.ignore.MatchesPath(relPath)
}

// CanPruneDir reports whether an ignored directory can be skipped wholesale during a walk.
// With negation rules present a file under it may still be re-included.
func (f *IgnoreFilter) CanPruneDir(relDir string) bool {
	dir := strings.TrimSuffix(relDir, "/") + "/"
	if dir == MetadataDirName+"/" {
		return true
	}
	if f != nil && f.hasNegation {
		return false
	}
	return f.IsIgnored(dir)
}

// Rules returns the number of compiled rules.
func (f *IgnoreFilter) Rules() int {
	if f == nil {
		return 0
	}
	return f.rules
}

// ReadIgnoreFile reads the workspace ignore file. A missing file yields no patterns.
func ReadIgnoreFile(rootDir string) ([]string, error) {
	ignorePath := filepath.Join(rootDir, IgnoreFileName)
	if !utils.FileExists(ignorePath) {
		return nil, nil
	}

	file, err := os.Open(ignorePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", IgnoreFileName, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("read %s: %w", IgnoreFileName, err)
	}
	return lines, nil
}

func validateIgnorePattern(line string) error {
	pattern := strings.TrimPrefix(line, "!")
	pattern = strings.Trim(pattern, "/")
	if pattern == "" {
		return errors.New("empty pattern")
	}
	if !doublestar.ValidatePattern(pattern) {
		return errors.New("invalid glob")
	}
	// a dangling escape would swallow the group go-gitignore appends
	trailing := len(pattern) - len(strings.TrimRight(pattern, `\`))
	if trailing%2 == 1 {
		return errors.New("trailing backslash")
	}
	return nil
}

// escapeIgnoreLine quotes the characters go-gitignore hands to its regexp verbatim. It only
// translates ".", "*" and "?", so "notes+draft.txt" or "c++/" would otherwise compile to a
// different regexp or to none at all. Bracket expressions keep their meaning, with a leading
// "!" turned into the regexp negation.
func escapeIgnoreLine(line string) string {
	var b strings.Builder
	b.Grow(len(line) + 8)

	body := line
	if strings.HasPrefix(body, "!") {
		b.WriteByte('!')
		body = body[1:]
	}

	inClass := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\':
			b.WriteByte(c)
			if i+1 < len(body) {
				i++
				b.WriteByte(body[i])
			}
		case inClass:
			if c == '!' && body[i-1] == '[' {
				c = '^'
			}
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case strings.IndexByte(ignoreRegexpMeta, c) >= 0:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ignoreLineSyntax strips glob wildcards so the rest of an escaped line can be checked
// with the regexp parser go-gitignore uses, which drops lines it cannot compile.
var ignoreLineSyntax = strings.NewReplacer(`\*`, `\*`, `\?`, `\?`, "*", "", "?", "")

// ignoreRegexpMeta lists regexp syntax go-gitignore leaves untouched, bar "[" and "]".
const ignoreRegexpMeta = "+$^|{}()"
