package sync

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreFilter_Defaults(t *testing.T) {
	filter := CompileIgnore(nil, DefaultIgnorePatterns(), nil, nil)

	assert.True(t, filter.IsIgnored(".git/config"))
	assert.True(t, filter.IsIgnored("project/.git/HEAD"))
	assert.True(t, filter.IsIgnored("src/__pycache__/mod.cpython-312.pyc"))
	assert.True(t, filter.IsIgnored("lib/util.pyc"))
	assert.True(t, filter.IsIgnored("notes/.DS_Store"))
	assert.True(t, filter.IsIgnored("scratch.tmp"))

	assert.False(t, filter.IsIgnored("src/main.py"))
	assert.False(t, filter.IsIgnored("README.md"))
	assert.False(t, filter.IsIgnored("gitnotes/config"))
}

func TestIgnoreFilter_AlwaysIgnoresMetadata(t *testing.T) {
	filter := CompileIgnore(nil, nil, nil, []string{"!.syncignore", "!.bucketsync/"})

	assert.True(t, filter.IsIgnored(IgnoreFileName))
	assert.True(t, filter.IsIgnored(".bucketsync/bucketsync.lock"))
	assert.True(t, filter.IsIgnored(".bucketsync/tmp/a.txt.tmp.123"))
	assert.True(t, filter.CanPruneDir(MetadataDirName))

	// only the root ignore file is special
	assert.False(t, filter.IsIgnored("sub/.syncignore"))
	assert.False(t, filter.IsIgnored(""))
}

func TestIgnoreFilter_DirectoryAndGlobPatterns(t *testing.T) {
	filter := CompileIgnore(nil, nil, []string{"build/", "docs/*.md", "*.log"}, nil)

	assert.True(t, filter.IsIgnored("build/out.bin"))
	assert.True(t, filter.IsIgnored("app/build/nested/out.bin"))
	assert.True(t, filter.IsIgnored("docs/intro.md"))
	assert.False(t, filter.IsIgnored("docs/guide/intro.md"), "* must not cross a path segment")
	assert.True(t, filter.IsIgnored("debug.log"))
	assert.True(t, filter.IsIgnored("a/b/c/trace.log"))
	assert.False(t, filter.IsIgnored("builder/out.bin"))
}

func TestIgnoreFilter_Precedence(t *testing.T) {
	t.Run("file negation re-includes a default", func(t *testing.T) {
		filter := CompileIgnore(nil, DefaultIgnorePatterns(), []string{"!.vscode/settings.json"}, nil)

		assert.False(t, filter.IsIgnored(".vscode/settings.json"))
		assert.True(t, filter.IsIgnored(".vscode/launch.json"))
		assert.False(t, filter.CanPruneDir(".vscode"), "negations disable pruning")
	})

	t.Run("extra patterns override the file", func(t *testing.T) {
		filter := CompileIgnore(nil, nil, []string{"*.csv"}, []string{"!keep.csv"})

		assert.True(t, filter.IsIgnored("data.csv"))
		assert.False(t, filter.IsIgnored("keep.csv"))
	})

	t.Run("later exclusion wins over earlier negation", func(t *testing.T) {
		filter := CompileIgnore(nil, nil, []string{"*.log", "!keep.log"}, []string{"keep.log"})

		assert.True(t, filter.IsIgnored("keep.log"))
	})
}

func TestIgnoreFilter_MalformedPatternsSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	filter := CompileIgnore(logger, nil, []string{"[abc", `trailing\`, "[z-a].txt", "*.bak", "", "# comment"}, nil)

	assert.Equal(t, 1, filter.Rules())
	assert.True(t, filter.IsIgnored("old.bak"))
	assert.False(t, filter.IsIgnored("abc"))
	assert.Equal(t, 3, strings.Count(logs.String(), "ignore pattern skipped"))
}

func TestIgnoreFilter_LiteralRegexpCharacters(t *testing.T) {
	filter := CompileIgnore(nil, nil, []string{"notes+draft.txt", "c++/", "price$.csv", "v{1}.bin", "a|b.txt", "^start", "(draft).md"}, nil)

	assert.Equal(t, 7, filter.Rules())

	tests := []struct {
		path    string
		ignored bool
	}{
		{"notes+draft.txt", true},
		{"docs/notes+draft.txt", true},
		{"notesdraft.txt", false},
		{"notessdraft.txt", false},
		{"c++/main.cc", true},
		{"src/c++/main.cc", true},
		{"c/main.cc", false},
		{"price$.csv", true},
		{"price.csv", false},
		{"v{1}.bin", true},
		{"v.bin", false},
		{"a|b.txt", true},
		{"a", false},
		{"b.txt", false},
		{"^start", true},
		{"start", false},
		{"(draft).md", true},
		{"draft.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.ignored, filter.IsIgnored(tt.path))
		})
	}
}

func TestIgnoreFilter_BracketExpressions(t *testing.T) {
	filter := CompileIgnore(nil, nil, []string{"log[0-9].txt", "data[!a].csv", "v[+x].md"}, nil)

	assert.Equal(t, 3, filter.Rules())
	assert.True(t, filter.IsIgnored("log1.txt"))
	assert.False(t, filter.IsIgnored("logx.txt"))
	assert.True(t, filter.IsIgnored("datab.csv"))
	assert.False(t, filter.IsIgnored("dataa.csv"))
	assert.True(t, filter.IsIgnored("v+.md"))
	assert.True(t, filter.IsIgnored("vx.md"))
	assert.False(t, filter.IsIgnored("v.md"))
}

func TestIgnoreFilter_CanPruneDir(t *testing.T) {
	filter := CompileIgnore(nil, DefaultIgnorePatterns(), nil, nil)

	assert.True(t, filter.CanPruneDir(".git"))
	assert.True(t, filter.CanPruneDir("pkg/__pycache__"))
	assert.False(t, filter.CanPruneDir("src"))

	var nilFilter *IgnoreFilter
	assert.False(t, nilFilter.CanPruneDir("src"))
	assert.False(t, nilFilter.IsIgnored("src/a.txt"))
	assert.True(t, nilFilter.IsIgnored(IgnoreFileName))
}

func TestReadIgnoreFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		lines, err := ReadIgnoreFile(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("comments and blanks dropped", func(t *testing.T) {
		dir := t.TempDir()
		content := "# secrets\n*.key\n\n  private/  \r\n!public.key\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, IgnoreFileName), []byte(content), 0o644))

		lines, err := ReadIgnoreFile(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"*.key", "private/", "!public.key"}, lines)
	})
}
