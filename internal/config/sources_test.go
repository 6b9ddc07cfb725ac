package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func keys(t *testing.T, path string) []string {
	t.Helper()
	sources, err := LoadSources(path)
	require.NoError(t, err)
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Key)
	}
	return out
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources()

	require.Len(t, sources, 4)
	assert.Equal(t, "announcements", sources[0].Key)
	assert.Equal(t, "exam_notices", sources[1].Key)
	assert.Equal(t, "tenders", sources[2].Key)
	assert.Equal(t, "vacancies", sources[3].Key)

	for _, s := range sources {
		assert.NoError(t, s.Validate(), s.Key)
	}
}

func TestLoadSources_SortsStableByPriority(t *testing.T) {
	path := writeFile(t, `
sources:
  - key: b
    url: https://example.com/b
    priority: 2
    name: Example
  - key: c
    url: https://example.com/c
    priority: 1
    name: Example
  - key: a
    url: https://example.com/a
    priority: 2
    name: Example
`)

	assert.Equal(t, []string{"c", "b", "a"}, keys(t, path))
}

func TestLoadSources_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "sources: ["},
		{"empty", "sources: []"},
		{"invalid url", `
sources:
  - key: a
    url: ftp://example.com
    priority: 1
    name: A
`},
		{"duplicate key", `
sources:
  - key: a
    url: https://example.com/1
    priority: 1
    name: A
  - key: a
    url: https://example.com/2
    priority: 1
    name: A
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSources(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolveSources(t *testing.T) {
	sources, err := ResolveSources("")
	require.NoError(t, err)
	assert.Len(t, sources, 4)
}
