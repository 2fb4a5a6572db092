package homepage

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Packages:
        - abbr: GO
          href: https://pkg.go.dev/
- Social:
    - Reddit:
        - abbr: RE
          href: https://reddit.com/
    - Internal:
        - abbr: IN
          href: {{HOMEPAGE_VAR_INTERNAL_URL}}
`

func TestLoaderLoad(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(yamlPath, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	config, err := NewLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config) != 2 {
		t.Fatalf("Load() returned %d groups, want 2", len(config))
	}
	if got := len(config[0]["Developer"]); got != 2 {
		t.Errorf("Developer group has %d bookmarks, want 2", got)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/bookmarks.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("- [unterminated")); err == nil {
		t.Error("Parse() with invalid yaml should return error")
	}
}

func TestStripTemplateVariablesFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("href: {{HOMEPAGE_VAR_URL}}"),
			expected: "href: \"\"",
		},
		{
			name:     "two variables on one line",
			input:    []byte("{{A}}:{{B}}"),
			expected: "\"\":\"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}
