package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/internal/secrets"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

func TestApplySecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	s := map[string]string{
		secrets.SemanticScholarKey: "s2-key",
		secrets.OpenAlexEmail:      "me@example.org",
		secrets.OpenAIKey:          "sk-openai",
		secrets.AnthropicKey:       "sk-ant",
	}

	cfg := types.DefaultPipelineConfig()
	applySecrets(&cfg, s)
	assert.Equal(t, "s2-key", cfg.Lookup.SemanticScholarAPIKey)
	assert.Equal(t, "me@example.org", cfg.Lookup.OpenAlexEmail)
	assert.Equal(t, "me@example.org", cfg.Acquisition.OpenAlexEmail)
	assert.Equal(t, "sk-openai", cfg.Discovery.APIKey)

	cfg = types.DefaultPipelineConfig()
	cfg.Discovery.Backend = "anthropic"
	cfg.Lookup.SemanticScholarAPIKey = "from-config"
	applySecrets(&cfg, s)
	assert.Equal(t, "sk-ant", cfg.Discovery.APIKey)
	assert.Equal(t, "from-config", cfg.Lookup.SemanticScholarAPIKey, "config wins over secrets")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validate(types.DefaultPipelineConfig()))

	tests := []struct {
		name   string
		mutate func(*types.PipelineConfig)
	}{
		{"threshold above one", func(c *types.PipelineConfig) { c.Resolve.Match.AcceptThreshold = 1.5 }},
		{"negative threshold", func(c *types.PipelineConfig) { c.Resolve.Match.AcceptThreshold = -0.1 }},
		{"no output dir", func(c *types.PipelineConfig) { c.Acquisition.OutputDir = "" }},
		{"no providers", func(c *types.PipelineConfig) { c.Lookup.Providers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultPipelineConfig()
			tt.mutate(&cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestChangedBindings(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Float64("threshold", 0.7, "")
	cmd.Flags().Bool("manual", false, "")
	require.NoError(t, cmd.Flags().Set("threshold", "0.8"))

	got := changedBindings(cmd, map[string]string{
		"threshold": "resolve.match.accept_threshold",
		"manual":    "resolve.manual",
	})
	assert.Equal(t, map[string]string{"threshold": "resolve.match.accept_threshold"}, got)
}

func TestDisplayCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "download_results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "papers": [
    {"paper_name": "A", "paper_url": "https://a", "pdf_path": "data/pdf/A.pdf", "downloaded": true, "status": "resolved"},
    {"paper_name": "B", "paper_url": "https://b", "downloaded": false, "error": "no candidates found", "status": "unresolved"}
  ]
}`), 0o644))

	var buf bytes.Buffer
	require.NoError(t, display(&buf, path, false, false))
	out := buf.String()
	assert.Contains(t, out, "1. A")
	assert.Contains(t, out, "no candidates found")
	assert.Contains(t, out, "Outcome")

	buf.Reset()
	require.NoError(t, display(&buf, path, true, false))
	assert.Contains(t, buf.String(), `"paper_name": "B"`)

	err := display(&buf, filepath.Join(dir, "missing.json"), false, false)
	assert.Equal(t, ExitConfigError, exitCode(err))
}
