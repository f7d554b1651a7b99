// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package discover asks a web-search-enabled language model for recent
// papers on a topic and turns its answer into an input file for the
// download command.
package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/paper-fetch/internal/secrets"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Backend names accepted by NewBackend.
const (
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
)

// TimestampLayout is the metadata timestamp format of input files.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	// ErrEmptyQuery is returned for a blank topic.
	ErrEmptyQuery = errors.New("search query cannot be empty")

	// ErrNoPapers is returned when no paper could be read from the answer.
	ErrNoPapers = errors.New("could not extract papers from the response")
)

// Backend sends one prompt to a language model and returns its text answer.
type Backend interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewBackend builds the backend selected by cfg.Backend.
func NewBackend(cfg types.AIConfig, client *http.Client) (Backend, error) {
	switch cfg.Backend {
	case BackendOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", secrets.ErrMissingCredential, secrets.OpenAIKey)
		}
		return &OpenAIBackend{APIKey: cfg.APIKey, Model: cfg.Model, Client: client, WebSearch: true}, nil
	case BackendAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", secrets.ErrMissingCredential, secrets.AnthropicKey)
		}
		return &AnthropicBackend{APIKey: cfg.APIKey, Model: cfg.Model, MaxTokens: cfg.MaxTokens, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown discovery backend %q", cfg.Backend)
	}
}

var reportPromptTmpl = template.Must(template.New("report").Parse(`Please provide a comprehensive report on recent research papers about "{{.Query}}".
The report should reference up-to-date research from relevant conferences and journals.
Output should be in JSON format with the following structure:
{
  "papers": [
    {
      "paper_name": "Full title of the paper",
      "paper_url": "URL to access the paper (preferably direct link or arXiv)"
    },
    ...
  ]
}`))

// RenderPrompt returns the report prompt for query.
func RenderPrompt(query string) (string, error) {
	var buf bytes.Buffer
	if err := reportPromptTmpl.Execute(&buf, struct{ Query string }{query}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// now is replaced in tests.
var now = time.Now

// Discover asks b for papers about query. model is recorded in the
// returned file's metadata.
func Discover(ctx context.Context, b Backend, query, model string) (types.InputFile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.InputFile{}, ErrEmptyQuery
	}
	prompt, err := RenderPrompt(query)
	if err != nil {
		return types.InputFile{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := b.Complete(ctx, prompt)
	if err != nil {
		return types.InputFile{}, fmt.Errorf("%s: %w", b.Name(), err)
	}
	papers := ExtractPapers(text)
	if len(papers) == 0 {
		return types.InputFile{}, ErrNoPapers
	}

	return types.InputFile{
		Papers: papers,
		Metadata: &types.RunMetadata{
			Query:     query,
			Timestamp: now().Format(TimestampLayout),
			Model:     model,
		},
	}, nil
}

var (
	fencedJSON  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	pairPattern = regexp.MustCompile(`(?s)"paper_name":\s*"([^"]+)".*?"paper_url":\s*"([^"]+)"`)
	urlPattern  = regexp.MustCompile(`https?://[^\s"]+`)
	lastQuoted  = regexp.MustCompile(`"([^"]+)"[^"]*$`)
)

// titleWindow is how far before a bare URL a quoted title is looked for.
const titleWindow = 200

// ExtractPapers reads paper entries from a model answer. It accepts, in
// order of preference: the whole answer as JSON, a fenced json block,
// paper_name/paper_url pairs anywhere in the text and finally bare URLs
// preceded by a quoted title. Entries lacking a name or URL are dropped.
func ExtractPapers(text string) []types.PaperEntry {
	if papers, ok := decodePapers(text); ok {
		return papers
	}

	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if papers, ok := decodePapers(m[1]); ok {
			return papers
		}
		if papers := pairs(m[1]); len(papers) > 0 {
			return papers
		}
	}
	if papers := pairs(text); len(papers) > 0 {
		return papers
	}
	return quotedBeforeURL(text)
}

// decodePapers parses s as {"papers": [...]}, a bare array, or a single
// paper object.
func decodePapers(s string) ([]types.PaperEntry, bool) {
	var raw any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return nil, false
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if list, ok := v["papers"].([]any); ok {
			items = list
		} else {
			items = []any{v}
		}
	default:
		return nil, false
	}

	var out []types.PaperEntry
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["paper_name"].(string)
		url, _ := m["paper_url"].(string)
		if strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			continue
		}
		out = append(out, types.PaperEntry{PaperName: strings.TrimSpace(name), PaperURL: strings.TrimSpace(url)})
	}
	return out, len(out) > 0
}

func pairs(s string) []types.PaperEntry {
	var out []types.PaperEntry
	for _, m := range pairPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, types.PaperEntry{PaperName: unescape(m[1]), PaperURL: unescape(m[2])})
	}
	return out
}

func quotedBeforeURL(text string) []types.PaperEntry {
	var out []types.PaperEntry
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		start := max(0, loc[0]-titleWindow)
		m := lastQuoted.FindStringSubmatch(text[start:loc[0]])
		if m == nil {
			continue
		}
		out = append(out, types.PaperEntry{PaperName: m[1], PaperURL: text[loc[0]:loc[1]]})
	}
	return out
}

// unescape decodes escapes such as \u03b2 in a captured string.
func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

var (
	unsafeQueryChars = regexp.MustCompile(`[^\w\s-]`)
	querySeparators  = regexp.MustCompile(`[-\s]+`)
)

// OutputPath returns dir/<query>_papers.json with query folded to a safe
// file name.
func OutputPath(dir, query string) string {
	safe := strings.ToLower(strings.TrimSpace(unsafeQueryChars.ReplaceAllString(query, "")))
	safe = querySeparators.ReplaceAllString(safe, "_")
	if safe == "" {
		safe = "query"
	}
	return filepath.Join(dir, safe+"_papers.json")
}
