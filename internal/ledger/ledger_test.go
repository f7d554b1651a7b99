// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sampleInput() types.InputFile {
	return types.InputFile{
		Papers: []types.PaperEntry{
			{PaperName: "Meta-AdaM: A Meta-Learned Adaptive Optimizer with Momentum for Few-Shot Learning", PaperURL: "https://papers.nips.cc/a"},
			{PaperName: "ADOPT: Modified Adam Can Converge with Any β₂ with the Optimal Rate", PaperURL: "https://arxiv.org/abs/2411.02853"},
			{PaperName: "Adam Can Converge Without Any Modification On Update Rules", PaperURL: "https://openreview.net/x"},
		},
		Metadata: &types.RunMetadata{Query: "adam optimizer", Timestamp: "2026-03-01 10:00:00", Model: "gpt-4o"},
	}
}

func downloaded(name, path string) types.LedgerRecord {
	return types.LedgerRecord{PaperName: name, PDFPath: path, Downloaded: true, Status: types.StatusResolved}
}

func failed(name, msg string) types.LedgerRecord {
	return types.LedgerRecord{PaperName: name, Error: msg, Status: types.StatusUnresolved}
}

// --- LoadInput ---

func TestLoadInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "papers.json", `{
  "papers": [
    {"paper_name": "Attention Is All You Need", "paper_url": "https://arxiv.org/abs/1706.03762"}
  ],
  "metadata": {"query": "transformers", "timestamp": "2026-01-02 03:04:05", "model": "gpt-4o"}
}`)

	in, err := LoadInput(path)
	require.NoError(t, err)
	require.Len(t, in.Papers, 1)
	assert.Equal(t, "Attention Is All You Need", in.Papers[0].PaperName)
	require.NotNil(t, in.Metadata)
	assert.Equal(t, "transformers", in.Metadata.Query)

	q := in.Queries()
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", q[0].SourceURL)
}

func TestLoadInputErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"missing papers key", `{"results": []}`},
		{"not json", `papers: []`},
		{"papers not a list", `{"papers": {"a": 1}}`},
		{"empty paper name", `{"papers": [{"paper_name": " ", "paper_url": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".json", tt.content)
			_, err := LoadInput(path)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}

	_, err := LoadInput(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInputEmptyPapers(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.json", `{"papers": []}`)
	in, err := LoadInput(path)
	require.NoError(t, err)
	assert.Empty(t, in.Papers)
}

// --- Ledger ---

func TestLedgerOrderFollowsInput(t *testing.T) {
	in := sampleInput()
	l := New(filepath.Join(t.TempDir(), DefaultFileName), in)

	require.NoError(t, l.Upsert(failed(in.Papers[2].PaperName, "no candidates found")))
	require.NoError(t, l.Upsert(downloaded(in.Papers[0].PaperName, "data/pdf/a.pdf")))

	recs := l.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, in.Papers[0].PaperName, recs[0].PaperName)
	assert.Equal(t, in.Papers[2].PaperName, recs[1].PaperName)
}

func TestLedgerUpsertReplacesByNormalizedTitle(t *testing.T) {
	in := sampleInput()
	l := New(filepath.Join(t.TempDir(), DefaultFileName), in)

	require.NoError(t, l.Upsert(failed(in.Papers[1].PaperName, "timeout")))
	require.NoError(t, l.Upsert(downloaded("adopt modified adam can converge with any beta2 with the optimal rate", "x.pdf")))

	recs := l.Records()
	require.Len(t, recs, 1, "same paper under a differently formatted title")
	assert.True(t, recs[0].Downloaded)

	rec, ok := l.Get(in.Papers[1].PaperName)
	require.True(t, ok)
	assert.Equal(t, "x.pdf", rec.PDFPath)
}

func TestLedgerUpsertRejectsContractViolations(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), DefaultFileName), sampleInput())
	tests := []struct {
		name string
		rec  types.LedgerRecord
		want error
	}{
		{"downloaded without path", types.LedgerRecord{PaperName: "a", Downloaded: true}, ErrMissingPDFPath},
		{"downloaded with error", types.LedgerRecord{PaperName: "a", Downloaded: true, PDFPath: "p", Error: "e"}, ErrUnexpectedErr},
		{"failed without error", types.LedgerRecord{PaperName: "a"}, ErrMissingError},
		{"failed with path", types.LedgerRecord{PaperName: "a", Error: "e", PDFPath: "p"}, ErrUnexpectedPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, l.Upsert(tt.rec), tt.want)
		})
	}
	assert.Empty(t, l.Records())
}

func TestLedgerSaveAtomicAndFieldPresence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	in := sampleInput()
	l := New(path, in)
	require.NoError(t, l.Upsert(types.LedgerRecord{
		PaperName: in.Papers[0].PaperName, PaperURL: in.Papers[0].PaperURL,
		ArxivID: "2310.01234", ArxivURL: "https://arxiv.org/abs/2310.01234",
		PDFPath: "data/pdf/Meta-AdaM.pdf", Downloaded: true, Status: types.StatusResolved,
	}))
	require.NoError(t, l.Upsert(failed(in.Papers[1].PaperName, "no candidates found")))
	require.NoError(t, l.Save())

	matches, err := filepath.Glob(filepath.Join(dir, ".ledger-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"papers\": [", "two-space indentation")
	assert.Contains(t, string(data), "β₂", "non-ASCII kept verbatim")

	var raw struct {
		Papers   []map[string]any `json:"papers"`
		Metadata map[string]any   `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Papers, 2)

	ok := raw.Papers[0]
	assert.Equal(t, true, ok["downloaded"])
	assert.Contains(t, ok, "pdf_path")
	assert.NotContains(t, ok, "error")
	assert.Equal(t, "2310.01234", ok["arxiv_id"])

	bad := raw.Papers[1]
	assert.Equal(t, false, bad["downloaded"])
	assert.Contains(t, bad, "error")
	assert.NotContains(t, bad, "pdf_path")
	assert.NotContains(t, bad, "arxiv_id")

	assert.Equal(t, "adam optimizer", raw.Metadata["query"])
}

func TestOpenMergesExistingRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	in := sampleInput()

	first := New(path, in)
	require.NoError(t, first.Upsert(downloaded(in.Papers[0].PaperName, "a.pdf")))
	require.NoError(t, first.Upsert(failed(in.Papers[1].PaperName, "timeout")))
	require.NoError(t, first.Upsert(failed("A Paper Not In The Input", "x")))
	require.NoError(t, first.Save())

	second, err := Open(path, in)
	require.NoError(t, err)
	recs := second.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, in.Papers[0].PaperName, recs[0].PaperName)
	assert.Equal(t, in.Papers[1].PaperName, recs[1].PaperName)
	assert.Equal(t, "A Paper Not In The Input", recs[2].PaperName)

	require.NoError(t, second.Upsert(downloaded(in.Papers[2].PaperName, "c.pdf")))
	recs = second.Records()
	require.Len(t, recs, 4)
	assert.Equal(t, in.Papers[2].PaperName, recs[2].PaperName, "input papers come before foreign rows")
}

func TestOpenMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), DefaultFileName), sampleInput())
	require.NoError(t, err)
	assert.Empty(t, l.Records())
}

func TestOpenCorruptFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), DefaultFileName, "{not json")
	_, err := Open(path, sampleInput())
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "json", DefaultFileName), DefaultPath(filepath.Join("data", "json", "papers.json")))
}

// --- NewRecord ---

func TestNewRecord(t *testing.T) {
	q := types.PaperQuery{Title: "Meta-AdaM", SourceURL: "https://papers.nips.cc/x"}
	arxiv := &types.Candidate{Title: "Meta-AdaM", ExternalID: "2310.01234"}
	doi := &types.Candidate{Title: "Journal", ExternalID: "10.1145/1"}

	tests := []struct {
		name  string
		res   types.ResolutionResult
		out   *types.FetchOutcome
		check func(t *testing.T, rec types.LedgerRecord)
	}{
		{
			"downloaded arxiv",
			types.ResolutionResult{Status: types.StatusResolved, Chosen: arxiv},
			&types.FetchOutcome{Downloaded: true, LocalPath: "data/pdf/Meta-AdaM.pdf"},
			func(t *testing.T, rec types.LedgerRecord) {
				assert.True(t, rec.Downloaded)
				assert.Equal(t, "data/pdf/Meta-AdaM.pdf", rec.PDFPath)
				assert.Equal(t, "2310.01234", rec.ArxivID)
				assert.Equal(t, "https://arxiv.org/abs/2310.01234", rec.ArxivURL)
				assert.Empty(t, rec.Error)
				assert.False(t, rec.ManualSearch)
			},
		},
		{
			"manual doi download",
			types.ResolutionResult{Status: types.StatusResolvedManually, Chosen: doi},
			&types.FetchOutcome{Downloaded: true, LocalPath: "j.pdf"},
			func(t *testing.T, rec types.LedgerRecord) {
				assert.True(t, rec.ManualSearch)
				assert.Empty(t, rec.ArxivID)
				assert.Equal(t, types.StatusResolvedManually, rec.Status)
			},
		},
		{
			"fetch failed",
			types.ResolutionResult{Status: types.StatusResolved, Chosen: arxiv},
			&types.FetchOutcome{Error: "download failed: HTTP 404"},
			func(t *testing.T, rec types.LedgerRecord) {
				assert.False(t, rec.Downloaded)
				assert.Equal(t, "download failed: HTTP 404", rec.Error)
				assert.Empty(t, rec.PDFPath)
				assert.Equal(t, "2310.01234", rec.ArxivID)
			},
		},
		{
			"unresolved",
			types.ResolutionResult{Status: types.StatusUnresolved, ErrorDetail: "no candidates found"},
			nil,
			func(t *testing.T, rec types.LedgerRecord) {
				assert.False(t, rec.Downloaded)
				assert.Equal(t, "no candidates found", rec.Error)
				assert.Equal(t, types.StatusUnresolved, rec.Status)
			},
		},
		{
			"unresolved without detail",
			types.ResolutionResult{Status: types.StatusUnresolved},
			nil,
			func(t *testing.T, rec types.LedgerRecord) {
				assert.NotEmpty(t, rec.Error)
			},
		},
		{
			"downloaded flag without path",
			types.ResolutionResult{Status: types.StatusResolved, Chosen: arxiv},
			&types.FetchOutcome{Downloaded: true},
			func(t *testing.T, rec types.LedgerRecord) {
				assert.False(t, rec.Downloaded)
				assert.NotEmpty(t, rec.Error)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(q, tt.res, tt.out)
			assert.Equal(t, q.Title, rec.PaperName)
			assert.Equal(t, q.SourceURL, rec.PaperURL)
			require.NoError(t, Validate(rec))
			tt.check(t, rec)
		})
	}
}

// --- SelectRetry ---

func TestSelectRetry(t *testing.T) {
	in := sampleInput()
	in.Papers = append(in.Papers, in.Papers[0]) // duplicate entry

	existing := &types.LedgerFile{Papers: []types.LedgerRecord{
		downloaded(in.Papers[0].PaperName, "a.pdf"),
		failed(in.Papers[1].PaperName, "timeout"),
	}}

	got := SelectRetry(in, existing)
	require.Len(t, got, 2)
	assert.Equal(t, in.Papers[1].PaperName, got[0].PaperName, "failed row is retried")
	assert.Equal(t, in.Papers[2].PaperName, got[1].PaperName, "missing row is retried")

	assert.Len(t, SelectRetry(sampleInput(), nil), 3)
}

// --- Summary ---

func TestSummarize(t *testing.T) {
	recs := []types.LedgerRecord{
		downloaded("a", "a.pdf"),
		{PaperName: "b", PDFPath: "b.pdf", Downloaded: true, Status: types.StatusResolvedManually, ManualSearch: true},
		{PaperName: "c", Error: "HTTP 404", Status: types.StatusResolved},
		failed("d", "no candidates found"),
		{PaperName: "legacy ok", PDFPath: "e.pdf", Downloaded: true},
		{PaperName: "legacy manual", PDFPath: "f.pdf", Downloaded: true, ManualSearch: true},
		{PaperName: "legacy failed", Error: "No results found on arXiv"},
	}
	s := Summarize(recs)
	assert.Equal(t, Summary{
		Total:            7,
		Resolved:         3,
		ResolvedManually: 2,
		Unresolved:       2,
		Downloaded:       4,
		Failed:           1,
	}, s)
}

// --- display ---

func TestRenderInputFile(t *testing.T) {
	in := sampleInput()
	var lf types.LedgerFile
	for _, p := range in.Papers {
		lf.Papers = append(lf.Papers, types.LedgerRecord{PaperName: p.PaperName, PaperURL: p.PaperURL})
	}
	lf.Metadata = in.Metadata

	var buf bytes.Buffer
	Render(&buf, lf, false)
	out := buf.String()

	assert.Contains(t, out, "RESEARCH PAPERS ON ADAM OPTIMIZER")
	assert.Contains(t, out, "1. Meta-AdaM")
	assert.Contains(t, out, "   URL: https://papers.nips.cc/a")
	assert.Contains(t, out, "Total papers: 3")
	assert.Contains(t, out, "Generated 2026-03-01 10:00:00 with gpt-4o")
	assert.NotContains(t, out, "Failed:", "input files have no status lines")
	assert.NotContains(t, out, "\033[", "no escape codes without color")
}

func TestRenderLedger(t *testing.T) {
	lf := types.LedgerFile{Papers: []types.LedgerRecord{
		{PaperName: "A", ArxivID: "2310.01234", PDFPath: "data/pdf/A.pdf", Downloaded: true, Status: types.StatusResolved},
		{PaperName: "B", Error: "no candidates found", Status: types.StatusUnresolved},
	}}
	var buf bytes.Buffer
	Render(&buf, lf, true)
	out := buf.String()

	assert.Contains(t, out, "RESEARCH PAPERS")
	assert.NotContains(t, out, "RESEARCH PAPERS ON")
	assert.Contains(t, out, "arXiv: 2310.01234")
	assert.Contains(t, out, "data/pdf/A.pdf")
	assert.Contains(t, out, "no candidates found")
	assert.Contains(t, out, ansiGreen)
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, types.LedgerFile{}, false)
	assert.Equal(t, "No papers found in the file\n", buf.String())
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, Summary{Total: 3, Resolved: 2, Unresolved: 1, Downloaded: 1, Failed: 1})
	out := buf.String()
	assert.Contains(t, out, "Outcome")
	assert.Contains(t, out, "resolved manually")
	assert.Regexp(t, `unresolved\s*\|\s*1`, out)
	assert.Regexp(t, `total\s*\|\s*3`, out)
}

func TestFormatJSONAndReadAny(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	l := New(path, sampleInput())
	require.NoError(t, l.Upsert(failed(sampleInput().Papers[0].PaperName, "x")))
	require.NoError(t, l.Save())

	lf, err := ReadAny(path)
	require.NoError(t, err)
	require.Len(t, lf.Papers, 1)

	var buf bytes.Buffer
	require.NoError(t, FormatJSON(&buf, lf))
	assert.Contains(t, buf.String(), `"error": "x"`)

	_, err = ReadAny(writeFile(t, dir, "bad.json", `{"items": []}`))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSaveInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json", "papers.json")
	require.NoError(t, SaveInput(path, types.InputFile{}))
	in, err := LoadInput(path)
	require.NoError(t, err)
	assert.Empty(t, in.Papers)
}
