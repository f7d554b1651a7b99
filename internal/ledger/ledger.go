// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger reads paper input files and maintains the per-run result
// ledger (download_results.json). The ledger is rewritten atomically after
// every paper so an interrupted run keeps its progress.
package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-fetch/internal/match"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// DefaultFileName is the ledger written next to the input file.
const DefaultFileName = "download_results.json"

// ErrMalformedInput marks an input or ledger file that cannot be used.
var ErrMalformedInput = errors.New("malformed input file")

// DefaultPath returns the ledger path for an input file.
func DefaultPath(inputPath string) string {
	return filepath.Join(filepath.Dir(inputPath), DefaultFileName)
}

// Key returns the ledger key of a paper title. Titles that differ only in
// case, punctuation or Unicode form share a key.
func Key(title string) string {
	if k := match.Normalize(title); k != "" {
		return k
	}
	return strings.TrimSpace(title)
}

// LoadInput reads an input file. The file must be a JSON object with a
// "papers" array whose entries all carry a paper_name.
func LoadInput(path string) (types.InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.InputFile{}, fmt.Errorf("reading input: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return types.InputFile{}, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	if _, ok := probe["papers"]; !ok {
		return types.InputFile{}, fmt.Errorf("%w: %s: missing \"papers\" key", ErrMalformedInput, path)
	}

	var in types.InputFile
	if err := json.Unmarshal(data, &in); err != nil {
		return types.InputFile{}, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	for i, p := range in.Papers {
		if strings.TrimSpace(p.PaperName) == "" {
			return types.InputFile{}, fmt.Errorf("%w: %s: paper %d has no paper_name", ErrMalformedInput, path, i+1)
		}
	}
	return in, nil
}

// SaveInput writes an input file atomically.
func SaveInput(path string, in types.InputFile) error {
	if in.Papers == nil {
		in.Papers = []types.PaperEntry{}
	}
	return writeJSON(path, in)
}

// Load reads a ledger file.
func Load(path string) (*types.LedgerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf types.LedgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	return &lf, nil
}

// Ledger holds one row per paper, in input order.
type Ledger struct {
	path     string
	order    []string
	rows     map[string]types.LedgerRecord
	metadata *types.RunMetadata
}

// New returns an empty ledger that will be written to path. Rows are
// ordered by the position of their paper in input.
func New(path string, input types.InputFile) *Ledger {
	l := &Ledger{
		path:     path,
		rows:     make(map[string]types.LedgerRecord),
		metadata: input.Metadata,
	}
	seen := make(map[string]bool)
	for _, p := range input.Papers {
		k := Key(p.PaperName)
		if !seen[k] {
			seen[k] = true
			l.order = append(l.order, k)
		}
	}
	return l
}

// Open is New seeded with the rows already stored at path, if any. Stored
// rows for papers that are not in input are kept after the input's papers.
func Open(path string, input types.InputFile) (*Ledger, error) {
	l := New(path, input)
	existing, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	for _, rec := range existing.Papers {
		k := Key(rec.PaperName)
		if _, ok := l.rows[k]; ok {
			continue
		}
		if !l.known(k) {
			l.order = append(l.order, k)
		}
		l.rows[k] = rec
	}
	if l.metadata == nil {
		l.metadata = existing.Metadata
	}
	return l, nil
}

func (l *Ledger) known(k string) bool {
	for _, o := range l.order {
		if o == k {
			return true
		}
	}
	return false
}

// Path returns the file the ledger is saved to.
func (l *Ledger) Path() string { return l.path }

// Upsert stores rec under its paper's key, replacing an earlier row.
func (l *Ledger) Upsert(rec types.LedgerRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}
	k := Key(rec.PaperName)
	if !l.known(k) {
		l.order = append(l.order, k)
	}
	l.rows[k] = rec
	return nil
}

// Get returns the row for title.
func (l *Ledger) Get(title string) (types.LedgerRecord, bool) {
	rec, ok := l.rows[Key(title)]
	return rec, ok
}

// Records returns the stored rows in order. Papers without a row yet are
// left out.
func (l *Ledger) Records() []types.LedgerRecord {
	out := make([]types.LedgerRecord, 0, len(l.rows))
	for _, k := range l.order {
		if rec, ok := l.rows[k]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// File returns the on-disk representation of the ledger.
func (l *Ledger) File() types.LedgerFile {
	return types.LedgerFile{Papers: l.Records(), Metadata: l.metadata}
}

// Save writes the ledger to its path through a temporary file and rename,
// so readers never observe a partial file.
func (l *Ledger) Save() error {
	return writeJSON(l.path, l.File())
}

// writeJSON encodes v with two-space indentation and without HTML
// escaping, then atomically replaces path.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(buf.Bytes())
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
