// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

const bannerWidth = 80

// ANSI escape codes used when color is enabled.
const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiUnderline = "\033[4m"
	ansiHeader    = "\033[95m"
	ansiBlue      = "\033[94m"
	ansiGreen     = "\033[92m"
	ansiYellow    = "\033[93m"
	ansiRed       = "\033[91m"
)

// UseColor reports whether f is a terminal and NO_COLOR is unset.
func UseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type painter bool

func (p painter) paint(s string, codes ...string) string {
	if !p || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + ansiReset
}

// Render writes a human-readable listing of f: a banner naming the query,
// one numbered entry per paper and, for ledger rows, the download status.
func Render(w io.Writer, f types.LedgerFile, color bool) {
	p := painter(color)

	if len(f.Papers) == 0 {
		fmt.Fprintln(w, p.paint("No papers found in the file", ansiYellow))
		return
	}

	title := "RESEARCH PAPERS"
	if f.Metadata != nil && f.Metadata.Query != "" {
		title = "RESEARCH PAPERS ON " + strings.ToUpper(f.Metadata.Query)
	}
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(w, p.paint(rule, ansiBold, ansiHeader))
	fmt.Fprintln(w, p.paint(center(title, bannerWidth), ansiBold, ansiHeader))
	fmt.Fprintln(w, p.paint(rule, ansiBold, ansiHeader))
	fmt.Fprintln(w)

	results := HasResults(f.Papers)
	for i, rec := range f.Papers {
		fmt.Fprintln(w, p.paint(fmt.Sprintf("%d. %s", i+1, rec.PaperName), ansiBold, ansiGreen))
		if rec.PaperURL != "" {
			fmt.Fprintf(w, "%s%s\n", p.paint("   URL: ", ansiBlue), p.paint(rec.PaperURL, ansiBlue, ansiUnderline))
		}
		if results {
			renderStatus(w, p, rec)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, p.paint(fmt.Sprintf("Total papers: %d", len(f.Papers)), ansiBold))
	if f.Metadata != nil && f.Metadata.Timestamp != "" {
		model := ""
		if f.Metadata.Model != "" {
			model = " with " + f.Metadata.Model
		}
		fmt.Fprintf(w, "Generated %s%s\n", f.Metadata.Timestamp, model)
	}
}

func renderStatus(w io.Writer, p painter, rec types.LedgerRecord) {
	if rec.ArxivID != "" {
		fmt.Fprintf(w, "   arXiv: %s\n", rec.ArxivID)
	}
	manual := ""
	if rec.ManualSearch {
		manual = " (manual)"
	}
	if rec.Downloaded {
		fmt.Fprintf(w, "   %s %s%s\n", p.paint("Downloaded:", ansiGreen), rec.PDFPath, manual)
		return
	}
	fmt.Fprintf(w, "   %s %s\n", p.paint("Failed:", ansiRed), rec.Error)
}

// HasResults reports whether the rows come from a ledger rather than a
// plain input file.
func HasResults(recs []types.LedgerRecord) bool {
	for _, r := range recs {
		if r.Downloaded || r.Error != "" || r.Status != "" {
			return true
		}
	}
	return false
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

// RenderSummary writes the run counts as a small table.
func RenderSummary(w io.Writer, s Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Outcome", "Papers"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range []struct {
		label string
		n     int
	}{
		{"resolved", s.Resolved},
		{"resolved manually", s.ResolvedManually},
		{"unresolved", s.Unresolved},
		{"downloaded", s.Downloaded},
		{"failed", s.Failed},
		{"total", s.Total},
	} {
		table.Append([]string{row.label, strconv.Itoa(row.n)})
	}
	table.Render()
}

// FormatJSON writes f as indented JSON.
func FormatJSON(w io.Writer, f types.LedgerFile) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// ReadAny reads an input file or a ledger for display. Both share the
// {papers, metadata} layout.
func ReadAny(path string) (types.LedgerFile, error) {
	if _, err := LoadInput(path); err != nil {
		return types.LedgerFile{}, err
	}
	lf, err := Load(path)
	if err != nil {
		return types.LedgerFile{}, err
	}
	return *lf, nil
}
