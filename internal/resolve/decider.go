// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// DecisionKind enumerates what an operator can answer.
type DecisionKind int

const (
	// DecisionSkip leaves the paper unresolved.
	DecisionSkip DecisionKind = iota
	// DecisionIdentifier names the paper directly (arXiv ID or DOI).
	DecisionIdentifier
	// DecisionQuery supplies alternate search terms.
	DecisionQuery
	// DecisionCandidate picks one of the candidates shown.
	DecisionCandidate
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionIdentifier:
		return "identifier"
	case DecisionQuery:
		return "query"
	case DecisionCandidate:
		return "candidate"
	default:
		return "skip"
	}
}

// Decision is the answer of a Decider.
type Decision struct {
	Kind DecisionKind

	// Value is the identifier or the search terms.
	Value string

	// Index selects a shown candidate for DecisionCandidate.
	Index int
}

// Skip returns a skip decision.
func Skip() Decision { return Decision{Kind: DecisionSkip} }

// Identifier returns a decision naming the paper by identifier.
func Identifier(id string) Decision { return Decision{Kind: DecisionIdentifier, Value: id} }

// Query returns a decision supplying alternate search terms.
func Query(terms string) Decision { return Decision{Kind: DecisionQuery, Value: terms} }

// Pick returns a decision choosing the shown candidate at index i.
func Pick(i int) Decision { return Decision{Kind: DecisionCandidate, Index: i} }

// Decider is consulted when automatic resolution finds no acceptable
// candidate. shown holds the best rejected verdicts, highest score first.
type Decider interface {
	Decide(ctx context.Context, query types.PaperQuery, shown []types.MatchVerdict) (Decision, error)
}

// AutoSkip never resolves anything. It is the default for unattended runs.
type AutoSkip struct{}

// Decide always skips.
func (AutoSkip) Decide(context.Context, types.PaperQuery, []types.MatchVerdict) (Decision, error) {
	return Skip(), nil
}

// PromptDecider asks an operator on a terminal. End of input counts as skip.
type PromptDecider struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptDecider reads answers from in and writes prompts to out.
func NewPromptDecider(in io.Reader, out io.Writer) *PromptDecider {
	return &PromptDecider{in: bufio.NewReader(in), out: out}
}

// Decide shows the closest candidates and reads the operator's choice.
func (p *PromptDecider) Decide(ctx context.Context, q types.PaperQuery, shown []types.MatchVerdict) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Skip(), err
	}

	fmt.Fprintf(p.out, "\nManual search mode for paper:\n  %s\n", q.Title)
	if len(shown) > 0 {
		fmt.Fprintf(p.out, "\nClosest candidates (not accepted):\n")
		for i, v := range shown {
			fmt.Fprintf(p.out, "  %d) %s", i+1, v.Candidate.Title)
			if v.Candidate.ExternalID != "" {
				fmt.Fprintf(p.out, " [%s]", v.Candidate.ExternalID)
			}
			fmt.Fprintf(p.out, " score=%.2f", v.CompositeScore)
			if v.RejectionReason != types.RejectNone {
				fmt.Fprintf(p.out, " (%s)", v.RejectionReason)
			}
			fmt.Fprintln(p.out)
		}
	}

	for {
		fmt.Fprintf(p.out, "\nEnter one of the following:\n")
		fmt.Fprintf(p.out, "  1) arXiv ID or DOI (e.g., 2310.17042)\n")
		fmt.Fprintf(p.out, "  2) Search terms (e.g., adopt adam optimizer)\n")
		fmt.Fprintf(p.out, "  3) Skip this paper\n")
		if len(shown) > 0 {
			fmt.Fprintf(p.out, "  4) Accept one of the candidates above\n")
		}

		choice, err := p.ask("Your choice: ")
		if err != nil {
			return p.endOfInput(err)
		}

		switch choice {
		case "1":
			id, err := p.ask("Enter identifier: ")
			if err != nil {
				return p.endOfInput(err)
			}
			if id == "" {
				return Skip(), nil
			}
			return Identifier(id), nil
		case "2":
			terms, err := p.ask("Enter search terms: ")
			if err != nil {
				return p.endOfInput(err)
			}
			if terms == "" {
				return Skip(), nil
			}
			return Query(terms), nil
		case "3", "":
			return Skip(), nil
		case "4":
			if len(shown) == 0 {
				break
			}
			sel, err := p.ask("Select a candidate (number) or 0 to skip: ")
			if err != nil {
				return p.endOfInput(err)
			}
			n, convErr := strconv.Atoi(sel)
			if convErr != nil || n < 1 || n > len(shown) {
				return Skip(), nil
			}
			return Pick(n - 1), nil
		}
		fmt.Fprintf(p.out, "Invalid choice %q.\n", choice)
	}
}

func (p *PromptDecider) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *PromptDecider) endOfInput(err error) (Decision, error) {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(p.out)
		return Skip(), nil
	}
	return Skip(), fmt.Errorf("reading operator input: %w", err)
}
