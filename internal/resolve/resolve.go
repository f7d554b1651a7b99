// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns a paper title into a verified candidate. It walks
// the query strategies lazily, verifies every new candidate, stops on a
// high-confidence match and falls back to an operator Decider when nothing
// is accepted.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/pdiddy/paper-fetch/internal/match"
	"github.com/pdiddy/paper-fetch/internal/search"
	"github.com/pdiddy/paper-fetch/internal/strategy"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// StrategyManual names lookups issued for operator-supplied terms.
const StrategyManual = "manual"

const (
	defaultHighConfidence  = 0.9
	defaultMaxManualRounds = 3
	defaultShowCandidates  = 5
)

// Resolver resolves paper queries against a lookup provider.
type Resolver struct {
	Provider search.Provider

	// IDs resolves operator-supplied identifiers. Optional.
	IDs search.IDLookup

	// Decider is consulted when Config.Manual is set; nil means AutoSkip.
	Decider Decider

	Verifier *match.Verifier
	Config   types.ResolveConfig
	Logger   *slog.Logger
}

// New returns a Resolver with a Verifier built from cfg.Match.
func New(provider search.Provider, ids search.IDLookup, decider Decider, cfg types.ResolveConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		Provider: provider,
		IDs:      ids,
		Decider:  decider,
		Verifier: match.NewVerifier(cfg.Match),
		Config:   cfg,
		Logger:   logger,
	}
}

// searchState accumulates verdicts across strategies and manual rounds.
type searchState struct {
	seen     map[string]bool
	best     *types.MatchVerdict
	rejected []types.MatchVerdict
	calls    int
	failures int
	lastErr  error
}

// Resolve produces exactly one ResolutionResult for q. Provider failures
// are absorbed: they count as empty answers and only surface in
// ErrorDetail when every lookup failed.
func (r *Resolver) Resolve(ctx context.Context, q types.PaperQuery) types.ResolutionResult {
	log := r.logger().With("paper", q.Title)
	res := types.ResolutionResult{Query: q, Status: types.StatusUnresolved}
	st := &searchState{seen: make(map[string]bool)}

	plan := strategy.Generate(q, r.Config.Strategy)
	if plan.Conference() {
		log.Debug("conference paper detected", "source_url", q.SourceURL)
	}
	r.run(ctx, log, q.Title, plan.All(), st)
	res.Attempts = st.calls

	if st.best != nil {
		log.Info("resolved", "id", st.best.Candidate.ExternalID, "score", st.best.CompositeScore, "lookups", st.calls)
		return accept(res, st.best, types.StatusResolved)
	}
	if err := ctx.Err(); err != nil {
		res.ErrorDetail = fmt.Sprintf("resolution interrupted: %v", err)
		return res
	}
	if st.calls > 0 && st.failures == st.calls {
		res.ErrorDetail = fmt.Sprintf("all lookups failed: %v", st.lastErr)
		log.Warn("all lookups failed", "lookups", st.calls, "error", st.lastErr)
		return res
	}

	if r.Config.Manual {
		res = r.manual(ctx, log, res, st)
		res.Attempts = st.calls
		return res
	}

	res.ErrorDetail = noMatchDetail(st)
	log.Info("unresolved", "lookups", st.calls, "rejected", len(st.rejected))
	return res
}

// run issues one lookup per strategy until a verdict reaches the
// high-confidence cutoff. Strategies after that point are never pulled
// from the sequence.
func (r *Resolver) run(ctx context.Context, log *slog.Logger, title string, strategies iter.Seq[strategy.Strategy], st *searchState) {
	cutoff := r.highConfidence()
	for s := range strategies {
		if ctx.Err() != nil {
			return
		}
		cands, err := r.lookup(ctx, s.Query)
		st.calls++
		if err != nil {
			st.failures++
			st.lastErr = err
			log.Info("lookup failed", "strategy", s.Name, "query", s.Query, "error", err)
			continue
		}
		log.Debug("lookup", "strategy", s.Name, "query", s.Query, "candidates", len(cands))

		for _, c := range cands {
			key := candidateKey(c)
			if st.seen[key] {
				continue
			}
			st.seen[key] = true

			v := r.Verifier.Verify(title, c)
			if !v.Accepted {
				st.rejected = append(st.rejected, v)
				continue
			}
			if st.best == nil || v.CompositeScore > st.best.CompositeScore {
				st.best = &v
			}
		}

		if st.best != nil && st.best.CompositeScore >= cutoff {
			log.Debug("high-confidence match, stopping", "strategy", s.Name, "score", st.best.CompositeScore)
			return
		}
	}
}

func (r *Resolver) lookup(ctx context.Context, query string) ([]types.Candidate, error) {
	if r.Config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.LookupTimeout)
		defer cancel()
	}
	return r.Provider.Lookup(ctx, query)
}

// manual runs up to MaxManualRounds operator rounds.
func (r *Resolver) manual(ctx context.Context, log *slog.Logger, res types.ResolutionResult, st *searchState) types.ResolutionResult {
	decider := r.Decider
	if decider == nil {
		decider = AutoSkip{}
	}
	rounds := r.Config.MaxManualRounds
	if rounds <= 0 {
		rounds = defaultMaxManualRounds
	}

	detail := noMatchDetail(st)
	for round := 1; round <= rounds; round++ {
		shown := r.closest(st)
		d, err := decider.Decide(ctx, res.Query, shown)
		if err != nil {
			res.ErrorDetail = fmt.Sprintf("manual resolution: %v", err)
			return res
		}
		log.Info("manual decision", "round", round, "kind", d.Kind.String(), "value", d.Value)

		switch d.Kind {
		case DecisionSkip:
			res.ErrorDetail = detail + "; skipped by operator"
			return res

		case DecisionCandidate:
			if d.Index < 0 || d.Index >= len(shown) {
				detail = fmt.Sprintf("candidate %d out of range", d.Index+1)
				continue
			}
			c := shown[d.Index].Candidate
			res.Chosen = &c
			res.Verdict = nil
			res.Status = types.StatusResolvedManually
			res.ErrorDetail = ""
			return res

		case DecisionIdentifier:
			c, err := r.lookupID(ctx, d.Value)
			st.calls++
			if err != nil {
				detail = fmt.Sprintf("identifier %q: %v", d.Value, err)
				log.Info("manual identifier lookup failed", "id", d.Value, "error", err)
				continue
			}
			res.Chosen = c
			res.Verdict = nil
			res.Status = types.StatusResolvedManually
			res.ErrorDetail = ""
			return res

		case DecisionQuery:
			failures := st.failures
			r.run(ctx, log, res.Query.Title, single(d.Value), st)
			if st.best != nil {
				return accept(res, st.best, types.StatusResolvedManually)
			}
			if err := ctx.Err(); err != nil {
				res.ErrorDetail = fmt.Sprintf("resolution interrupted: %v", err)
				return res
			}
			if st.failures > failures {
				detail = fmt.Sprintf("lookup for %q failed: %v", d.Value, st.lastErr)
			} else {
				detail = fmt.Sprintf("no candidate accepted for %q", d.Value)
			}
		}
	}

	res.ErrorDetail = fmt.Sprintf("%s; gave up after %d manual rounds", detail, rounds)
	return res
}

func (r *Resolver) lookupID(ctx context.Context, id string) (*types.Candidate, error) {
	if r.IDs == nil {
		return nil, errors.New("identifier lookup not available")
	}
	if r.Config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.LookupTimeout)
		defer cancel()
	}
	return r.IDs.LookupID(ctx, id)
}

// closest returns the best rejected verdicts, highest score first.
func (r *Resolver) closest(st *searchState) []types.MatchVerdict {
	n := r.Config.ShowCandidates
	if n <= 0 {
		n = defaultShowCandidates
	}
	sorted := slices.Clone(st.rejected)
	slices.SortStableFunc(sorted, func(a, b types.MatchVerdict) int {
		switch {
		case a.CompositeScore > b.CompositeScore:
			return -1
		case a.CompositeScore < b.CompositeScore:
			return 1
		}
		return 0
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (r *Resolver) highConfidence() float64 {
	if r.Config.HighConfidence > 0 {
		return r.Config.HighConfidence
	}
	return defaultHighConfidence
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func accept(res types.ResolutionResult, v *types.MatchVerdict, status types.ResolutionStatus) types.ResolutionResult {
	c := v.Candidate
	verdict := *v
	res.Chosen = &c
	res.Verdict = &verdict
	res.Status = status
	res.ErrorDetail = ""
	return res
}

func single(query string) iter.Seq[strategy.Strategy] {
	return func(yield func(strategy.Strategy) bool) {
		yield(strategy.Strategy{Name: StrategyManual, Query: query})
	}
}

func candidateKey(c types.Candidate) string {
	if c.ExternalID != "" {
		return "id:" + c.ExternalID
	}
	return "title:" + match.Normalize(c.Title)
}

func noMatchDetail(st *searchState) string {
	if len(st.rejected) == 0 {
		return "no candidates found"
	}
	best := st.rejected[0]
	for _, v := range st.rejected[1:] {
		if v.CompositeScore > best.CompositeScore {
			best = v
		}
	}
	detail := fmt.Sprintf("no candidate accepted (best %q scored %.2f", best.Candidate.Title, best.CompositeScore)
	if best.RejectionReason != types.RejectNone {
		detail += ", " + string(best.RejectionReason)
	}
	return detail + ")"
}
