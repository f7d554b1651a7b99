// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package strategy derives the ordered lookup queries tried for one paper
// title, from most to least specific.
package strategy

import (
	"iter"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/paper-fetch/internal/match"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// Strategy names.
const (
	Exact       = "exact"
	Prefix      = "prefix"
	ShortPrefix = "short-prefix"
	Distinctive = "distinctive"
	MainConcept = "main-concept"
	Stripped    = "stripped"
	KeyTerms    = "key-terms"
	Raw         = "raw"
)

// Strategy is one lookup query and the rule that produced it.
type Strategy struct {
	Name  string
	Query string
}

// Plan is the strategy sequence for one title. It is immutable; every call
// to All starts a fresh pass.
type Plan struct {
	title      string
	conference bool
	cfg        types.StrategyConfig
}

// Generate builds the plan for q. Conference-specific strategies are added
// when the title or its source URL points at a known venue.
func Generate(q types.PaperQuery, cfg types.StrategyConfig) Plan {
	def := types.DefaultStrategyConfig()
	if cfg.PrefixWords <= 0 {
		cfg.PrefixWords = def.PrefixWords
	}
	if cfg.ShortPrefixWords <= 0 {
		cfg.ShortPrefixWords = def.ShortPrefixWords
	}
	if cfg.DistinctiveWords <= 0 {
		cfg.DistinctiveWords = def.DistinctiveWords
	}
	if cfg.ConferenceDomains == nil {
		cfg.ConferenceDomains = def.ConferenceDomains
	}
	return Plan{
		title:      q.Title,
		conference: DetectConference(q.Title, q.SourceURL, cfg.ConferenceDomains),
		cfg:        cfg,
	}
}

// Conference reports whether the plan includes venue-specific strategies.
func (p Plan) Conference() bool { return p.conference }

// All yields the strategies lazily: each query is computed only when the
// consumer asks for it. Queries already yielded are skipped, and the
// sequence is never empty: when every rule produces nothing, the raw title
// is yielded.
func (p Plan) All() iter.Seq[Strategy] {
	type rule struct {
		name  string
		build func() string
	}
	rules := []rule{
		{Exact, func() string { return match.Normalize(p.title) }},
		{Prefix, func() string { return firstWords(p.title, p.cfg.PrefixWords) }},
		{ShortPrefix, func() string { return firstWords(p.title, p.cfg.ShortPrefixWords) }},
		{Distinctive, func() string { return DistinctiveWords(p.title, p.cfg.DistinctiveWords) }},
	}
	if p.conference {
		rules = append(rules,
			rule{MainConcept, func() string { return mainConcept(p.title) }},
			rule{Stripped, func() string { return stripVenue(p.title) }},
			rule{KeyTerms, func() string { return keyTerms(p.title) }},
		)
	}

	return func(yield func(Strategy) bool) {
		seen := make(map[string]bool)
		for _, r := range rules {
			q := r.build()
			if q == "" || seen[q] {
				continue
			}
			seen[q] = true
			if !yield(Strategy{Name: r.name, Query: q}) {
				return
			}
		}
		if len(seen) == 0 {
			yield(Strategy{Name: Raw, Query: strings.TrimSpace(p.title)})
		}
	}
}

// Queries collects the plan into a slice.
func (p Plan) Queries() []Strategy {
	return slices.Collect(p.All())
}

func firstWords(title string, n int) string {
	words := match.Tokens(title)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// DistinctiveWords picks the n words of title most likely to be rare in a
// search index and returns them in title order. Stopwords and common ML
// vocabulary are skipped; longer words rank higher, and acronyms, mixed
// case names and words carrying digits get a bonus.
func DistinctiveWords(title string, n int) string {
	type word struct {
		text  string
		pos   int
		score int
	}
	var words []word
	seen := make(map[string]bool)
	raw := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, tok := range raw {
		w := match.Normalize(tok)
		if w == "" || strings.Contains(w, " ") || seen[w] || match.IsStopword(w) || match.IsGeneric(w) {
			continue
		}
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		seen[w] = true
		score := utf8.RuneCountInString(w)
		if isMarked(tok) {
			score += 4
		}
		words = append(words, word{text: w, pos: i, score: score})
	}

	slices.SortStableFunc(words, func(a, b word) int { return b.score - a.score })
	if len(words) > n {
		words = words[:n]
	}
	slices.SortFunc(words, func(a, b word) int { return a.pos - b.pos })

	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.text
	}
	return strings.Join(out, " ")
}

// isMarked reports acronyms ("ADOPT"), inner capitals ("DiscDiff") and
// tokens with digits ("β₂", "GPT4").
func isMarked(tok string) bool {
	for i, r := range []rune(tok) {
		if unicode.IsNumber(r) {
			return true
		}
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

var conceptSeparators = []string{" for ", " with ", " using ", " via ", " in ", " on "}

// mainConcept returns the part of the title before its first connective,
// e.g. "Meta-AdaM: A Meta-Learned Adaptive Optimizer" for "... with Momentum ...".
func mainConcept(title string) string {
	lower := strings.ToLower(title)
	cut := -1
	for _, sep := range conceptSeparators {
		if i := strings.Index(lower, sep); i > 0 && (cut < 0 || i < cut) {
			cut = i
		}
	}
	if cut < 0 {
		return ""
	}
	concept := match.Normalize(lower[:cut])
	if len(strings.Fields(concept)) < 2 {
		return ""
	}
	return concept
}

var (
	venuePattern = regexp.MustCompile(`(?i)\b(neurips|nips|icml|iclr|cvpr|iccv|eccv|acl|emnlp|naacl|aaai|ijcai|aistats|colt|kdd)\b`)
	yearPattern  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	noisePattern = regexp.MustCompile(`(?i)\b(proceedings of( the)?|conference on|oral|spotlight|poster|workshop|track|camera[- ]ready)\b`)
)

// stripVenue removes venue names, years and proceedings boilerplate.
func stripVenue(title string) string {
	s := venuePattern.ReplaceAllString(title, " ")
	s = yearPattern.ReplaceAllString(s, " ")
	s = noisePattern.ReplaceAllString(s, " ")
	return match.Normalize(s)
}

// keyTerms keeps every non-stopword longer than four characters.
func keyTerms(title string) string {
	var out []string
	for _, w := range match.ImportantWords(title) {
		if utf8.RuneCountInString(w) > 4 {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// DetectConference reports whether a paper comes from conference
// proceedings, judged by its source URL host or venue markers in the title.
func DetectConference(title, sourceURL string, domains []string) bool {
	u := strings.ToLower(sourceURL)
	for _, d := range domains {
		if d != "" && strings.Contains(u, strings.ToLower(d)) {
			return true
		}
	}
	return venuePattern.MatchString(title) || strings.Contains(strings.ToLower(title), "proceedings of")
}
