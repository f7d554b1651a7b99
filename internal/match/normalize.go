// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores how likely two paper titles name the same work and
// verifies lookup candidates against a requested title.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// greekNames spells out Greek letters the way titles are usually typed in
// ASCII ("β-VAE" vs "beta-VAE").
var greekNames = map[rune]string{
	'α': "alpha", 'β': "beta", 'γ': "gamma", 'δ': "delta", 'ε': "epsilon",
	'ϵ': "epsilon", 'ζ': "zeta", 'η': "eta", 'θ': "theta", 'ϑ': "theta",
	'ι': "iota", 'κ': "kappa", 'λ': "lambda", 'μ': "mu", 'ν': "nu",
	'ξ': "xi", 'ο': "omicron", 'π': "pi", 'ρ': "rho", 'σ': "sigma",
	'ς': "sigma", 'τ': "tau", 'υ': "upsilon", 'φ': "phi", 'ϕ': "phi",
	'χ': "chi", 'ψ': "psi", 'ω': "omega",
}

// symbolNames spells out math operators that show up in titles, so
// "∇-flow" and "∂-flow" stay distinct after punctuation is dropped.
var symbolNames = map[rune]string{
	'∇': "nabla", '∂': "partial", '∞': "infinity", '∑': "sum", '∏': "prod",
	'∫': "integral", '√': "sqrt", '≤': "leq", '≥': "geq", '≠': "neq",
	'≈': "approx", '∀': "forall", '∃': "exists", '⊕': "oplus", '⊗': "otimes",
	'×': "times",
}

// stopwords never count as important words.
var stopwords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "with", "for", "of",
	"to", "by", "from", "at", "as", "is", "are", "be", "via", "can", "any",
	"its", "into", "we", "do", "does", "how", "what", "when", "why", "not",
	"than", "this", "that", "our", "their", "vs", "versus", "toward", "towards",
	"all", "you", "need", "using", "based",
)

// genericTerms are words that appear in a large share of ML titles. They
// still count as important words but carry less weight.
var genericTerms = toSet(
	"learning", "model", "models", "neural", "network", "networks", "deep",
	"training", "data", "optimizer", "optimizers", "optimization", "method",
	"methods", "approach", "large", "language", "efficient", "new",
	"framework", "analysis", "algorithm", "algorithms", "improved", "robust",
)

func toSet(words ...string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}

// Normalize folds a title into a comparable form: Greek letters and math
// operators spelled out, compatibility characters decomposed (₂ → 2, ﬁ → fi), accents
// dropped, lower case, punctuation replaced by spaces, whitespace collapsed.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if name, ok := greekNames[unicode.ToLower(r)]; ok {
			b.WriteString(name)
			continue
		}
		if name, ok := symbolNames[r]; ok {
			b.WriteString(" " + name + " ")
			continue
		}
		b.WriteRune(r)
	}

	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(fold, b.String())
	if err != nil {
		folded = b.String()
	}

	b.Reset()
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// ImportantWords returns the normalized tokens of s that are not stopwords,
// in title order, without duplicates.
func ImportantWords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range Tokens(s) {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// IsStopword reports whether the normalized word w is a stopword.
func IsStopword(w string) bool { return stopwords[w] }

// IsGeneric reports whether the normalized word w is common ML vocabulary.
func IsGeneric(w string) bool { return genericTerms[w] }

// wordWeight favors longer and rarer tokens.
func wordWeight(w string) float64 {
	weight := float64(utf8.RuneCountInString(w))
	if genericTerms[w] {
		weight /= 2
	}
	return weight
}
