// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"case and punctuation", "Attention Is All You Need!", "attention is all you need"},
		{"whitespace collapsed", "  Deep\t\tResidual \n Learning ", "deep residual learning"},
		{"greek letter", "β-VAE: Learning Basic Visual Concepts", "beta vae learning basic visual concepts"},
		{"subscript digit", "Any β₂", "any beta2"},
		{"accents dropped", "Café Résumé", "cafe resume"},
		{"ligature", "Eﬃcient", "efficient"},
		{"math operator", "∇-flow: Gradient Flows", "nabla flow gradient flows"},
		{"operator between words", "Sobolev∂Training", "sobolev partial training"},
		{"empty", "", ""},
		{"only punctuation", "?!:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	titles := []string{
		"ADOPT: Modified Adam Can Converge with Any β₂ with the Optimal Rate",
		"Meta-AdaM: A Meta-Learned Adaptive Optimizer with Momentum for Few-Shot Learning",
		"a",
		"",
	}
	for _, s := range titles {
		assert.Equal(t, 1.0, Similarity(s, s), "similarity(%q, %q)", s, s)
	}

	pairs := [][2]string{
		{"Latent Diffusion Model for DNA Sequence Generation", "DiscDiff: Latent Diffusion Model for DNA Sequence Generation"},
		{"Adam", "ADOPT"},
		{"", "something"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "symmetry for %q", p)
	}

	assert.Equal(t, 1.0, Similarity("Attention Is All You Need", "attention is all you need."))
	assert.Equal(t, 1.0, Similarity("Any β₂", "any beta2"))
	assert.Less(t, Similarity("∇-flow", "∂-flow"), 1.0)
	assert.Less(t, Similarity("Attention Is All You Need", "Attention Is Not All You Need"), 1.0)
	assert.Equal(t, 0.0, Similarity("", "something"))

	s := Similarity("Graph Neural Networks", "Graph Neural Nets")
	assert.Greater(t, s, 0.5)
	assert.Less(t, s, 1.0)
}

func TestContainmentCheck(t *testing.T) {
	tests := []struct {
		name     string
		needle   string
		haystack string
		want     bool
	}{
		{"prefixed title", "Latent Diffusion Model for DNA Sequence Generation",
			"DiscDiff: Latent Diffusion Model for DNA Sequence Generation", true},
		{"reverse direction", "DiscDiff: Latent Diffusion Model for DNA Sequence Generation",
			"Latent Diffusion Model for DNA Sequence Generation", false},
		{"single word", "Adam", "ADOPT: Modified Adam Can Converge", true},
		{"word boundary", "dam", "ADOPT: Modified Adam Can Converge", false},
		{"word set", "Converge Adam", "Modified Adam Can Converge", true},
		{"empty needle", "", "anything", false},
		{"case insensitive", "MODIFIED ADAM", "modified adam", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainmentCheck(tt.needle, tt.haystack); got != tt.want {
				t.Errorf("ContainmentCheck(%q, %q) = %v, want %v", tt.needle, tt.haystack, got, tt.want)
			}
		})
	}
}

func TestContainmentScore(t *testing.T) {
	assert.Equal(t, 1.0, ContainmentScore("Latent Diffusion Model", "DiscDiff: Latent Diffusion Model"))
	assert.Equal(t, 1.0, ContainmentScore("DiscDiff: Latent Diffusion Model", "Latent Diffusion Model"))
	assert.Equal(t, 0.0, ContainmentScore("", "Latent Diffusion Model"))

	// "alpha beta gamma" vs "alpha delta gamma epsilon": LCS 2 of 3.
	assert.InDelta(t, 2.0/3.0, ContainmentScore("alpha beta gamma", "alpha delta gamma epsilon"), 1e-9)
}

func TestImportantWordOverlap(t *testing.T) {
	target := "ADOPT: Modified Adam Can Converge with the Optimal Rate with Any Hyperparameters"
	candidate := "ADOPT: Modified Adam Can Converge with Any β₂ with the Optimal Rate"
	assert.Greater(t, ImportantWordOverlap(target, candidate), 0.4)
	assert.Equal(t, ImportantWordOverlap(target, candidate), ImportantWordOverlap(candidate, target))

	assert.Equal(t, 0.0, ImportantWordOverlap("Graph Neural Networks for Molecules", "Sparse Attention for Music"))
	assert.Equal(t, 1.0, ImportantWordOverlap("Molecule Generation", "molecule generation"))
	assert.Equal(t, 0.0, ImportantWordOverlap("", ""))

	// Shared generic vocabulary counts for less than shared rare words.
	generic := ImportantWordOverlap("deep learning transformers", "deep learning diffusion")
	rare := ImportantWordOverlap("diffusion transformers learning", "diffusion transformers model")
	assert.Less(t, generic, rare)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		candidate  string
		wantAccept bool
		wantReason types.RejectionReason
	}{
		{
			name:       "exact title",
			target:     "Meta-AdaM: A Meta-Learned Adaptive Optimizer with Momentum for Few-Shot Learning",
			candidate:  "Meta-AdaM: A Meta-Learned Adaptive Optimizer with Momentum for Few-Shot Learning",
			wantAccept: true,
		},
		{
			name:       "prefixed preprint title",
			target:     "Latent Diffusion Model for DNA Sequence Generation",
			candidate:  "DiscDiff: Latent Diffusion Model for DNA Sequence Generation",
			wantAccept: true,
		},
		{
			name:       "survey blacklisted",
			target:     "Adam Can Converge Without Any Modification On Update Rules",
			candidate:  "A Survey of Everything",
			wantReason: types.RejectBlacklisted,
		},
		{
			name:       "blacklist phrase also in target",
			target:     "A Survey of Graph Neural Networks",
			candidate:  "A Survey of Graph Neural Networks",
			wantAccept: true,
		},
		{
			name:       "candidate far longer",
			target:     "Deep Residual Learning for Image Recognition",
			candidate:  "Deep Residual Learning for Image Recognition: A Study of Very Long Titles That Keep Going Past Any Reasonable Length Limit",
			wantReason: types.RejectLengthRatio,
		},
		{
			name:       "unrelated title of similar length",
			target:     "Graph Neural Networks for Molecule Generation",
			candidate:  "Sparse Attention Transformers for Music Synthesis",
			wantReason: types.RejectLowWordOverlap,
		},
	}

	v := NewVerifier(types.DefaultMatchConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Verify(tt.target, types.Candidate{Title: tt.candidate})
			assert.Equal(t, tt.wantAccept, got.Accepted, "score %.3f", got.CompositeScore)
			assert.Equal(t, tt.wantReason, got.RejectionReason)
			assert.GreaterOrEqual(t, got.CompositeScore, 0.0)
			assert.LessOrEqual(t, got.CompositeScore, 1.0)
		})
	}
}

func TestVerifySurveyRejectedWithoutBlacklist(t *testing.T) {
	cfg := types.DefaultMatchConfig()
	cfg.Blacklist = []string{}
	v := NewVerifier(cfg)

	got := v.Verify(
		"Adam Can Converge Without Any Modification On Update Rules",
		types.Candidate{Title: "A Survey of Everything"},
	)
	assert.False(t, got.Accepted)
	assert.Equal(t, types.RejectLengthRatio, got.RejectionReason)
}

func TestVerifyExactScoresOne(t *testing.T) {
	v := NewVerifier(types.DefaultMatchConfig())
	got := v.Verify("Attention Is All You Need", types.Candidate{Title: "Attention is all you need"})
	assert.InDelta(t, 1.0, got.CompositeScore, 1e-9)
	assert.True(t, got.Accepted)
}

func TestVerifyBelowThresholdHasNoReason(t *testing.T) {
	cfg := types.DefaultMatchConfig()
	cfg.AcceptThreshold = 0.99
	v := NewVerifier(cfg)

	got := v.Verify(
		"ADOPT: Modified Adam Can Converge with the Optimal Rate with Any Hyperparameters",
		types.Candidate{Title: "ADOPT: Modified Adam Can Converge with Any β₂ with the Optimal Rate"},
	)
	assert.False(t, got.Accepted)
	assert.Equal(t, types.RejectNone, got.RejectionReason)
	assert.Less(t, got.CompositeScore, 0.99)
}

func TestVerifyWeightsNormalized(t *testing.T) {
	cfg := types.DefaultMatchConfig()
	cfg.Weights = types.MatchWeights{Similarity: 2}
	v := NewVerifier(cfg)

	got := v.Verify("Graph Neural Networks", types.Candidate{Title: "Graph Neural Nets"})
	assert.InDelta(t, got.Similarity, got.CompositeScore, 1e-9)
}
