// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

// --- stub provider ---

type stubProvider struct {
	name  string
	cands []types.Candidate
	err   error
	byID  map[string]types.Candidate
	calls int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Lookup(_ context.Context, _ string) ([]types.Candidate, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.cands, s.err
}

func (s *stubProvider) LookupID(_ context.Context, id string) (*types.Candidate, error) {
	if c, ok := s.byID[id]; ok {
		return &c, nil
	}
	return nil, ErrNotFound
}

// --- MultiProvider ---

func TestMultiProviderMergesAndRanks(t *testing.T) {
	arxiv := &stubProvider{name: "arxiv", cands: []types.Candidate{
		{Title: "Attention Is All You Need", ExternalID: "1706.03762", Source: "arxiv", RawScore: 1.0},
		{Title: "BERT", ExternalID: "1810.04805", Source: "arxiv", RawScore: 0.1},
	}}
	s2 := &stubProvider{name: "semantic_scholar", cands: []types.Candidate{
		{Title: "Attention is all you need.", ExternalID: "10.5555/3295222", Source: "semantic_scholar",
			PDFURL: "https://example.org/attention.pdf", RawScore: 0.8},
		{Title: "Transformer-XL", ExternalID: "1901.02860", Source: "semantic_scholar", RawScore: 0.5},
	}}

	m := &MultiProvider{Providers: []Provider{arxiv, s2}}
	got, err := m.Lookup(context.Background(), "attention")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "1706.03762", got[0].ExternalID, "arXiv ID kept over DOI")
	assert.Equal(t, "https://example.org/attention.pdf", got[0].PDFURL)
	assert.Equal(t, "arxiv,semantic_scholar", got[0].Source)
	assert.Equal(t, "Transformer-XL", got[1].Title)
	assert.Equal(t, "BERT", got[2].Title)
}

func TestMultiProviderPartialFailure(t *testing.T) {
	ok := &stubProvider{name: "arxiv", cands: []types.Candidate{{Title: "A", ExternalID: "2301.00001"}}}
	bad := &stubProvider{name: "openalex", err: errors.New("boom")}

	got, err := (&MultiProvider{Providers: []Provider{bad, ok}}).Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMultiProviderAllFail(t *testing.T) {
	e1 := statusErr("arxiv", http.StatusServiceUnavailable)
	e2 := errors.New("boom")
	m := &MultiProvider{Providers: []Provider{
		&stubProvider{name: "arxiv", err: e1},
		&stubProvider{name: "openalex", err: e2},
	}}

	_, err := m.Lookup(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, e2)
	assert.True(t, IsRateLimited(err))
}

func TestMultiProviderLookupID(t *testing.T) {
	m := &MultiProvider{Providers: []Provider{
		&stubProvider{name: "first"},
		&stubProvider{name: "second", byID: map[string]types.Candidate{"2310.17042": {Title: "ADOPT"}}},
	}}
	c, err := m.LookupID(context.Background(), "2310.17042")
	require.NoError(t, err)
	assert.Equal(t, "ADOPT", c.Title)

	_, err = m.LookupID(context.Background(), "9999.99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMultiProviderName(t *testing.T) {
	m := &MultiProvider{Providers: []Provider{&stubProvider{name: "arxiv"}, &stubProvider{name: "openalex"}}}
	assert.Equal(t, "arxiv+openalex", m.Name())
}

// --- Deduplicate ---

func TestDeduplicate(t *testing.T) {
	tests := []struct {
		name  string
		in    []types.Candidate
		wantN int
	}{
		{"same id", []types.Candidate{
			{Title: "Paper A", ExternalID: "2301.07041"},
			{Title: "Paper A (S2)", ExternalID: "2301.07041"},
		}, 1},
		{"same normalized title", []types.Candidate{
			{Title: "Graph Networks!", ExternalID: "10.1/x"},
			{Title: "graph networks", ExternalID: "2301.00001"},
		}, 1},
		{"distinct", []types.Candidate{
			{Title: "Paper A", ExternalID: "2301.07041"},
			{Title: "Paper B", ExternalID: "2301.99999"},
		}, 2},
		{"no ids no titles", []types.Candidate{{}, {}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Deduplicate(tt.in), tt.wantN)
		})
	}
}

func TestIsArxivID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2301.07041", true},
		{"2301.07041v3", true},
		{"arXiv:2301.12345", true},
		{"10.1145/1234567", false},
		{"hep-th/9901001", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsArxivID(tt.in))
		})
	}
}

func TestNew(t *testing.T) {
	cfg := types.DefaultPipelineConfig().Lookup
	providers, err := New(http.DefaultClient, cfg)
	require.NoError(t, err)
	require.Len(t, providers, 3)
	assert.Equal(t, NameArxiv, providers[0].Name())
	assert.Equal(t, NameSemanticScholar, providers[1].Name())
	assert.Equal(t, NameOpenAlex, providers[2].Name())

	cfg.Providers = []string{"crossref"}
	_, err = New(http.DefaultClient, cfg)
	assert.ErrorContains(t, err, "unknown lookup provider")

	cfg.Providers = nil
	_, err = New(http.DefaultClient, cfg)
	assert.Error(t, err)
}

func TestPositionScore(t *testing.T) {
	assert.Equal(t, 1.0, positionScore(0, 1))
	assert.Equal(t, 1.0, positionScore(0, 5))
	assert.InDelta(t, 0.1, positionScore(4, 5), 1e-9)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"attention"}, searchTerms("Attention is all you need"))
	assert.Equal(t, []string{"adopt", "beta2"}, searchTerms("ADOPT with β₂"))
	assert.Equal(t, []string{"the", "of"}, searchTerms("The of"))
	assert.Empty(t, searchTerms("?!"))
}

// --- CachedProvider ---

type memCache struct {
	entries map[string][]types.Candidate
	puts    int
}

func (m *memCache) Get(_ context.Context, provider, query string) ([]types.Candidate, bool, error) {
	c, ok := m.entries[provider+"|"+query]
	return c, ok, nil
}

func (m *memCache) Put(_ context.Context, provider, query string, cands []types.Candidate) error {
	m.puts++
	m.entries[provider+"|"+query] = cands
	return nil
}

func TestCachedProvider(t *testing.T) {
	inner := &stubProvider{name: "arxiv", cands: []types.Candidate{{Title: "A"}}}
	cache := &memCache{entries: map[string][]types.Candidate{}}
	p := &CachedProvider{Provider: inner, Cache: cache}

	for range 3 {
		got, err := p.Lookup(context.Background(), "a")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, "arxiv", p.Name())
}

func TestCachedProviderSkipsErrors(t *testing.T) {
	inner := &stubProvider{name: "arxiv", err: errors.New("down")}
	cache := &memCache{entries: map[string][]types.Candidate{}}
	p := &CachedProvider{Provider: inner, Cache: cache}

	_, err := p.Lookup(context.Background(), "a")
	require.Error(t, err)
	_, err = p.Lookup(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Zero(t, cache.puts)
}

func TestCachedProviderSkipsEmptyAnswers(t *testing.T) {
	inner := &stubProvider{name: "arxiv"}
	cache := &memCache{entries: map[string][]types.Candidate{}}
	p := &CachedProvider{Provider: inner, Cache: cache}

	for range 2 {
		got, err := p.Lookup(context.Background(), "a")
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Zero(t, cache.puts)

	inner.cands = []types.Candidate{{Title: "A"}}
	got, err := p.Lookup(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, cache.puts)
}
