package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single external call (lookup or download).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-fetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// MatchWeights are the coefficients of the composite verification score.
// They are normalized to sum to one before use.
type MatchWeights struct {
	Similarity  float64 `json:"similarity" yaml:"similarity" mapstructure:"similarity"`
	Containment float64 `json:"containment" yaml:"containment" mapstructure:"containment"`
	WordOverlap float64 `json:"word_overlap" yaml:"word_overlap" mapstructure:"word_overlap"`
}

// MatchConfig holds the candidate verifier settings.
type MatchConfig struct {
	Weights MatchWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// AcceptThreshold is the minimum composite score for acceptance (default 0.7).
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold" mapstructure:"accept_threshold"`

	// MinWordOverlap rejects candidates sharing too few important words (default 0.4).
	MinWordOverlap float64 `json:"min_word_overlap" yaml:"min_word_overlap" mapstructure:"min_word_overlap"`

	// MinLengthRatio and MaxLengthRatio bound candidate/target normalized
	// length (default 0.5 and 2.0).
	MinLengthRatio float64 `json:"min_length_ratio" yaml:"min_length_ratio" mapstructure:"min_length_ratio"`
	MaxLengthRatio float64 `json:"max_length_ratio" yaml:"max_length_ratio" mapstructure:"max_length_ratio"`

	// Blacklist lists phrases that disqualify a candidate when they appear
	// in its title but not in the requested one.
	Blacklist []string `json:"blacklist" yaml:"blacklist" mapstructure:"blacklist"`
}

// StrategyConfig controls query strategy generation.
type StrategyConfig struct {
	// PrefixWords is the token count of the leading-words strategy (default 8).
	PrefixWords int `json:"prefix_words" yaml:"prefix_words" mapstructure:"prefix_words"`

	// ShortPrefixWords is the token count of the shorter prefix (default 5).
	ShortPrefixWords int `json:"short_prefix_words" yaml:"short_prefix_words" mapstructure:"short_prefix_words"`

	// DistinctiveWords is how many rare words the distinctive strategy keeps (default 3).
	DistinctiveWords int `json:"distinctive_words" yaml:"distinctive_words" mapstructure:"distinctive_words"`

	// ConferenceDomains are source URL hosts that mark a conference paper.
	ConferenceDomains []string `json:"conference_domains" yaml:"conference_domains" mapstructure:"conference_domains"`
}

// ResolveConfig holds settings for the resolution controller.
type ResolveConfig struct {
	Match    MatchConfig    `json:"match" yaml:"match" mapstructure:"match"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// HighConfidence stops the strategy sequence early (default 0.9).
	HighConfidence float64 `json:"high_confidence" yaml:"high_confidence" mapstructure:"high_confidence"`

	// LookupTimeout bounds one provider lookup.
	LookupTimeout time.Duration `json:"lookup_timeout" yaml:"lookup_timeout" mapstructure:"lookup_timeout"`

	// Manual enables the operator decider when automatic resolution fails.
	Manual bool `json:"manual" yaml:"manual" mapstructure:"manual"`

	// MaxManualRounds caps alternate-query rounds per paper (default 3).
	MaxManualRounds int `json:"max_manual_rounds" yaml:"max_manual_rounds" mapstructure:"max_manual_rounds"`

	// ShowCandidates is how many rejected candidates the operator sees (default 5).
	ShowCandidates int `json:"show_candidates" yaml:"show_candidates" mapstructure:"show_candidates"`
}

// LookupConfig holds settings for the external lookup providers.
type LookupConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Providers names the enabled backends in priority order
	// ("arxiv", "semantic_scholar", "openalex").
	Providers []string `json:"providers" yaml:"providers" mapstructure:"providers"`

	// MaxResults is the number of candidates requested per query (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// ArxivInterval is the minimum spacing between arXiv API calls (default 3s).
	ArxivInterval time.Duration `json:"arxiv_interval" yaml:"arxiv_interval" mapstructure:"arxiv_interval"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// OpenAlexEmail is sent as mailto for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`

	// CacheDir holds the lookup cache database. Empty disables caching.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`

	// CacheTTL is the maximum age of a cached lookup (default 7 days).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// AcquisitionConfig holds settings for the fetch executor.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DownloadDelay is the pause between consecutive papers (default 3s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// OutputDir receives the PDFs.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// VerifyPDF parses each download to confirm it is a readable PDF.
	VerifyPDF bool `json:"verify_pdf" yaml:"verify_pdf" mapstructure:"verify_pdf"`

	// WriteMetadata writes a YAML record per paper under OutputDir/metadata.
	WriteMetadata bool `json:"write_metadata" yaml:"write_metadata" mapstructure:"write_metadata"`

	// OpenAlexEmail is sent when resolving DOIs to open-access copies.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Backend selects the API: "openai" or "anthropic".
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the AI model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Lookup      LookupConfig      `json:"lookup" yaml:"lookup" mapstructure:"lookup"`
	Resolve     ResolveConfig     `json:"resolve" yaml:"resolve" mapstructure:"resolve"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Discovery   AIConfig          `json:"discovery" yaml:"discovery" mapstructure:"discovery"`
}

// DefaultUserAgent identifies the tool to remote services.
const DefaultUserAgent = "paper-fetch/0.1 (+https://github.com/pdiddy/paper-fetch)"

// DefaultBlacklist holds the phrases of known false-positive titles.
var DefaultBlacklist = []string{
	"a comprehensive survey",
	"a survey of",
	"a survey on",
	"introduction to",
	"tutorial on",
	"existence of weak solutions",
	"continuity equation",
	"darcy law",
	"electronic health records",
	"multimodal electronic",
}

// DefaultConferenceDomains lists hosts of conference proceedings.
var DefaultConferenceDomains = []string{
	"neurips.cc",
	"nips.cc",
	"proceedings.neurips",
	"proceedings.nips",
	"proceedings.mlr.press",
	"openreview.net",
	"aclanthology.org",
	"openaccess.thecvf.com",
	"ojs.aaai.org",
	"ijcai.org",
	"iclr.cc",
	"icml.cc",
}

// DefaultMatchConfig returns the verifier defaults.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Weights: MatchWeights{
			Similarity:  0.3,
			Containment: 0.4,
			WordOverlap: 0.3,
		},
		AcceptThreshold: 0.7,
		MinWordOverlap:  0.4,
		MinLengthRatio:  0.5,
		MaxLengthRatio:  2.0,
		Blacklist:       append([]string(nil), DefaultBlacklist...),
	}
}

// DefaultStrategyConfig returns the strategy generator defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		PrefixWords:       8,
		ShortPrefixWords:  5,
		DistinctiveWords:  3,
		ConferenceDomains: append([]string(nil), DefaultConferenceDomains...),
	}
}

// DefaultPipelineConfig returns the configuration used when no config file
// or flag overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Lookup: LookupConfig{
			HTTPConfig:    HTTPConfig{Timeout: 30 * time.Second, UserAgent: DefaultUserAgent},
			Providers:     []string{"arxiv", "semantic_scholar", "openalex"},
			MaxResults:    10,
			ArxivInterval: 3 * time.Second,
			CacheDir:      "data/cache",
			CacheTTL:      7 * 24 * time.Hour,
		},
		Resolve: ResolveConfig{
			Match:           DefaultMatchConfig(),
			Strategy:        DefaultStrategyConfig(),
			HighConfidence:  0.9,
			LookupTimeout:   30 * time.Second,
			MaxManualRounds: 3,
			ShowCandidates:  5,
		},
		Acquisition: AcquisitionConfig{
			HTTPConfig:    HTTPConfig{Timeout: 60 * time.Second, UserAgent: DefaultUserAgent},
			DownloadDelay: 3 * time.Second,
			OutputDir:     "data/pdf",
		},
		Discovery: AIConfig{
			Backend:   "openai",
			Model:     "gpt-4o",
			MaxTokens: 4096,
		},
	}
}
