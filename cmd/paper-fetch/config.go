// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-fetch/internal/discover"
	"github.com/pdiddy/paper-fetch/internal/secrets"
	"github.com/pdiddy/paper-fetch/pkg/types"
)

// setDefaults registers every config key with its default so the config
// file and PAPER_FETCH_* environment variables can override any of them.
func setDefaults() {
	d := types.DefaultPipelineConfig()

	viper.SetDefault("lookup.timeout", d.Lookup.Timeout)
	viper.SetDefault("lookup.user_agent", d.Lookup.UserAgent)
	viper.SetDefault("lookup.providers", d.Lookup.Providers)
	viper.SetDefault("lookup.max_results", d.Lookup.MaxResults)
	viper.SetDefault("lookup.arxiv_interval", d.Lookup.ArxivInterval)
	viper.SetDefault("lookup.semantic_scholar_api_key", "")
	viper.SetDefault("lookup.openalex_email", "")
	viper.SetDefault("lookup.cache_dir", d.Lookup.CacheDir)
	viper.SetDefault("lookup.cache_ttl", d.Lookup.CacheTTL)

	viper.SetDefault("resolve.match.weights.similarity", d.Resolve.Match.Weights.Similarity)
	viper.SetDefault("resolve.match.weights.containment", d.Resolve.Match.Weights.Containment)
	viper.SetDefault("resolve.match.weights.word_overlap", d.Resolve.Match.Weights.WordOverlap)
	viper.SetDefault("resolve.match.accept_threshold", d.Resolve.Match.AcceptThreshold)
	viper.SetDefault("resolve.match.min_word_overlap", d.Resolve.Match.MinWordOverlap)
	viper.SetDefault("resolve.match.min_length_ratio", d.Resolve.Match.MinLengthRatio)
	viper.SetDefault("resolve.match.max_length_ratio", d.Resolve.Match.MaxLengthRatio)
	viper.SetDefault("resolve.match.blacklist", d.Resolve.Match.Blacklist)
	viper.SetDefault("resolve.strategy.prefix_words", d.Resolve.Strategy.PrefixWords)
	viper.SetDefault("resolve.strategy.short_prefix_words", d.Resolve.Strategy.ShortPrefixWords)
	viper.SetDefault("resolve.strategy.distinctive_words", d.Resolve.Strategy.DistinctiveWords)
	viper.SetDefault("resolve.strategy.conference_domains", d.Resolve.Strategy.ConferenceDomains)
	viper.SetDefault("resolve.high_confidence", d.Resolve.HighConfidence)
	viper.SetDefault("resolve.lookup_timeout", d.Resolve.LookupTimeout)
	viper.SetDefault("resolve.manual", d.Resolve.Manual)
	viper.SetDefault("resolve.max_manual_rounds", d.Resolve.MaxManualRounds)
	viper.SetDefault("resolve.show_candidates", d.Resolve.ShowCandidates)

	viper.SetDefault("acquisition.timeout", d.Acquisition.Timeout)
	viper.SetDefault("acquisition.user_agent", d.Acquisition.UserAgent)
	viper.SetDefault("acquisition.download_delay", d.Acquisition.DownloadDelay)
	viper.SetDefault("acquisition.output_dir", d.Acquisition.OutputDir)
	viper.SetDefault("acquisition.verify_pdf", d.Acquisition.VerifyPDF)
	viper.SetDefault("acquisition.write_metadata", d.Acquisition.WriteMetadata)
	viper.SetDefault("acquisition.openalex_email", "")

	viper.SetDefault("discovery.backend", d.Discovery.Backend)
	viper.SetDefault("discovery.model", d.Discovery.Model)
	viper.SetDefault("discovery.api_key", "")
	viper.SetDefault("discovery.max_tokens", d.Discovery.MaxTokens)

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")
}

// loadConfig binds the command's flags to their config keys and decodes
// the merged configuration. Flags are bound per invocation because several
// commands share flag names.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (types.PipelineConfig, error) {
	for flag, key := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return types.PipelineConfig{}, fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return types.PipelineConfig{}, err
		}
	}

	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, configErr(fmt.Errorf("decoding configuration: %w", err))
	}
	applySecrets(&cfg, loadedSecrets)
	cfg.Resolve.HighConfidence = max(cfg.Resolve.HighConfidence, cfg.Resolve.Match.AcceptThreshold)
	if err := validate(cfg); err != nil {
		return types.PipelineConfig{}, configErr(err)
	}
	return cfg, nil
}

// applySecrets fills credentials the configuration left empty.
func applySecrets(cfg *types.PipelineConfig, s map[string]string) {
	if cfg.Lookup.SemanticScholarAPIKey == "" {
		cfg.Lookup.SemanticScholarAPIKey = secrets.Lookup(s, secrets.SemanticScholarKey)
	}
	if cfg.Lookup.OpenAlexEmail == "" {
		cfg.Lookup.OpenAlexEmail = secrets.Lookup(s, secrets.OpenAlexEmail)
	}
	if cfg.Acquisition.OpenAlexEmail == "" {
		cfg.Acquisition.OpenAlexEmail = cfg.Lookup.OpenAlexEmail
	}
	if cfg.Discovery.APIKey == "" {
		switch cfg.Discovery.Backend {
		case discover.BackendAnthropic:
			cfg.Discovery.APIKey = secrets.Lookup(s, secrets.AnthropicKey)
		default:
			cfg.Discovery.APIKey = secrets.Lookup(s, secrets.OpenAIKey)
		}
	}
}

func validate(cfg types.PipelineConfig) error {
	if t := cfg.Resolve.Match.AcceptThreshold; t < 0 || t > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %g", t)
	}
	if cfg.Acquisition.OutputDir == "" {
		return fmt.Errorf("output directory is empty")
	}
	if len(cfg.Lookup.Providers) == 0 {
		return fmt.Errorf("no lookup providers configured")
	}
	return nil
}
