package config

// Config represents the full application configuration.
type Config struct {
	Providers     map[string]ProviderConfig `yaml:"providers"`
	HTTP          HTTPConfig                `yaml:"http"`
	Consensus     ConsensusConfig           `yaml:"consensus"`
	Source        SourceConfig              `yaml:"source"`
	Output        OutputConfig              `yaml:"output"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
	Review        ReviewConfig              `yaml:"review"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL,omitempty"`

	// HTTP overrides (optional, use global HTTP config if not set)
	Timeout        *string `yaml:"timeout,omitempty"`
	MaxRetries     *int    `yaml:"maxRetries,omitempty"`
	InitialBackoff *string `yaml:"initialBackoff,omitempty"`
	MaxBackoff     *string `yaml:"maxBackoff,omitempty"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// ConsensusConfig tunes the cross-provider grouping heuristics.
type ConsensusConfig struct {
	// LineWindow is the maximum line distance at which two findings with
	// line numbers can still be considered the same issue.
	LineWindow int `yaml:"lineWindow"`

	// TokenOverlapThreshold is the minimum word overlap ratio used when one
	// or both findings carry no line number.
	TokenOverlapThreshold float64 `yaml:"tokenOverlapThreshold"`

	// SeverityWindow is the maximum severity rank distance for grouping.
	SeverityWindow int `yaml:"severityWindow"`
}

// SourceConfig configures where reviewed code is loaded from.
type SourceConfig struct {
	// RootDir confines file loading; paths escaping it are rejected.
	RootDir string `yaml:"rootDir"`

	// RepositoryDir is the git repository used for ref-based loading.
	RepositoryDir string `yaml:"repositoryDir"`
}

// OutputConfig configures result writers.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // json, markdown
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging, metrics, and cost tracking.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures request/response logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`         // debug, info, error
	Format        string `yaml:"format"`        // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"` // Redact API keys in logs
}

// MetricsConfig configures performance and cost metrics tracking.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ReviewConfig configures the review prompt behavior.
type ReviewConfig struct {
	// Instructions are custom instructions included in all review prompts.
	Instructions string `yaml:"instructions"`
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.HTTP = chooseHTTP(base.HTTP, overlay.HTTP)
	result.Consensus = chooseConsensus(base.Consensus, overlay.Consensus)
	result.Source = chooseSource(base.Source, overlay.Source)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)
	result.Review = chooseReview(base.Review, overlay.Review)
	result.Providers = mergeProviders(base.Providers, overlay.Providers)

	return result
}

func mergeProviders(base, overlay map[string]ProviderConfig) map[string]ProviderConfig {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]ProviderConfig, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

func chooseHTTP(base, overlay HTTPConfig) HTTPConfig {
	if overlay.Timeout != "" || overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.MaxBackoff != "" || overlay.BackoffMultiplier != 0 {
		return overlay
	}
	return base
}

func chooseConsensus(base, overlay ConsensusConfig) ConsensusConfig {
	if overlay.LineWindow != 0 || overlay.TokenOverlapThreshold != 0 || overlay.SeverityWindow != 0 {
		return overlay
	}
	return base
}

func chooseSource(base, overlay SourceConfig) SourceConfig {
	if overlay.RootDir != "" || overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" || overlay.Format != "" {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base

	if overlay.Logging.Enabled || overlay.Logging.Level != "" || overlay.Logging.Format != "" {
		result.Logging = overlay.Logging
	}
	if overlay.Metrics.Enabled {
		result.Metrics = overlay.Metrics
	}

	return result
}

func chooseReview(base, overlay ReviewConfig) ReviewConfig {
	result := base
	if overlay.Instructions != "" {
		result.Instructions = overlay.Instructions
	}
	return result
}
