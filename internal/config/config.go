package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database   Database   `mapstructure:"database"`
	Embeddings Embeddings `mapstructure:"embeddings"`
	Chat       Chat       `mapstructure:"chat"`
	Fetch      Fetch      `mapstructure:"fetch"`
	Ingest     Ingest     `mapstructure:"ingest"`
	Retrieval  Retrieval  `mapstructure:"retrieval"`
	Rank       Rank       `mapstructure:"rank"`
	Server     Server     `mapstructure:"server"`
	Logging    Logging    `mapstructure:"logging"`
}

// Database holds Postgres connection configuration
type Database struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
}

// Embeddings holds embedding provider configuration
type Embeddings struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	Model        string `mapstructure:"model"`
	Dimension    int    `mapstructure:"dimension"`
	BatchSize    int    `mapstructure:"batch_size"`
}

// Chat holds chat/completion provider configuration
type Chat struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Fetch holds HTTP egress configuration
type Fetch struct {
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	PerHost        int           `mapstructure:"per_host"`
	GlobalInFlight int           `mapstructure:"global_in_flight"`
}

// Ingest holds pipeline and scheduler configuration
type Ingest struct {
	Interval           time.Duration `mapstructure:"interval"`
	SourceWorkers      int           `mapstructure:"source_workers"`
	ScraperMaxPages    int           `mapstructure:"scraper_max_pages"`
	AutoBriefCountries []string      `mapstructure:"auto_brief_countries"`
}

// Retrieval holds vector search configuration
type Retrieval struct {
	K             int     `mapstructure:"k"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
}

// Rank holds top-stories ranking data, kept as configuration rather than
// compiled-in literals so deployments can tune the source tiers.
type Rank struct {
	Tier1Hosts       []string `mapstructure:"tier1_hosts"`
	Tier2Hosts       []string `mapstructure:"tier2_hosts"`
	PriorityKeywords []string `mapstructure:"priority_keywords"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level string `mapstructure:"level"`
}

var globalConfig *Config

// Load loads the configuration from .env, an optional YAML file and the
// environment, in that order of increasing precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	// Configure viper
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".gridbrief")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.SetEnvPrefix("GRIDBRIEF")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("database.max_conns", 10)

	viper.SetDefault("embeddings.provider", "openai")
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.dimension", 1536)
	viper.SetDefault("embeddings.batch_size", 100)

	viper.SetDefault("chat.provider", "openai")
	viper.SetDefault("chat.model", "gpt-4o-mini")
	viper.SetDefault("chat.timeout", "60s")

	viper.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; gridbrief/1.0; +https://github.com/gridbrief)")
	viper.SetDefault("fetch.timeout", "20s")
	viper.SetDefault("fetch.per_host", 4)
	viper.SetDefault("fetch.global_in_flight", 32)

	viper.SetDefault("ingest.interval", "30m")
	viper.SetDefault("ingest.source_workers", 8)
	viper.SetDefault("ingest.scraper_max_pages", 3)
	viper.SetDefault("ingest.auto_brief_countries", []string{"US", "GB", "DE", "CN", "IN", "AU"})

	viper.SetDefault("retrieval.k", 8)
	viper.SetDefault("retrieval.min_similarity", 0.5)

	viper.SetDefault("rank.tier1_hosts", []string{"reuters.com", "bloomberg.com", "ft.com", "wsj.com"})
	viper.SetDefault("rank.tier2_hosts", []string{"theguardian.com", "bbc.com", "bbc.co.uk", "cnn.com"})
	viper.SetDefault("rank.priority_keywords", []string{
		"announcement", "announced", "announce",
		"policy", "regulation", "law",
		"breakthrough", "innovation",
		"investment", "funding",
		"target", "goal", "commitment",
	})

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.shutdown_timeout", "10s")

	viper.SetDefault("logging.level", "info")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("database.url", []string{
		"DATABASE_URL",
		"GRIDBRIEF_DATABASE_URL",
	})

	bindEnvKeys("embeddings.api_key", []string{
		"OPENAI_API_KEY",
		"GRIDBRIEF_EMBEDDINGS_API_KEY",
	})

	bindEnvKeys("chat.api_key", []string{
		"OPENAI_API_KEY",
		"GRIDBRIEF_CHAT_API_KEY",
	})

	bindEnvKeys("chat.gemini_api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
	})

	bindEnvKeys("embeddings.gemini_api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
	})
}

// bindEnvKeys binds a config key to several environment variable aliases.
func bindEnvKeys(configKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(configKey, value)
			return
		}
	}
}

// validateConfig rejects values the rest of the system cannot work with.
func validateConfig(config *Config) error {
	if config.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings.dimension must be positive, got %d", config.Embeddings.Dimension)
	}
	if config.Embeddings.BatchSize <= 0 || config.Embeddings.BatchSize > 2048 {
		return fmt.Errorf("embeddings.batch_size must be in (0, 2048], got %d", config.Embeddings.BatchSize)
	}
	if config.Retrieval.K < 0 {
		return fmt.Errorf("retrieval.k must not be negative, got %d", config.Retrieval.K)
	}
	if config.Retrieval.MinSimilarity < 0 || config.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("retrieval.min_similarity must be in [0, 1], got %f", config.Retrieval.MinSimilarity)
	}
	if config.Fetch.PerHost <= 0 {
		return fmt.Errorf("fetch.per_host must be positive, got %d", config.Fetch.PerHost)
	}
	if config.Fetch.GlobalInFlight < config.Fetch.PerHost {
		return fmt.Errorf("fetch.global_in_flight (%d) must be at least fetch.per_host (%d)",
			config.Fetch.GlobalInFlight, config.Fetch.PerHost)
	}
	if config.Ingest.SourceWorkers <= 0 {
		return fmt.Errorf("ingest.source_workers must be positive, got %d", config.Ingest.SourceWorkers)
	}
	if config.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be positive, got %d", config.Database.MaxConns)
	}
	return nil
}
