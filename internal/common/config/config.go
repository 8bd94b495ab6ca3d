// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Catalog       CatalogConfig           `mapstructure:"catalog"`
	Opportunities OpportunityConfig       `mapstructure:"opportunities"`
	Qualification QualificationConfig     `mapstructure:"qualification"`
	Pricing       PricingConfig           `mapstructure:"pricing"`
	Session       SessionConfig           `mapstructure:"session"`
	GenAI         GenAIConfig             `mapstructure:"genai"`
	Server        ServerConfig            `mapstructure:"server"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL convenience field
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// --- Domain Configuration Sections ---

// CatalogConfig selects where the read-only product catalog and test pricing
// snapshots are loaded from at startup.
type CatalogConfig struct {
	Source          string `mapstructure:"source"` // "file" or "postgres"
	ProductsPath    string `mapstructure:"products_path"`
	TestPricingPath string `mapstructure:"test_pricing_path"`
}

// OpportunityConfig selects the opportunity source for the scan stage.
type OpportunityConfig struct {
	Source string `mapstructure:"source"` // "file" or "elasticsearch"
	Path   string `mapstructure:"path"`
	Index  string `mapstructure:"index"`
}

// QualificationConfig holds the business criteria used by the qualify stage.
type QualificationConfig struct {
	MinEstimatedValue  float64  `mapstructure:"min_estimated_value"`
	PreferredLocations []string `mapstructure:"preferred_locations"`
	MinDaysRemaining   int      `mapstructure:"min_days_remaining"`
	LLMAssisted        bool     `mapstructure:"llm_assisted"`
	TopN               int      `mapstructure:"top_n"`
}

// PricingConfig holds the cost-breakdown percentages and assumptions.
type PricingConfig struct {
	OverheadPct     float64 `mapstructure:"overhead_pct"`
	ContingencyPct  float64 `mapstructure:"contingency_pct"`
	DefaultLengthKM float64 `mapstructure:"default_length_km"`
}

// SessionConfig holds session store settings. TTL of zero means sessions are
// never expired automatically.
type SessionConfig struct {
	TTL int `mapstructure:"ttl"` // seconds
}

// GenAIConfig holds settings for the language-model service.
type GenAIConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// WorkerConfig holds the core settings applicable to every stage worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
