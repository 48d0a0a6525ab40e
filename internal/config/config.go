package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/funnel-cli/internal/classify"
	"github.com/sells-group/funnel-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Monday    MondayConfig    `yaml:"monday" mapstructure:"monday"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Roster    RosterConfig    `yaml:"roster" mapstructure:"roster"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the snapshot store backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// MondayConfig holds board API credentials and board wiring.
type MondayConfig struct {
	Token           string `yaml:"token" mapstructure:"token"`
	APIURL          string `yaml:"api_url" mapstructure:"api_url"`
	BoardID         string `yaml:"board_id" mapstructure:"board_id"`
	AccountsBoardID string `yaml:"accounts_board_id" mapstructure:"accounts_board_id"`

	// Optional column pins for the industry join; discovery runs when blank.
	AccountLinkColumnID     string `yaml:"account_link_column_id" mapstructure:"account_link_column_id"`
	AccountIndustryColumnID string `yaml:"account_industry_column_id" mapstructure:"account_industry_column_id"`

	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds Anthropic API settings for the ask command.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// RosterConfig lists the sellers tracked in aggregate views. File, when
// set, points at a standalone roster YAML that overrides the inline list.
type RosterConfig struct {
	File    string            `yaml:"file" mapstructure:"file"`
	Sellers []classify.Seller `yaml:"sellers" mapstructure:"sellers"`
}

// PipelineConfig configures normalization and retention behavior.
type PipelineConfig struct {
	IntroCutoff string         `yaml:"intro_cutoff" mapstructure:"intro_cutoff"`
	Retention   int            `yaml:"retention" mapstructure:"retention"`
	Strict      bool           `yaml:"strict" mapstructure:"strict"`
	SLADays     map[string]int `yaml:"sla_days" mapstructure:"sla_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int    `yaml:"port" mapstructure:"port"`
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks that the configuration required for a command mode is
// present. Errors name every missing field.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	checkCommon := func() {
		if c.Pipeline.IntroCutoff != "" {
			_, err := time.Parse("2006-01-02", c.Pipeline.IntroCutoff)
			check(err == nil, "pipeline.intro_cutoff must be YYYY-MM-DD")
		}
		check(c.Pipeline.Retention > 0, "pipeline.retention must be > 0")
	}

	switch mode {
	case "sync":
		check(c.Monday.Token != "", "monday.token is required")
		check(c.Monday.BoardID != "", "monday.board_id is required")
		checkCommon()
	case "ask":
		check(c.Anthropic.Key != "", "anthropic.key is required")
	case "serve":
		check(c.Server.Port > 0, "server.port must be > 0")
		checkCommon()
	case "import", "qa", "snapshots":
		checkCommon()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "funnel.db")
	v.SetDefault("monday.api_url", "https://api.monday.com/v2")
	v.SetDefault("monday.rate_limit", 5.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("pipeline.intro_cutoff", "2024-10-01")
	v.SetDefault("pipeline.retention", 52)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
