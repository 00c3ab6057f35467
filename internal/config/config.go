package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reoring/revstream"
	"github.com/reoring/revstream/i18n"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
}

// StoreConfig configures the persistence backend (memory, sqlite or postgres).
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RateLimit    float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // submissions per second; 0 disables
	RateBurst    int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ValidationConfig configures revenue-stream validation.
type ValidationConfig struct {
	FailFast        bool   `yaml:"fail_fast" mapstructure:"fail_fast"`
	StrictUnknown   bool   `yaml:"strict_unknown" mapstructure:"strict_unknown"`
	CheckStreamRefs bool   `yaml:"check_stream_refs" mapstructure:"check_stream_refs"`
	Language        string `yaml:"language" mapstructure:"language"`
	MaxDepth        int    `yaml:"max_depth" mapstructure:"max_depth"`
}

// ParseOpt projects the validation settings onto parse options. Duplicate
// keys are always rejected at the process boundary.
func (v ValidationConfig) ParseOpt(maxBytes int64) revstream.ParseOpt {
	opt := revstream.ParseOpt{
		Strictness: revstream.Strictness{OnDuplicateKey: revstream.Error},
		MaxDepth:   v.MaxDepth,
		MaxBytes:   maxBytes,
		FailFast:   v.FailFast,
	}
	if v.StrictUnknown {
		opt.Unknown = revstream.UnknownStrict
	}
	return opt
}

// Load reads configuration from file and environment. An empty path looks
// for revstream.yaml in the working directory.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("revstream")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("REVSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("validation.fail_fast", false)
	v.SetDefault("validation.strict_unknown", false)
	v.SetDefault("validation.check_stream_refs", false)
	v.SetDefault("validation.language", "en")
	v.SetDefault("validation.max_depth", 32)

	// Read config file (optional when no explicit path is given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on.
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.MaxBodyBytes <= 0 {
			problems = append(problems, "server.max_body_bytes must be positive")
		}
		problems = append(problems, c.storeProblems()...)
	case "migrate":
		problems = append(problems, c.storeProblems()...)
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) storeProblems() []string {
	switch c.Store.Driver {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for driver " + c.Store.Driver}
		}
		return nil
	default:
		return []string{"store.driver must be one of memory, sqlite, postgres"}
	}
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

// ApplyLanguage sets the default issue message language.
func ApplyLanguage(cfg ValidationConfig) {
	i18n.SetLanguage(cfg.Language)
}
