package config

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMissingSetting is returned when a setting a run depends on is absent.
var ErrMissingSetting = eris.New("config: missing required setting")

// Config holds the full application configuration.
type Config struct {
	Benchmark BenchmarkConfig `yaml:"benchmark" mapstructure:"benchmark"`
	Input     LocationConfig  `yaml:"input" mapstructure:"input"`
	Output    LocationConfig  `yaml:"output" mapstructure:"output"`
	WorkDir   string          `yaml:"workdir" mapstructure:"workdir"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// BenchmarkConfig names and describes the benchmark being produced.
type BenchmarkConfig struct {
	Name             string `yaml:"name" mapstructure:"name"`
	SystemPrompt     string `yaml:"system_prompt" mapstructure:"system_prompt"`
	FullDescription  string `yaml:"full_description" mapstructure:"full_description"`
	ShortDescription string `yaml:"short_description" mapstructure:"short_description"`
	Category         string `yaml:"category" mapstructure:"category"`
}

// LocationConfig points at an input archive or an output prefix. URL wins;
// otherwise Bucket and Key compose an s3:// URL.
type LocationConfig struct {
	URL    string `yaml:"url" mapstructure:"url"`
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Key    string `yaml:"key" mapstructure:"key"`
}

// Resolve returns the location as a URL, or "" when it is not configured.
func (l LocationConfig) Resolve() string {
	if l.URL != "" {
		return l.URL
	}
	if l.Bucket == "" || l.Key == "" {
		return ""
	}
	return "s3://" + l.Bucket + "/" + strings.TrimPrefix(l.Key, "/")
}

// GenerateConfig configures the external dataset generation command.
type GenerateConfig struct {
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
	// ConfigTemplate optionally replaces the built-in generation config template.
	ConfigTemplate string `yaml:"config_template" mapstructure:"config_template"`
	Model          string `yaml:"model" mapstructure:"model"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	MaxConcurrent  int    `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
}

// StorageConfig configures the transfer backends.
type StorageConfig struct {
	S3    S3Config    `yaml:"s3" mapstructure:"s3"`
	HTTP  HTTPConfig  `yaml:"http" mapstructure:"http"`
	FTP   FTPConfig   `yaml:"ftp" mapstructure:"ftp"`
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// S3Config configures the S3 client. Empty keys use the default AWS chain.
type S3Config struct {
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// HTTPConfig configures HTTP(S) input downloads.
type HTTPConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// FTPConfig configures FTP input downloads.
type FTPConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RetryConfig controls retries of transient transfer failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
}

// StoreConfig selects the run ledger backend.
type StoreConfig struct {
	// Driver is sqlite, postgres or none.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv binds config keys to the process environment names the
// container entrypoint has always used.
var legacyEnv = map[string]string{
	"benchmark.name":          "BENCHMARK_NAME",
	"benchmark.system_prompt": "BENCHMARK_SYSTEM_PROMPT",
	"input.bucket":            "INPUT_S3_BUCKET",
	"input.key":               "INPUT_S3_KEY",
	"output.bucket":           "OUTPUT_S3_BUCKET",
	"output.key":              "OUTPUT_S3_KEY",
	"workdir":                 "WORKDIR",
}

const envPrefix = "BENCH"

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	// Defaults
	v.SetDefault("benchmark.name", "")
	v.SetDefault("benchmark.system_prompt", "")
	v.SetDefault("benchmark.full_description", "Dataset for evaluating built-in knowledge")
	v.SetDefault("benchmark.short_description", "Fact-based knowledge")
	v.SetDefault("benchmark.category", "YourBench")
	v.SetDefault("input.url", "")
	v.SetDefault("input.bucket", "")
	v.SetDefault("input.key", "")
	v.SetDefault("output.url", "")
	v.SetDefault("output.bucket", "")
	v.SetDefault("output.key", "")
	v.SetDefault("workdir", "")
	v.SetDefault("generate.command", "yourbench")
	v.SetDefault("generate.args", []string{"run"})
	v.SetDefault("generate.config_template", "")
	v.SetDefault("generate.model", "openai/gpt-4.1")
	v.SetDefault("generate.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("generate.max_concurrent_requests", 10)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.http.user_agent", "bench-export/1.0")
	v.SetDefault("storage.http.timeout_secs", 600)
	v.SetDefault("storage.http.rate_per_host", 5)
	v.SetDefault("storage.ftp.timeout_secs", 30)
	v.SetDefault("storage.retry.max_attempts", 3)
	v.SetDefault("storage.retry.initial_backoff_ms", 500)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "bench-export.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// runSettings is the view of Config a full run requires. The field names in
// messages are the legacy environment names operators set.
type runSettings struct {
	BenchmarkName string `validate:"required,excludesall=/\\"`
	SystemPrompt  string `validate:"required"`
	Input         string `validate:"required"`
	Output        string `validate:"required"`
	WorkDir       string `validate:"required"`
}

var settingNames = map[string]string{
	"BenchmarkName": "BENCHMARK_NAME",
	"SystemPrompt":  "BENCHMARK_SYSTEM_PROMPT",
	"Input":         "INPUT_S3_BUCKET/INPUT_S3_KEY (or input.url)",
	"Output":        "OUTPUT_S3_BUCKET/OUTPUT_S3_KEY (or output.url)",
	"WorkDir":       "WORKDIR",
}

var validate = validator.New()

// ValidateRun checks that every setting a full run depends on is present.
// All problems are reported at once.
func (c *Config) ValidateRun() error {
	s := runSettings{
		BenchmarkName: c.Benchmark.Name,
		SystemPrompt:  c.Benchmark.SystemPrompt,
		Input:         c.Input.Resolve(),
		Output:        c.Output.Resolve(),
		WorkDir:       c.WorkDir,
	}
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "config: validate run settings")
	}
	var missing, invalid []string
	for _, fe := range verrs {
		name := settingNames[fe.StructField()]
		if fe.Tag() == "required" {
			missing = append(missing, name)
		} else {
			invalid = append(invalid, name)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		return eris.Wrapf(ErrMissingSetting, "config: set %s", strings.Join(missing, ", "))
	}
	return eris.Errorf("config: invalid %s: must not contain path separators", strings.Join(invalid, ", "))
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
