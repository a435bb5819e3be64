// Package config loads run settings from tarjuman.yaml, TARJUMAN_* environment
// variables and command-line flags, plus the separate deployment gates file.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/tarjuman/internal/excellence"
	"github.com/valpere/tarjuman/internal/guards"
)

const envPrefix = "TARJUMAN"

// ScopeAll selects every section.
const ScopeAll = "all"

type Config struct {
	SectionsDir  string `mapstructure:"sections"`
	OutDir       string `mapstructure:"out"`
	GatesFile    string `mapstructure:"gates"`
	SectionScope string `mapstructure:"section_scope"`
	SourceLang   string `mapstructure:"source_lang"`
	TargetLang   string `mapstructure:"target_lang"`
	Concurrency  int    `mapstructure:"concurrency"`
	MaxRetries   int    `mapstructure:"max_retries"`

	ExcellenceRail bool `mapstructure:"excellence_rail"`
	CheckLanguage  bool `mapstructure:"check_language"`

	Service  string        `mapstructure:"service"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DBPath   string        `mapstructure:"db"`
	LogLevel string        `mapstructure:"log_level"`
	LogFmt   string        `mapstructure:"log_format"`

	MetricsAddr string `mapstructure:"metrics_addr"`

	Scripture  ScriptureConfig  `mapstructure:"scripture"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Google     GoogleConfig     `mapstructure:"google"`
	Refiner    RefinerConfig    `mapstructure:"refiner"`

	Excellence excellence.Targets `mapstructure:"excellence"`
}

type ScriptureConfig struct {
	URL      string `mapstructure:"url"`
	CacheDir string `mapstructure:"cache_dir"`
}

type OllamaConfig struct {
	URL    string   `mapstructure:"url"`
	Models []string `mapstructure:"models"`
}

type OpenRouterConfig struct {
	APIKey string   `mapstructure:"api_key"`
	Models []string `mapstructure:"models"`
}

type OpenAIConfig struct {
	APIKey  string  `mapstructure:"api_key"`
	BaseURL string  `mapstructure:"base_url"`
	Model   string  `mapstructure:"model"`
	RPS     float64 `mapstructure:"rps"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
	ProjectID   string `mapstructure:"project_id"`
}

// RefinerConfig selects the LLM used for tone refinement. An empty Service
// leaves only the rule-based pass.
type RefinerConfig struct {
	Service string `mapstructure:"service"`
	Model   string `mapstructure:"model"`
	URL     string `mapstructure:"url"`
}

// NewViper returns a viper instance with defaults, config search paths and
// environment bindings in place. SECTION_SCOPE is honoured with and without
// the TARJUMAN_ prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("tarjuman")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tarjuman")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("section_scope", envPrefix+"_SECTION_SCOPE", "SECTION_SCOPE")
	_ = v.BindEnv("openrouter.api_key", envPrefix+"_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openai.api_key", envPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("google.credentials", envPrefix+"_GOOGLE_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")
	return v
}

func setDefaults(v *viper.Viper) {
	t := excellence.DefaultTargets()
	v.SetDefault("sections", "./sections")
	v.SetDefault("out", "./out")
	v.SetDefault("section_scope", ScopeAll)
	v.SetDefault("source_lang", "ar")
	v.SetDefault("target_lang", "en")
	v.SetDefault("concurrency", 6)
	v.SetDefault("max_retries", 3)
	v.SetDefault("excellence_rail", false)
	v.SetDefault("check_language", true)
	v.SetDefault("service", "ollama")
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("db", "./data/tarjuman.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("scripture.url", "http://localhost:8787/scripture")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("refiner.url", "http://localhost:11434")
	v.SetDefault("refiner.model", "llama3.2")
	v.SetDefault("excellence.max_grade", t.MaxGrade)
	v.SetDefault("excellence.max_long_sentence_pct", t.MaxLongSentencePct)
	v.SetDefault("excellence.long_sentence_words", t.LongSentenceWords)
}

// Load reads the config file if one is found and unmarshals the merged view.
// A missing file is not an error.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 6
	}
	return cfg, nil
}

// ParseScope turns a SECTION_SCOPE value into a sorted, deduplicated id list.
// Empty and "all" return nil, meaning no restriction.
func ParseScope(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, ScopeAll) {
		return nil
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if strings.EqualFold(id, ScopeAll) {
			return nil
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadGates reads deployment thresholds from a JSON or YAML file. The keys
// may sit at the top level or under a "gates" key. Any failure falls back to
// guards.DefaultConfig with a warning.
func LoadGates(path string, logger *zap.Logger) guards.GuardConfig {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(path) == "" {
		return guards.DefaultConfig()
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("deployment gates unreadable, using defaults", zap.String("path", path), zap.Error(err))
		return guards.DefaultConfig()
	}

	sub := v
	if v.IsSet("gates") {
		if s := v.Sub("gates"); s != nil {
			sub = s
		}
	}
	var cfg guards.GuardConfig
	if err := sub.Unmarshal(&cfg); err != nil {
		logger.Warn("deployment gates malformed, using defaults", zap.String("path", path), zap.Error(err))
		return guards.DefaultConfig()
	}
	cfg = cfg.WithDefaults()
	logger.Info("deployment gates loaded",
		zap.String("path", path),
		zap.Float64("lpr_min", cfg.LPRMin),
		zap.Float64("strict_lpr", cfg.StrictLPR),
		zap.Float64("coverage_pass", cfg.CoveragePass))
	return cfg
}
