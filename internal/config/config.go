package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Equilibrium/internal/scoring"
)

type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Database     DatabaseConfig      `yaml:"database"`
	Hermes       HermesConfig        `yaml:"hermes"`
	Selection    SelectionConfig     `yaml:"selection"`
	Stakeholders []StakeholderConfig `yaml:"stakeholders"`
	Logging      LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	RateLimit   int    `yaml:"rate_limit_per_minute"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
	// MemoryCapacity bounds the in-memory audit log used when URL is empty.
	MemoryCapacity int `yaml:"memory_capacity"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type SelectionConfig struct {
	FairnessThreshold float64 `yaml:"fairness_threshold"`
	FairnessPenalty   float64 `yaml:"fairness_penalty"`
	Workers           int     `yaml:"workers"`
	ParetoEnabled     bool    `yaml:"pareto_enabled"`
	MaxCandidates     int     `yaml:"max_candidates"`
	MaxSlateSize      int     `yaml:"max_slate_size"`
}

type StakeholderConfig struct {
	Name    string             `yaml:"name"`
	Color   string             `yaml:"color"`
	Weights map[string]float64 `yaml:"weights"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StakeholderSpecs converts the configured stakeholders, in file order.
func (c *Config) StakeholderSpecs() []scoring.StakeholderSpec {
	specs := make([]scoring.StakeholderSpec, 0, len(c.Stakeholders))
	for _, s := range c.Stakeholders {
		specs = append(specs, scoring.StakeholderSpec{
			Name:    s.Name,
			Weights: s.Weights,
			Color:   s.Color,
		})
	}
	return specs
}

// SelectorOptions maps the selection section onto scoring options.
func (c *Config) SelectorOptions() scoring.Options {
	return scoring.Options{
		FairnessThreshold: c.Selection.FairnessThreshold,
		FairnessPenalty:   c.Selection.FairnessPenalty,
		Workers:           c.Selection.Workers,
		ParetoEnabled:     c.Selection.ParetoEnabled,
	}
}

// Validate checks value ranges that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Selection.FairnessThreshold < 0 {
		return fmt.Errorf("selection.fairness_threshold must be >= 0, got %f", c.Selection.FairnessThreshold)
	}
	if c.Selection.FairnessPenalty < 0 || c.Selection.FairnessPenalty > 1 {
		return fmt.Errorf("selection.fairness_penalty must be in [0, 1], got %f", c.Selection.FairnessPenalty)
	}
	if c.Selection.Workers < 1 {
		return fmt.Errorf("selection.workers must be >= 1, got %d", c.Selection.Workers)
	}
	if c.Selection.MaxCandidates < 0 || c.Selection.MaxSlateSize < 0 {
		return fmt.Errorf("selection limits must be >= 0")
	}
	if c.Database.MemoryCapacity < 1 {
		return fmt.Errorf("database.memory_capacity must be >= 1, got %d", c.Database.MemoryCapacity)
	}
	if _, err := scoring.NewStakeholders(c.StakeholderSpecs()); err != nil {
		return fmt.Errorf("stakeholders: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

func defaultStakeholders() []StakeholderConfig {
	var out []StakeholderConfig
	for _, s := range scoring.DefaultStakeholderSpecs() {
		out = append(out, StakeholderConfig{Name: s.Name, Color: s.Color, Weights: s.Weights})
	}
	return out
}

func Load(path string) (*Config, error) {
	opts := scoring.DefaultOptions()
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Database: DatabaseConfig{
			MemoryCapacity: 10000,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Selection: SelectionConfig{
			FairnessThreshold: opts.FairnessThreshold,
			FairnessPenalty:   opts.FairnessPenalty,
			Workers:           opts.Workers,
			ParetoEnabled:     opts.ParetoEnabled,
			MaxCandidates:     1000,
			MaxSlateSize:      500,
		},
		Stakeholders: defaultStakeholders(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EQUILIBRIUM_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("EQUILIBRIUM_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("EQUILIBRIUM_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("EQUILIBRIUM_TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.TrustProxy = b
		}
	}
	if v := os.Getenv("EQUILIBRIUM_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("EQUILIBRIUM_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("EQUILIBRIUM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Selection.Workers = n
		}
	}
	if v := os.Getenv("EQUILIBRIUM_PARETO_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Selection.ParetoEnabled = b
		}
	}
	if v := os.Getenv("EQUILIBRIUM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EQUILIBRIUM_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
