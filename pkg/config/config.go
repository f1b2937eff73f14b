package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cutover/cutover/pkg/types"
)

// Duration wraps time.Duration so YAML values like "60s" parse directly
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RouterRef identifies the traffic router resource in the cluster
type RouterRef struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
}

// EnvRef maps an environment name to its namespace
type EnvRef struct {
	Namespace string `yaml:"namespace"`
}

// DeployConfig controls the candidate deployment phase
type DeployConfig struct {
	Timeout      Duration `yaml:"timeout"`
	PollInterval Duration `yaml:"pollInterval"`
}

// ValidateConfig controls health validation
type ValidateConfig struct {
	Concurrency     int      `yaml:"concurrency"`
	ProbeTimeout    Duration `yaml:"probeTimeout"`
	Retries         int      `yaml:"retries"`
	RetryInterval   Duration `yaml:"retryInterval"`
	ComplianceFloor float64  `yaml:"complianceFloor"`
}

// MigrateConfig controls the traffic-shifting state machine
type MigrateConfig struct {
	Dwell      Duration `yaml:"dwell"`
	RunTimeout Duration `yaml:"runTimeout"`
}

// StabilityConfig controls post-migration monitoring
type StabilityConfig struct {
	Interval  Duration `yaml:"interval"`
	Window    Duration `yaml:"window"`
	SlowProbe Duration `yaml:"slowProbe"`
}

// LogConfig controls logging output
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the full orchestrator configuration
type Config struct {
	Router       RouterRef           `yaml:"router"`
	Environments map[string]EnvRef   `yaml:"environments"`
	Services     []types.ServiceSpec `yaml:"services"`
	Deploy       DeployConfig        `yaml:"deploy"`
	Validate     ValidateConfig      `yaml:"validate"`
	Migrate      MigrateConfig       `yaml:"migrate"`
	Stability    StabilityConfig     `yaml:"stability"`
	OutputDir    string              `yaml:"outputDir"`
	MetricsAddr  string              `yaml:"metricsAddr"`
	Log          LogConfig           `yaml:"log"`
}

// Default returns a Config with every tunable set to its documented default
func Default() *Config {
	return &Config{
		Router: RouterRef{Name: "app-router", Namespace: "default"},
		Environments: map[string]EnvRef{
			types.EnvBlue:  {Namespace: types.EnvBlue},
			types.EnvGreen: {Namespace: types.EnvGreen},
		},
		Deploy: DeployConfig{
			Timeout:      Duration(10 * time.Minute),
			PollInterval: Duration(5 * time.Second),
		},
		Validate: ValidateConfig{
			Concurrency:     16,
			ProbeTimeout:    Duration(10 * time.Second),
			Retries:         2,
			RetryInterval:   Duration(500 * time.Millisecond),
			ComplianceFloor: 0.95,
		},
		Migrate: MigrateConfig{
			Dwell:      Duration(60 * time.Second),
			RunTimeout: Duration(45 * time.Minute),
		},
		Stability: StabilityConfig{
			Interval:  Duration(30 * time.Second),
			Window:    Duration(5 * time.Minute),
			SlowProbe: Duration(2 * time.Second),
		},
		OutputDir: "./cutover-runs",
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML config file, filling in defaults for
// anything unset
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for values an explicit config zeroed out
func (c *Config) applyDefaults() {
	def := Default()
	if c.Deploy.Timeout == 0 {
		c.Deploy.Timeout = def.Deploy.Timeout
	}
	if c.Deploy.PollInterval == 0 {
		c.Deploy.PollInterval = def.Deploy.PollInterval
	}
	if c.Validate.Concurrency == 0 {
		c.Validate.Concurrency = def.Validate.Concurrency
	}
	if c.Validate.ProbeTimeout == 0 {
		c.Validate.ProbeTimeout = def.Validate.ProbeTimeout
	}
	if c.Validate.RetryInterval == 0 {
		c.Validate.RetryInterval = def.Validate.RetryInterval
	}
	if c.Validate.ComplianceFloor == 0 {
		c.Validate.ComplianceFloor = def.Validate.ComplianceFloor
	}
	if c.Migrate.Dwell == 0 {
		c.Migrate.Dwell = def.Migrate.Dwell
	}
	if c.Migrate.RunTimeout == 0 {
		c.Migrate.RunTimeout = def.Migrate.RunTimeout
	}
	if c.Stability.Interval == 0 {
		c.Stability.Interval = def.Stability.Interval
	}
	if c.Stability.Window == 0 {
		c.Stability.Window = def.Stability.Window
	}
	if c.Stability.SlowProbe == 0 {
		c.Stability.SlowProbe = def.Stability.SlowProbe
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	for i := range c.Services {
		if c.Services[i].Replicas == 0 {
			c.Services[i].Replicas = 1
		}
		if c.Services[i].Tier == "" {
			c.Services[i].Tier = types.TierApp
		}
		if c.Services[i].HealthPath == "" {
			c.Services[i].HealthPath = "/health"
		}
	}
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	if c.Router.Name == "" {
		return fmt.Errorf("router.name is required")
	}
	for _, name := range []string{types.EnvBlue, types.EnvGreen} {
		env, ok := c.Environments[name]
		if !ok {
			return fmt.Errorf("environment %q is not configured", name)
		}
		if env.Namespace == "" {
			return fmt.Errorf("environment %q has no namespace", name)
		}
	}
	if c.Environments[types.EnvBlue].Namespace == c.Environments[types.EnvGreen].Namespace {
		return fmt.Errorf("blue and green environments must use distinct namespaces")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}
	seen := make(map[string]bool)
	for _, svc := range c.Services {
		if svc.Name == "" {
			return fmt.Errorf("service with empty name")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service %q", svc.Name)
		}
		seen[svc.Name] = true
		if svc.Image == "" {
			return fmt.Errorf("service %q has no image", svc.Name)
		}
		if svc.Port <= 0 || svc.Port > 65535 {
			return fmt.Errorf("service %q has invalid port %d", svc.Name, svc.Port)
		}
		if svc.Tier != types.TierInfra && svc.Tier != types.TierApp {
			return fmt.Errorf("service %q has invalid tier %q", svc.Name, svc.Tier)
		}
	}
	if c.Validate.ComplianceFloor < 0 || c.Validate.ComplianceFloor > 1 {
		return fmt.Errorf("complianceFloor %f out of range [0,1]", c.Validate.ComplianceFloor)
	}
	return nil
}

// Environment builds the typed Environment for a configured name
func (c *Config) Environment(name string) types.Environment {
	return types.Environment{
		Name:      name,
		Namespace: c.Environments[name].Namespace,
	}
}
