package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/genc-murat/crystalbloom/internal/bloom"
)

type Config struct {
	Environment string        `yaml:"environment"`
	Server      ServerConfig  `yaml:"server"`
	Bloom       BloomConfig   `yaml:"bloom"`
	Cache       CacheConfig   `yaml:"cache"`
	Storage     StorageConfig `yaml:"storage"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Pprof       PprofConfig   `yaml:"pprof"`
}

// Duration parses the human form ("30s", "25ms") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// BloomConfig carries the per-process bloom defaults. Zero values mean
// "keep the compiled default".
type BloomConfig struct {
	DefaultCapacity        int64   `yaml:"default_capacity"`
	DefaultExpansion       uint32  `yaml:"default_expansion"`
	DefaultFpRate          float64 `yaml:"default_fp_rate"`
	DefaultTighteningRatio float64 `yaml:"default_tightening_ratio"`
	UseRandomSeed          *bool   `yaml:"use_random_seed"`
	MemoryLimit            int64   `yaml:"memory_limit"`
	MaxFilters             int64   `yaml:"max_filters"`
	DefragEnabled          *bool   `yaml:"defrag_enabled"`
}

type CacheConfig struct {
	DefragInterval Duration `yaml:"defrag_interval"`
	DefragBudget   Duration `yaml:"defrag_budget"`
}

type StorageConfig struct {
	Path         string   `yaml:"path"`
	SyncStrategy string   `yaml:"sync_strategy"`
	SyncInterval Duration `yaml:"sync_interval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

type PprofConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (no config directory found)")
		}
		dir = parent
	}
}

// LoadConfig reads config/<env>.yaml (or .yml / .json) relative to the
// project root.
func LoadConfig(env string) (*Config, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("error finding project root: %v", err)
	}

	for _, ext := range []string{"yaml", "yml", "json"} {
		configPath := filepath.Join(projectRoot, "config", fmt.Sprintf("%s.%s", env, ext))
		data, err := os.ReadFile(configPath)
		if err != nil {
			continue
		}
		if ext == "json" {
			return parseJSON(data)
		}
		var config Config
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %v", configPath, err)
		}
		return &config, nil
	}
	return nil, fmt.Errorf("no config file found for environment %q", env)
}

// parseJSON maps a JSON config onto Config using gjson paths, so JSON
// deployments don't need yaml-compatible field tags.
func parseJSON(data []byte) (*Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON config")
	}
	doc := gjson.ParseBytes(data)
	config := &Config{
		Environment: doc.Get("environment").String(),
		Server: ServerConfig{
			Host:         doc.Get("server.host").String(),
			Port:         int(doc.Get("server.port").Int()),
			ReadTimeout:  Duration(doc.Get("server.read_timeout_ms").Int()) * Duration(time.Millisecond),
			WriteTimeout: Duration(doc.Get("server.write_timeout_ms").Int()) * Duration(time.Millisecond),
			IdleTimeout:  Duration(doc.Get("server.idle_timeout_ms").Int()) * Duration(time.Millisecond),
		},
		Bloom: BloomConfig{
			DefaultCapacity:        doc.Get("bloom.default_capacity").Int(),
			DefaultExpansion:       uint32(doc.Get("bloom.default_expansion").Uint()),
			DefaultFpRate:          doc.Get("bloom.default_fp_rate").Float(),
			DefaultTighteningRatio: doc.Get("bloom.default_tightening_ratio").Float(),
			MemoryLimit:            doc.Get("bloom.memory_limit").Int(),
			MaxFilters:             doc.Get("bloom.max_filters").Int(),
		},
		Cache: CacheConfig{
			DefragInterval: Duration(doc.Get("cache.defrag_interval_ms").Int()) * Duration(time.Millisecond),
			DefragBudget:   Duration(doc.Get("cache.defrag_budget_ms").Int()) * Duration(time.Millisecond),
		},
		Storage: StorageConfig{
			Path:         doc.Get("storage.path").String(),
			SyncStrategy: doc.Get("storage.sync_strategy").String(),
			SyncInterval: Duration(doc.Get("storage.sync_interval_ms").Int()) * Duration(time.Millisecond),
		},
		Metrics: MetricsConfig{
			Enabled: doc.Get("metrics.enabled").Bool(),
			Port:    int(doc.Get("metrics.port").Int()),
			Path:    doc.Get("metrics.path").String(),
		},
		Pprof: PprofConfig{
			Enabled: doc.Get("pprof.enabled").Bool(),
			Port:    int(doc.Get("pprof.port").Int()),
		},
	}
	if v := doc.Get("bloom.use_random_seed"); v.Exists() {
		b := v.Bool()
		config.Bloom.UseRandomSeed = &b
	}
	if v := doc.Get("bloom.defrag_enabled"); v.Exists() {
		b := v.Bool()
		config.Bloom.DefragEnabled = &b
	}
	return config, nil
}

// ApplyBloomDefaults pushes the configured bloom defaults into the runtime
// knobs, using the same range validation as CONFIG SET.
func (c *Config) ApplyBloomDefaults() error {
	b := c.Bloom
	if b.DefaultCapacity != 0 {
		if err := bloom.SetDefaultCapacity(b.DefaultCapacity); err != nil {
			return err
		}
	}
	if b.DefaultExpansion != 0 {
		if err := bloom.SetDefaultExpansion(b.DefaultExpansion); err != nil {
			return err
		}
	}
	if b.DefaultFpRate != 0 {
		if err := bloom.SetDefaultFpRate(b.DefaultFpRate); err != nil {
			return err
		}
	}
	if b.DefaultTighteningRatio != 0 {
		if err := bloom.SetDefaultTighteningRatio(b.DefaultTighteningRatio); err != nil {
			return err
		}
	}
	if b.UseRandomSeed != nil {
		bloom.SetUseRandomSeed(*b.UseRandomSeed)
	}
	if b.MemoryLimit != 0 {
		if err := bloom.SetMemoryLimit(b.MemoryLimit); err != nil {
			return err
		}
	}
	if b.MaxFilters != 0 {
		if err := bloom.SetMaxFilters(b.MaxFilters); err != nil {
			return err
		}
	}
	if b.DefragEnabled != nil {
		bloom.SetDefragEnabled(*b.DefragEnabled)
	}
	return nil
}
