// Package config holds all engine configuration. A Config is created once,
// validated at model construction, and read-only afterward; only the symbolic
// rule set may grow (via AddKnowledge on the model).
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Fusion method tags.
const (
	FusionLate      = "late_fusion"
	FusionAttention = "attention_fusion"
)

// Reasoning engine tags.
const (
	EngineStatic  = "static"
	EngineDatalog = "datalog"
)

// Config holds all engine configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Training  TrainingConfig  `yaml:"training"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelConfig configures the encoder and fusion architecture.
type ModelConfig struct {
	InputSize      int      `yaml:"input_size"`
	HiddenLayers   []int    `yaml:"hidden_layers"`
	NumClasses     int      `yaml:"num_classes"`
	FusionMethod   string   `yaml:"fusion_method"`
	FusionHidden   int      `yaml:"fusion_hidden"`
	AttentionHeads int      `yaml:"attention_heads"`
	DropoutRate    float64  `yaml:"dropout_rate"`
	FeatureNames   []string `yaml:"feature_names"`
	Seed           int64    `yaml:"seed"`
}

// TrainingConfig holds training hyperparameters.
type TrainingConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
}

// ReasoningConfig configures the symbolic reasoning component.
type ReasoningConfig struct {
	Engine     string   `yaml:"engine"`      // static, datalog
	OutputSize int      `yaml:"output_size"` // symbolic vector width
	Rules      []string `yaml:"rules"`
	CacheSize  int      `yaml:"cache_size"` // 0 disables the reasoning cache
}

// TrackingConfig configures the experiment sink.
type TrackingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig mirrors logging.Options in yaml form.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Directory  string          `yaml:"directory"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the reference configuration. Architecture defaults follow
// the hybrid classifier's canonical shape: three hidden layers, dropout 0.2,
// 128-wide fusion head, 8 attention heads, Adam at 1e-3.
func Default() Config {
	return Config{
		Model: ModelConfig{
			InputSize:      0, // must be set by the caller
			HiddenLayers:   []int{256, 128, 64},
			NumClasses:     0, // must be set by the caller
			FusionMethod:   FusionLate,
			FusionHidden:   128,
			AttentionHeads: 8,
			DropoutRate:    0.2,
			Seed:           1,
		},
		Training: TrainingConfig{
			LearningRate: 0.001,
			Epochs:       100,
			BatchSize:    32,
		},
		Reasoning: ReasoningConfig{
			Engine:     EngineStatic,
			OutputSize: 32,
			CacheSize:  1024,
		},
		Tracking: TrackingConfig{
			Enabled:      false,
			DatabasePath: "neurosym_runs.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
			Directory: ".neurosym",
		},
	}
}

// Load reads a yaml config file, applying defaults for unset fields.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies NEUROSYM_* environment overrides. Only operational
// knobs are overridable; architecture is config-file only.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEUROSYM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NEUROSYM_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("NEUROSYM_TRACKING_DB"); v != "" {
		c.Tracking.DatabasePath = v
	}
}

// Validate checks structural soundness of the configuration. Fusion-specific
// invariants (method membership, attention head divisibility) are enforced at
// model construction where the fused width is known.
func (c *Config) Validate() error {
	if c.Model.InputSize <= 0 {
		return fmt.Errorf("config: model.input_size must be positive, got %d", c.Model.InputSize)
	}
	if c.Model.NumClasses < 2 {
		return fmt.Errorf("config: model.num_classes must be at least 2, got %d", c.Model.NumClasses)
	}
	if len(c.Model.HiddenLayers) == 0 {
		return fmt.Errorf("config: model.hidden_layers must not be empty")
	}
	for i, w := range c.Model.HiddenLayers {
		if w <= 0 {
			return fmt.Errorf("config: model.hidden_layers[%d] must be positive, got %d", i, w)
		}
	}
	if c.Model.DropoutRate < 0 || c.Model.DropoutRate >= 1 {
		return fmt.Errorf("config: model.dropout_rate must be in [0, 1), got %g", c.Model.DropoutRate)
	}
	if c.Reasoning.OutputSize <= 0 {
		return fmt.Errorf("config: reasoning.output_size must be positive, got %d", c.Reasoning.OutputSize)
	}
	if c.Training.Epochs <= 0 {
		return fmt.Errorf("config: training.epochs must be positive, got %d", c.Training.Epochs)
	}
	if c.Training.BatchSize <= 0 {
		return fmt.Errorf("config: training.batch_size must be positive, got %d", c.Training.BatchSize)
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("config: training.learning_rate must be positive, got %g", c.Training.LearningRate)
	}
	return nil
}

// LatentSize returns the width of the encoder's latent representation.
func (c *Config) LatentSize() int {
	return c.Model.HiddenLayers[len(c.Model.HiddenLayers)-1]
}

// FusedSize returns the width of the concatenated latent + symbolic vector.
func (c *Config) FusedSize() int {
	return c.LatentSize() + c.Reasoning.OutputSize
}

// FeatureName returns the configured name for feature i, or a positional
// fallback.
func (c *Config) FeatureName(i int) string {
	if i < len(c.Model.FeatureNames) {
		return c.Model.FeatureNames[i]
	}
	return fmt.Sprintf("feature_%d", i)
}
