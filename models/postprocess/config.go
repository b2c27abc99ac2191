package postprocess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultNumClasses is the size of the 80-class YOLO/COCO label set.
const DefaultNumClasses = 80

// maxConfigSize bounds config files read from disk.
const maxConfigSize = 1 << 20

// EnsembleConfig configures an Ensembler.
type EnsembleConfig struct {
	// NumClasses is the number of classes; class ids outside [0, NumClasses) are ignored.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// NumWorkers is the number of goroutines clustering classes in parallel. 0 or 1 runs sequentially.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`
	// Debug enables per-class debug logging.
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultEnsembleConfig returns a sequential configuration for the 80 YOLO classes.
func DefaultEnsembleConfig() *EnsembleConfig {
	return &EnsembleConfig{
		NumClasses: DefaultNumClasses,
		NumWorkers: 1,
	}
}

// Validate checks the configuration values.
func (c *EnsembleConfig) Validate() error {
	if c.NumClasses < 1 {
		return errors.Errorf("num_classes must be at least 1, got %d", c.NumClasses)
	}
	if c.NumWorkers < 0 {
		return errors.Errorf("num_workers must not be negative, got %d", c.NumWorkers)
	}
	return nil
}

// LoadEnsembleConfig loads an EnsembleConfig from a JSON or YAML file.
//
// Fields omitted from the file keep the values of DefaultEnsembleConfig.
//
// Arguments:
//   - path: Path to a .json, .yaml or .yml file.
//
// Returns:
//   - *EnsembleConfig: The validated configuration.
//   - error: If the file cannot be read, parsed or validated.
func LoadEnsembleConfig(path string) (*EnsembleConfig, error) {
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	if info.Size() > maxConfigSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := DefaultEnsembleConfig()
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal config")
		}
	default:
		return nil, errors.Errorf("unsupported config extension %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// SaveConfig writes the configuration as indented JSON.
func (c *EnsembleConfig) SaveConfig(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}
