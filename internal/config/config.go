package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/udi-dataset/internal/evaluator"
	"github.com/banshee-data/udi-dataset/internal/infos"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/udi.defaults.json"

// DefaultClassNames is the detection class list used when none is configured.
var DefaultClassNames = []string{
	"car", "pedestrian", "cyclist", "truck", "forklift",
	"golf car", "motorcyclist", "bicycle", "motorbike",
}

// defaultEvalSets maps dataset versions to the evaluator's split names.
var defaultEvalSets = map[string]string{
	"v1.0-trainval": "val",
	"v0.1-train":    "train",
}

// Config is the tool configuration. Omitted fields fall back to the
// defaults returned by the Get* methods.
type Config struct {
	DatasetRoot      *string           `json:"dataset_root,omitempty"`
	InfoPath         *string           `json:"info_path,omitempty"`
	Version          *string           `json:"version,omitempty"`
	ClassNames       []string          `json:"class_names,omitempty"`
	EvaluatorCommand *string           `json:"evaluator_command,omitempty"`
	EvalSets         map[string]string `json:"eval_sets,omitempty"`
	OutputDir        *string           `json:"output_dir,omitempty"`
	DatabasePath     *string           `json:"database_path,omitempty"`
	StrictClasses    *bool             `json:"strict_classes,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrBool(v bool) *bool       { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	evalSets := make(map[string]string, len(defaultEvalSets))
	for k, v := range defaultEvalSets {
		evalSets[k] = v
	}
	return &Config{
		DatasetRoot:      ptrString("."),
		Version:          ptrString(infos.DefaultVersion),
		ClassNames:       append([]string(nil), DefaultClassNames...),
		EvaluatorCommand: ptrString(evaluator.DefaultCommand),
		EvalSets:         evalSets,
		OutputDir:        ptrString("eval_output"),
		DatabasePath:     ptrString("udi_history.db"),
		StrictClasses:    ptrBool(false),
	}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.ClassNames))
	for i, name := range c.ClassNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("class_names[%d] is empty", i)
		}
		if seen[name] {
			return fmt.Errorf("class_names lists %q twice", name)
		}
		seen[name] = true
	}

	for version, set := range c.EvalSets {
		if version == "" || set == "" {
			return fmt.Errorf("eval_sets entry %q -> %q must have a version and a split", version, set)
		}
	}

	if c.EvaluatorCommand != nil && strings.TrimSpace(*c.EvaluatorCommand) == "" {
		return fmt.Errorf("evaluator_command must not be empty")
	}

	if c.Version != nil && *c.Version == "" {
		return fmt.Errorf("version must not be empty")
	}
	return nil
}

// GetDatasetRoot returns the dataset_root value or the default.
func (c *Config) GetDatasetRoot() string {
	if c.DatasetRoot == nil || *c.DatasetRoot == "" {
		return "."
	}
	return *c.DatasetRoot
}

// GetInfoPath returns the info_path value, defaulting to the standard
// collection filename under the dataset root.
func (c *Config) GetInfoPath() string {
	if c.InfoPath == nil || *c.InfoPath == "" {
		return filepath.Join(c.GetDatasetRoot(), infos.DefaultInfoFilename)
	}
	return *c.InfoPath
}

// GetVersion returns the version value or the default.
func (c *Config) GetVersion() string {
	if c.Version == nil || *c.Version == "" {
		return infos.DefaultVersion
	}
	return *c.Version
}

// GetClassNames returns the class_names value or the default.
func (c *Config) GetClassNames() []string {
	if len(c.ClassNames) == 0 {
		return append([]string(nil), DefaultClassNames...)
	}
	return append([]string(nil), c.ClassNames...)
}

// GetEvaluatorCommand returns the evaluator_command value or the default.
func (c *Config) GetEvaluatorCommand() string {
	if c.EvaluatorCommand == nil || *c.EvaluatorCommand == "" {
		return evaluator.DefaultCommand
	}
	return *c.EvaluatorCommand
}

// GetOutputDir returns the output_dir value or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "eval_output"
	}
	return *c.OutputDir
}

// GetDatabasePath returns the database_path value or the default.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "udi_history.db"
	}
	return *c.DatabasePath
}

// GetStrictClasses returns the strict_classes value or the default.
func (c *Config) GetStrictClasses() bool {
	if c.StrictClasses == nil {
		return false
	}
	return *c.StrictClasses
}

// GetEvalSets returns the configured version to split mapping merged
// over the defaults.
func (c *Config) GetEvalSets() map[string]string {
	out := make(map[string]string, len(defaultEvalSets)+len(c.EvalSets))
	for k, v := range defaultEvalSets {
		out[k] = v
	}
	for k, v := range c.EvalSets {
		out[k] = v
	}
	return out
}

// EvalSet returns the evaluator split for version.
func (c *Config) EvalSet(version string) (string, error) {
	sets := c.GetEvalSets()
	if set, ok := sets[version]; ok {
		return set, nil
	}
	known := make([]string, 0, len(sets))
	for k := range sets {
		known = append(known, k)
	}
	sort.Strings(known)
	return "", fmt.Errorf("no eval set for version %q (known: %s)", version, strings.Join(known, ", "))
}

// Resolved returns a copy of c with every unset field filled from
// DefaultConfig. InfoPath is derived from the resolved dataset root.
func (c *Config) Resolved() *Config {
	r := DefaultConfig()
	r.DatasetRoot = ptrString(c.GetDatasetRoot())
	r.InfoPath = ptrString(c.GetInfoPath())
	r.Version = ptrString(c.GetVersion())
	r.ClassNames = c.GetClassNames()
	r.EvaluatorCommand = ptrString(c.GetEvaluatorCommand())
	r.EvalSets = c.GetEvalSets()
	r.OutputDir = ptrString(c.GetOutputDir())
	r.DatabasePath = ptrString(c.GetDatabasePath())
	r.StrictClasses = ptrBool(c.GetStrictClasses())
	return r
}
