package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Error codes for LoadError.
const (
	ErrCodeNotFound      = "CONFIG_NOT_FOUND"
	ErrCodeParse         = "CONFIG_PARSE"
	ErrCodeSchema        = "CONFIG_SCHEMA"
	ErrCodeDuplicateRule = "CONFIG_DUPLICATE_RULE"
)

// LoadError represents an error that occurred during config loading.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load reads, schema-validates, and decodes the configuration at path.
//
// Validation happens in two layers: the embedded CUE schema rejects
// structural problems with positional messages, then Go-side checks cover
// what the schema cannot express (rule name uniqueness). A relative
// monitoring.log_path is resolved against the config file's directory, the
// same way the operator wrote it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "config file not found"}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	if err := validateSchema(path, data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	seen := make(map[string]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if seen[r.Name] {
			return nil, &LoadError{
				Code:    ErrCodeDuplicateRule,
				Path:    path,
				Message: fmt.Sprintf("rule %q declared more than once", r.Name),
			}
		}
		seen[r.Name] = true
	}

	if !filepath.IsAbs(cfg.Monitoring.LogPath) {
		base := filepath.Dir(path)
		cfg.Monitoring.LogPath = filepath.Join(base, cfg.Monitoring.LogPath)
	}

	return &cfg, nil
}

// validateSchema unifies the YAML document with the embedded CUE schema.
func validateSchema(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		// The schema is embedded; failing to compile it is a programming
		// error, not a user error.
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
	}
	return nil
}
