// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	"skywatch-sim/internal/simerr"
)

//go:embed schema.cue
var schemaSource []byte

// Schema returns the embedded CUE schema source.
func Schema() []byte { return schemaSource }

// ValidateWithCue validates YAML config bytes against the #Config definition
// of a CUE schema. A nil schema selects the embedded one.
func ValidateWithCue(yamlBytes, schema []byte) error {
	if schema == nil {
		schema = schemaSource
	}
	ctx := cuecontext.New()

	file, err := yaml.Extract("config.yaml", yamlBytes)
	if err != nil {
		return simerr.Validation("cannot parse YAML config: %v", err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return simerr.Validation("cannot build YAML config: %v", err)
	}

	schemaVal := ctx.CompileBytes(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("CUE schema has no #Config definition")
	}

	// Merge values with schema
	final := def.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return simerr.Validation("schema validation failed: %v", err)
	}
	return nil
}

// ValidateFile validates a YAML file against a schema file. An empty
// schemaPath selects the embedded schema.
func ValidateFile(configPath, schemaPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	var schema []byte
	if schemaPath != "" {
		if schema, err = os.ReadFile(schemaPath); err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	return ValidateWithCue(data, schema)
}
