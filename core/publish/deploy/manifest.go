package deploy

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/packbridge/packbridge/core/infra/schema"
)

//go:embed manifest_schema.json
var manifestSchema []byte

// Manifest is the batch definition operators feed to `packbridgectl batch`.
type Manifest struct {
	Packages         []Package `yaml:"packages"`
	Force            bool      `yaml:"force,omitempty"`
	AvailableInstall string    `yaml:"availableInstall,omitempty"`
}

// Options converts manifest-level settings into run options.
func (m *Manifest) Options() (Options, error) {
	opts := Options{Force: m.Force, AvailableInstall: AvailabilityNone}
	if m.AvailableInstall != "" {
		mode, ok := ParseAvailability(m.AvailableInstall)
		if !ok {
			return Options{}, fmt.Errorf("invalid availableInstall %q", m.AvailableInstall)
		}
		opts.AvailableInstall = mode
	}
	return opts, nil
}

// LoadManifest reads, decodes, and schema-validates a batch manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	// Decode to a generic document first so schema validation sees the raw
	// shape, then to the typed manifest.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := schema.Validate("batch-manifest", manifestSchema, normalizeYAML(doc)); err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// normalizeYAML rewrites YAML's map[string]any/any trees into JSON-compatible
// values for the schema validator.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
