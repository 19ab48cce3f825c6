package kb

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/curasense/triage-cli/internal/model"
)

// ErrNotFound is returned by Load when none of the candidate paths exist.
var ErrNotFound = eris.New("kb: not found in expected locations")

// DefaultPaths are tried in order when no explicit paths are configured.
var DefaultPaths = []string{
	"packages/kb/conditions_enriched.json",
	"packages/kb/conditions.json",
	"../packages/kb/conditions.json",
}

// Load reads the first existing file among paths and returns its records and
// the path used. A file that exists but cannot be parsed is an error; it does
// not fall through to the next candidate.
func Load(paths ...string) ([]model.ConditionRecord, string, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, "", eris.Wrapf(err, "kb: stat %s", p)
		}
		if info.IsDir() {
			continue
		}
		records, err := LoadFile(p)
		if err != nil {
			return nil, "", err
		}
		zap.L().Info("kb: loaded knowledge base",
			zap.String("path", p),
			zap.Int("records", len(records)),
		)
		return records, p, nil
	}
	return nil, "", eris.Wrapf(ErrNotFound, "tried %s", strings.Join(paths, ", "))
}

// LoadFile parses a single knowledge base file. The format is chosen by
// extension: .json, .yaml/.yml or .xlsx.
func LoadFile(path string) ([]model.ConditionRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, eris.Errorf("kb: unsupported file type %q", filepath.Ext(path))
	}
}

func loadJSON(path string) ([]model.ConditionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: read %s", path)
	}
	var records []model.ConditionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "kb: parse json %s", path)
	}
	return records, nil
}

func loadYAML(path string) ([]model.ConditionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "kb: read %s", path)
	}

	// Accept either a bare list or a top-level "conditions" key.
	var wrapper struct {
		Conditions []model.ConditionRecord `yaml:"conditions"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err == nil && len(wrapper.Conditions) > 0 {
		return wrapper.Conditions, nil
	}

	var records []model.ConditionRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "kb: parse yaml %s", path)
	}
	return records, nil
}

// WriteJSON writes records as an indented JSON array, the canonical KB format.
func WriteJSON(path string, records []model.ConditionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "kb: marshal records")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "kb: create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "kb: write %s", path)
	}
	return nil
}
