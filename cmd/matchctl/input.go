// cmd/matchctl/input.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"match-workers/internal/common/validation"
	"match-workers/internal/models"

	"gopkg.in/yaml.v3"
)

// readDocument loads a JSON or YAML file (by extension) and checks it against schema.
// YAML goes through a generic map so the json field names apply to both formats.
func readDocument(path string, schema *validation.Validator, into interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if res := schema.Validate(doc); !res.Valid {
		return fmt.Errorf("%s: %w", path, res.Err())
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return json.Unmarshal(normalized, into)
}

func readRequirements(path string) (*models.AssignmentRequirements, error) {
	var req models.AssignmentRequirements
	if err := readDocument(path, validation.Requirements, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func readProfile(path string) (*models.CandidateProfile, error) {
	var p models.CandidateProfile
	if err := readDocument(path, validation.Profile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
