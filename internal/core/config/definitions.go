package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mlenstra/shrike/internal/types"
)

/*
 * Definition loading.
 *
 * Policy, pipeline, and provider documents are JSON owned by the external
 * configuration store; these helpers read file snapshots of them. Shape
 * errors surface here; semantic validation (operators, patterns, provider
 * references) happens in the compile step of each consuming package.
 */

// LoadPolicies reads an alert policy list from a JSON file.
func LoadPolicies(path string) ([]types.AlertPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policies: %w", err)
	}
	var policies []types.AlertPolicy
	if err := json.Unmarshal(data, &policies); err != nil {
		return nil, fmt.Errorf("failed to parse policies %s: %w", path, err)
	}
	return policies, nil
}

// LoadPipelineSpec reads a pipeline definition from a JSON file.
func LoadPipelineSpec(path string) (types.PipelineSpec, error) {
	var spec types.PipelineSpec
	data, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("failed to read pipeline: %w", err)
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("failed to parse pipeline %s: %w", path, err)
	}
	return spec, nil
}

// LoadProviders reads a provider list from a JSON file.
func LoadProviders(path string) ([]types.Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers: %w", err)
	}
	var providers []types.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("failed to parse providers %s: %w", path, err)
	}
	return providers, nil
}
