// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-murm/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct{}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	Config *domain.Config // Effective config, warnings included
	Path   string         // Config file location
}

// ShowConfig returns the effective configuration.
type ShowConfig struct {
	configs domain.ConfigStore
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configs domain.ConfigStore) *ShowConfig {
	return &ShowConfig{configs: configs}
}

// Execute loads the configuration.
func (uc *ShowConfig) Execute(_ context.Context, _ ShowConfigInput) (*ShowConfigOutput, error) {
	cfg, err := uc.configs.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &ShowConfigOutput{Config: cfg, Path: uc.configs.Path()}, nil
}
