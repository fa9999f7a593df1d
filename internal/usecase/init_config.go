package usecase

import (
	"context"

	"github.com/runoshun/git-murm/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Force bool // Overwrite an existing config file
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig writes the commented default configuration.
type InitConfig struct {
	configs domain.ConfigStore
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configs domain.ConfigStore) *InitConfig {
	return &InitConfig{configs: configs}
}

// Execute creates the configuration file from the template.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	if err := uc.configs.Init(in.Force); err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: uc.configs.Path()}, nil
}
