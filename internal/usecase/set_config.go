package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-murm/internal/domain"
)

// SetConfigInput contains the input for the SetConfig use case.
type SetConfigInput struct {
	Key   string
	Value string
}

// SetConfigOutput contains the output of the SetConfig use case.
type SetConfigOutput struct {
	Config *domain.Config
	Path   string
}

// SetConfig updates one configuration key and persists the file.
type SetConfig struct {
	configs domain.ConfigStore
}

// NewSetConfig creates a new SetConfig use case.
func NewSetConfig(configs domain.ConfigStore) *SetConfig {
	return &SetConfig{configs: configs}
}

// Execute validates the value for key and saves the whole config.
// Nothing is written when validation fails.
func (uc *SetConfig) Execute(_ context.Context, in SetConfigInput) (*SetConfigOutput, error) {
	cfg, err := uc.configs.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Set(in.Key, in.Value); err != nil {
		return nil, err
	}
	cfg.Warnings = nil
	if err := uc.configs.Save(cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}
	return &SetConfigOutput{Config: cfg, Path: uc.configs.Path()}, nil
}
