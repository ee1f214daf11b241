// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/api/schemas"
	"github.com/devbot920-ux/DoorTelnet/internal/config"
)

// NewClient is a factory function that creates an LLMClient for a single
// model backend based on its configuration.
func NewClient(cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	case config.ProviderLocal:
		return NewLocalClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderOpenAI, config.ProviderLocal)
	}
}

// NewRouterFromConfig builds both tier clients and wires them into a router.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*LLMRouter, error) {
	fastClient, err := NewClient(cfg.Fast, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client: %w", err)
	}
	powerfulClient, err := NewClient(cfg.Powerful, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create powerful tier client: %w", err)
	}
	return NewLLMRouter(logger, fastClient, powerfulClient)
}
