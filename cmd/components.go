// -- cmd/components.go --
package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/devbot920-ux/DoorTelnet/internal/bridge"
	"github.com/devbot920-ux/DoorTelnet/internal/config"
	"github.com/devbot920-ux/DoorTelnet/internal/llmclient"
	"github.com/devbot920-ux/DoorTelnet/internal/oracle"
	"github.com/devbot920-ux/DoorTelnet/internal/reporting"
)

// components bundles the collaborators every test command needs.
type components struct {
	cfg    *config.Config
	logger *zap.Logger
	bridge *bridge.Client
	oracle *oracle.Oracle
	writer *reporting.Writer
}

// buildComponents wires the bridge, LLM router, oracle and report writer
// from the resolved configuration.
func buildComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	br := bridge.NewClient(cfg.Bridge, logger)

	router, err := llmclient.NewRouterFromConfig(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM clients: %w", err)
	}

	archiver := oracle.NewArchiver(cfg.Reports.PromptDir, cfg.Reports.ArchivePrompts, logger)
	orc := oracle.New(router, br, archiver, loadGameContext(cfg.Game.ContextFile, logger), logger)

	return &components{
		cfg:    cfg,
		logger: logger,
		bridge: br,
		oracle: orc,
		writer: reporting.NewWriter(cfg.Reports.Dir, logger),
	}, nil
}

// loadGameContext reads optional game lore for LLM prompts. A missing file
// is not an error.
func loadGameContext(path string, logger *zap.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not load game context", zap.String("path", path), zap.Error(err))
		}
		return ""
	}
	logger.Info("Game context loaded", zap.String("path", path), zap.Int("bytes", len(data)))
	return string(data)
}
