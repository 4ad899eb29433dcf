package browser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/config"
)

// Open starts the configured driver with the persisted session restored.
func Open(cfg config.BrowserConfig, logger *zap.Logger) (Session, error) {
	logger = logger.Named("browser")
	switch cfg.Driver {
	case config.DriverPlaywright:
		return NewManager(cfg, logger)
	case config.DriverChromedp:
		return NewChromedpManager(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", cfg.Driver)
	}
}
