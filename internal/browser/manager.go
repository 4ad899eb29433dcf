package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/survey-agent/internal/config"
)

// Manager owns a playwright browser, one context restored from the persisted
// session and its page.
type Manager struct {
	pw      *playwright.Playwright
	Browser playwright.Browser
	Context playwright.BrowserContext
	page    *playwrightPage
	logger  *zap.Logger
}

// NewManager launches the configured engine and opens a page in a context
// created from cfg.StorageState.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.InstallDrivers {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{cfg.Engine}}); err != nil {
			return nil, fmt.Errorf("install pw failed: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	var browserType playwright.BrowserType
	switch cfg.Engine {
	case "chromium":
		browserType = pw.Chromium
	case "webkit":
		browserType = pw.WebKit
	default:
		browserType = pw.Firefox
	}

	browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(float64(cfg.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s failed: %w", cfg.Engine, err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		StorageStatePath: playwright.String(cfg.StorageState),
		Viewport:         &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to restore session from %s: %w", cfg.StorageState, err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	timeoutMs := float64(cfg.DefaultTimeout.Milliseconds())
	page.SetDefaultTimeout(timeoutMs)
	page.SetDefaultNavigationTimeout(timeoutMs)

	logger.Info("Browser session restored",
		zap.String("driver", config.DriverPlaywright),
		zap.String("engine", cfg.Engine),
		zap.String("storage_state", cfg.StorageState),
	)

	return &Manager{
		pw:      pw,
		Browser: browser,
		Context: context,
		page:    &playwrightPage{page: page, defaultTimeout: cfg.DefaultTimeout},
		logger:  logger,
	}, nil
}

// Page returns the managed page.
func (m *Manager) Page() Page { return m.page }

// Close releases the context, the browser and the driver, in that order.
func (m *Manager) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if m.Context != nil {
		keep(m.Context.Close())
	}
	if m.Browser != nil {
		keep(m.Browser.Close())
	}
	if m.pw != nil {
		keep(m.pw.Stop())
	}
	if firstErr != nil {
		m.logger.Warn("Browser shutdown reported an error", zap.Error(firstErr))
	}
	return firstErr
}
