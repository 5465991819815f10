package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

// stealthScript runs before any page script so the site cannot see that the
// browser is automated.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => false });`

// launchArgs disable the automation fingerprints Chromium exposes by default.
var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-web-security",
	"--disable-features=VizDisplayCompositor",
}

// PlaywrightLauncher launches persistent Chromium contexts.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
	log         *logging.Logger
}

// NewPlaywrightLauncher creates a launcher. The Playwright driver is
// installed and started on the first Launch.
func NewPlaywrightLauncher(log *logging.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{log: log}
}

// initialize installs and runs the Playwright driver.
func (l *PlaywrightLauncher) initialize() error {
	if l.initialized {
		return nil
	}

	// Driver output would corrupt the stdio transport
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch starts a persistent context rooted at opts.UserDataDir.
func (l *PlaywrightLauncher) Launch(opts LaunchOptions) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initialize(); err != nil {
		return nil, err
	}

	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	headers := map[string]string{}
	if opts.Referer != "" {
		headers["Referer"] = opts.Referer
	}

	context, err := l.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		AcceptDownloads:   playwright.Bool(true),
		UserAgent:         playwright.String(opts.UserAgent),
		Args:              launchArgs,
		IgnoreDefaultArgs: []string{"--enable-automation"},
		ExtraHttpHeaders:  headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch persistent context: %w", err)
	}

	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = context.NewPage()
		if err != nil {
			context.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}

	// Must be registered before the first navigation
	if err := page.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	if len(headers) > 0 {
		if err := page.SetExtraHTTPHeaders(headers); err != nil {
			context.Close()
			return nil, fmt.Errorf("failed to set headers: %w", err)
		}
	}

	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	now := time.Now()
	l.log.Infof("launched persistent context at %s (headless=%v)", opts.UserDataDir, opts.Headless)

	return &Session{
		Context:    context,
		Page:       page,
		Headless:   opts.Headless,
		CreatedAt:  now,
		LastUsedAt: now,
	}, nil
}

// Stop stops the Playwright driver.
func (l *PlaywrightLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized || l.playwright == nil {
		return nil
	}
	if err := l.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.initialized = false
	l.playwright = nil
	return nil
}
