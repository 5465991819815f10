package browser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is a persistent Playwright browser context and its active page.
type Session struct {
	// Context is the persistent browser context backed by the profile directory
	Context playwright.BrowserContext

	// Page is the page every operation runs against
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// CreatedAt is the timestamp when the session was launched
	CreatedAt time.Time

	// LastUsedAt is the timestamp of the last operation on this session
	LastUsedAt time.Time
}

var _ Handle = (*Session)(nil)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

func millis(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *Session) first(selector string) playwright.Locator {
	return s.Page.Locator(selector).First()
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageGotoOptions{
		Timeout: millis(opts.Timeout),
	}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// IsVisible reports whether the selector becomes visible within timeout.
func (s *Session) IsVisible(selector string, timeout time.Duration) bool {
	return s.WaitVisible(selector, timeout) == nil
}

// WaitVisible waits for the first element matching selector to become visible.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	s.UpdateLastUsed()

	err := s.first(selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotVisible, selector, err)
	}
	return nil
}

// Click clicks an element matching the selector.
func (s *Session) Click(opts ClickOptions) error {
	s.UpdateLastUsed()

	err := s.first(opts.Selector).Click(playwright.LocatorClickOptions{
		Timeout: millis(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// ClickButtonText clicks the first button whose text is exactly text, ignoring case.
func (s *Session) ClickButtonText(text string, timeout time.Duration) error {
	s.UpdateLastUsed()

	pattern := regexp.MustCompile(`(?i)^\s*` + regexp.QuoteMeta(text) + `\s*$`)
	button := s.Page.Locator("button").Filter(playwright.LocatorFilterOptions{
		HasText: pattern,
	}).First()

	if err := button.Click(playwright.LocatorClickOptions{Timeout: millis(timeout)}); err != nil {
		return fmt.Errorf("click %q failed: %w", text, err)
	}
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(opts FillOptions) error {
	s.UpdateLastUsed()

	err := s.first(opts.Selector).Fill(opts.Value, playwright.LocatorFillOptions{
		Timeout: millis(opts.Timeout),
	})
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// TextContent returns the text content of the first matching element.
func (s *Session) TextContent(selector string) (string, error) {
	s.UpdateLastUsed()

	text, err := s.first(selector).TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Attribute returns an attribute of the first matching element.
func (s *Session) Attribute(selector, name string) (string, error) {
	s.UpdateLastUsed()

	value, err := s.first(selector).GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("attribute %s failed: %w", name, err)
	}
	return value, nil
}

// Attributes returns the non-empty values of an attribute across all matches.
func (s *Session) Attributes(selector, name string) ([]string, error) {
	s.UpdateLastUsed()

	locators, err := s.Page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	values := make([]string, 0, len(locators))
	for _, loc := range locators {
		value, attrErr := loc.GetAttribute(name)
		if attrErr == nil && value != "" {
			values = append(values, value)
		}
	}
	return values, nil
}

// PressKey presses a keyboard key on the page.
func (s *Session) PressKey(key string) error {
	s.UpdateLastUsed()

	if err := s.Page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("key press %s failed: %w", key, err)
	}
	return nil
}

// WaitForURL waits until match accepts the current URL.
func (s *Session) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	s.UpdateLastUsed()

	err := s.Page.WaitForURL(match, playwright.PageWaitForURLOptions{
		Timeout: millis(timeout),
	})
	if err != nil {
		return fmt.Errorf("wait for url failed: %w", err)
	}
	return nil
}

// Fetch downloads url through the page's request context.
func (s *Session) Fetch(url string) (*FetchResult, error) {
	s.UpdateLastUsed()

	resp, err := s.Page.Request().Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Dispose()

	body, err := resp.Body()
	if err != nil {
		return nil, fmt.Errorf("reading response body failed: %w", err)
	}

	return &FetchResult{
		Status:      resp.Status(),
		ContentType: resp.Headers()["content-type"],
		Body:        body,
	}, nil
}

// Download clicks the trigger element and waits for the resulting download.
func (s *Session) Download(opts DownloadOptions) (*DownloadResult, error) {
	s.UpdateLastUsed()

	download, err := s.Page.ExpectDownload(func() error {
		return s.first(opts.Selector).Click()
	}, playwright.PageExpectDownloadOptions{
		Timeout: millis(opts.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	path, err := download.Path()
	if err != nil {
		return nil, fmt.Errorf("download path unavailable: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading download failed: %w", err)
	}

	return &DownloadResult{
		Data:              data,
		SuggestedFilename: download.SuggestedFilename(),
	}, nil
}

// Screenshot captures the first matching element.
func (s *Session) Screenshot(selector string) ([]byte, error) {
	s.UpdateLastUsed()

	data, err := s.first(selector).Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Content returns the page's current HTML.
func (s *Session) Content() (string, error) {
	s.UpdateLastUsed()

	content, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return content, nil
}

// Alive reports whether the page is still open.
func (s *Session) Alive() bool {
	return s.Page != nil && !s.Page.IsClosed()
}

// SaveStorageState writes cookies and local storage to path.
func (s *Session) SaveStorageState(path string) error {
	if _, err := s.Context.StorageState(path); err != nil {
		return fmt.Errorf("failed to save storage state: %w", err)
	}
	return nil
}

// Close closes the persistent context, which also closes the browser.
func (s *Session) Close() error {
	return s.Context.Close()
}
