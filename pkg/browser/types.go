package browser

import (
	"errors"
	"time"
)

// Page is the set of page operations used by the auth and generation code.
// Locator-based methods act on the first element matching the selector.
type Page interface {
	// Navigate loads url and waits for the requested load state
	Navigate(url string, opts NavigateOptions) error

	// URL returns the page's current URL
	URL() string

	// IsVisible reports whether the selector becomes visible within timeout
	IsVisible(selector string, timeout time.Duration) bool

	// WaitVisible is IsVisible that reports the failure
	WaitVisible(selector string, timeout time.Duration) error

	// Click clicks the first element matching the selector
	Click(opts ClickOptions) error

	// ClickButtonText clicks the first button whose full visible text equals
	// text, ignoring case
	ClickButtonText(text string, timeout time.Duration) error

	// Fill replaces the value of an input or textarea
	Fill(opts FillOptions) error

	// TextContent returns the text of the first matching element
	TextContent(selector string) (string, error)

	// Attribute returns one attribute of the first matching element
	Attribute(selector, name string) (string, error)

	// Attributes returns the non-empty attribute values of every matching element
	Attributes(selector, name string) ([]string, error)

	// PressKey sends a keyboard key such as "Home"
	PressKey(key string) error

	// WaitForURL waits until match accepts the page URL
	WaitForURL(match func(url string) bool, timeout time.Duration) error

	// Fetch performs a GET through the page's network context, so cookies
	// and headers of the logged-in profile apply
	Fetch(url string) (*FetchResult, error)

	// Download clicks the trigger and captures the file-save event
	Download(opts DownloadOptions) (*DownloadResult, error)

	// Screenshot captures the first matching element as PNG
	Screenshot(selector string) ([]byte, error)

	// Content returns the serialized DOM of the page
	Content() (string, error)
}

// Handle is a launched browser profile: a Page plus lifecycle control.
type Handle interface {
	Page

	// Alive reports whether the underlying page is still usable
	Alive() bool

	// SaveStorageState writes cookies and local storage to path
	SaveStorageState(path string) error

	// Close closes the browser context
	Close() error
}

// Launcher starts browser profiles.
type Launcher interface {
	Launch(opts LaunchOptions) (Handle, error)

	// Stop releases the driver. Safe to call when nothing was launched.
	Stop() error
}

// LaunchOptions configures a persistent browser profile.
type LaunchOptions struct {
	// UserDataDir is the on-disk profile directory
	UserDataDir string

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Referer is sent with every request; the site's auth flow requires it
	Referer string

	// Viewport sets the initial viewport size
	Viewport Viewport

	// UserAgent overrides the browser's user agent
	UserAgent string

	// Timeout is the default timeout for page operations
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout (0 means default)
	Timeout time.Duration
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Selector identifies the element to click
	Selector string

	Timeout time.Duration
}

// FillOptions configures form input filling.
type FillOptions struct {
	// Selector identifies the input element
	Selector string

	// Value is the text to fill
	Value string

	Timeout time.Duration
}

// DownloadOptions configures a download triggered by a click.
type DownloadOptions struct {
	// Selector identifies the element whose click starts the download
	Selector string

	Timeout time.Duration
}

// FetchResult is the outcome of Page.Fetch.
type FetchResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// DownloadResult is the outcome of Page.Download.
type DownloadResult struct {
	Data              []byte
	SuggestedFilename string
}

// Wait states for NavigateOptions.WaitUntil
const (
	WaitLoad             = "load"
	WaitDOMContentLoaded = "domcontentloaded"
	WaitNetworkIdle      = "networkidle"
)

// Default values for the persistent profile
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1920
	DefaultViewportHeight = 1080
	DefaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	// ErrLaunch is returned when the profile directory or browser cannot start
	ErrLaunch = errors.New("browser launch failed")

	// ErrNotVisible is returned when an element does not appear in time
	ErrNotVisible = errors.New("element not visible")
)
