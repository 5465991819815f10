// Package browsertest provides scriptable in-memory implementations of the
// browser interfaces for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
)

// ErrNotFound is returned by fake lookups with no scripted answer.
var ErrNotFound = errors.New("browsertest: not scripted")

// Page is a fake browser.Handle. Exported maps may be filled before use;
// after that, mutate through the setter methods.
type Page struct {
	mu sync.Mutex

	CurrentURL string

	// Visible lists selectors that are visible. VisibleFunc wins when set.
	Visible     map[string]bool
	VisibleFunc func(selector string) bool

	Texts     map[string]string
	Attrs     map[string]map[string]string
	AttrLists map[string][]string
	Fetches   map[string]*browser.FetchResult
	Downloads map[string]*browser.DownloadResult
	Shots     map[string][]byte

	// HTML is returned by Content; ContentErr wins when set
	HTML       string
	ContentErr error

	// OnNavigate returns the URL the page ends up on; nil means no redirect
	OnNavigate  func(url string) string
	NavigateErr error

	// OnClick hooks run after a click on the given selector
	OnClick map[string]func(p *Page)

	// OnButton hooks run after a click on a button with the given text
	// (lowercase)
	OnButton map[string]func(p *Page)

	// Panic makes every Navigate panic with this value
	Panic any

	Navigations []string
	Clicks      []string
	Buttons     []string
	Filled      map[string]string
	Keys        []string
	StateSaves  []string
	Closed      bool
}

var _ browser.Handle = (*Page)(nil)

// NewPage returns a fake page at url.
func NewPage(url string) *Page {
	return &Page{
		CurrentURL: url,
		Visible:    map[string]bool{},
		Texts:      map[string]string{},
		Attrs:      map[string]map[string]string{},
		AttrLists:  map[string][]string{},
		Fetches:    map[string]*browser.FetchResult{},
		Downloads:  map[string]*browser.DownloadResult{},
		Shots:      map[string][]byte{},
		OnClick:    map[string]func(*Page){},
		OnButton:   map[string]func(*Page){},
		Filled:     map[string]string{},
	}
}

// SetURL moves the page.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CurrentURL = url
}

// SetVisible shows or hides a selector.
func (p *Page) SetVisible(selector string, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visible[selector] = visible
}

// Close marks the page closed; Alive reports false afterwards.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

func (p *Page) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.Closed
}

func (p *Page) SaveStorageState(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StateSaves = append(p.StateSaves, path)
	return nil
}

func (p *Page) Navigate(url string, _ browser.NavigateOptions) error {
	p.mu.Lock()
	if p.Panic != nil {
		v := p.Panic
		p.mu.Unlock()
		panic(v)
	}
	p.Navigations = append(p.Navigations, url)
	if p.NavigateErr != nil {
		err := p.NavigateErr
		p.mu.Unlock()
		return err
	}
	hook := p.OnNavigate
	p.CurrentURL = url
	p.mu.Unlock()

	if hook != nil {
		if final := hook(url); final != "" {
			p.SetURL(final)
		}
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CurrentURL
}

func (p *Page) isVisible(selector string) bool {
	p.mu.Lock()
	fn := p.VisibleFunc
	visible := p.Visible[selector]
	p.mu.Unlock()

	if fn != nil {
		return fn(selector)
	}
	return visible
}

func (p *Page) IsVisible(selector string, _ time.Duration) bool {
	return p.isVisible(selector)
}

func (p *Page) WaitVisible(selector string, _ time.Duration) error {
	if !p.isVisible(selector) {
		return fmt.Errorf("%w: %s", browser.ErrNotVisible, selector)
	}
	return nil
}

func (p *Page) Click(opts browser.ClickOptions) error {
	if !p.isVisible(opts.Selector) {
		return fmt.Errorf("click failed: %w: %s", browser.ErrNotVisible, opts.Selector)
	}

	p.mu.Lock()
	p.Clicks = append(p.Clicks, opts.Selector)
	hook := p.OnClick[opts.Selector]
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) ClickButtonText(text string, _ time.Duration) error {
	key := strings.ToLower(strings.TrimSpace(text))

	p.mu.Lock()
	hook, ok := p.OnButton[key]
	if ok {
		p.Buttons = append(p.Buttons, key)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("click %q failed: %w", text, ErrNotFound)
	}
	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *Page) Fill(opts browser.FillOptions) error {
	if !p.isVisible(opts.Selector) {
		return fmt.Errorf("fill failed: %w: %s", browser.ErrNotVisible, opts.Selector)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.Filled[opts.Selector] = opts.Value
	return nil
}

func (p *Page) TextContent(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	text, ok := p.Texts[selector]
	if !ok {
		return "", fmt.Errorf("text %s: %w", selector, ErrNotFound)
	}
	return text, nil
}

func (p *Page) Attribute(selector, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	value, ok := p.Attrs[selector][name]
	if !ok {
		return "", fmt.Errorf("attribute %s of %s: %w", name, selector, ErrNotFound)
	}
	return value, nil
}

func (p *Page) Attributes(selector, _ string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.AttrLists[selector]...), nil
}

func (p *Page) PressKey(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Keys = append(p.Keys, key)
	return nil
}

// WaitForURL checks the current URL once; fakes do not change on their own.
func (p *Page) WaitForURL(match func(url string) bool, _ time.Duration) error {
	if match(p.URL()) {
		return nil
	}
	return fmt.Errorf("wait for url failed: timeout at %s", p.URL())
}

func (p *Page) Fetch(url string) (*browser.FetchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.Fetches[url]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrNotFound)
	}
	return res, nil
}

func (p *Page) Download(opts browser.DownloadOptions) (*browser.DownloadResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.Downloads[opts.Selector]
	if !ok {
		return nil, fmt.Errorf("download %s: %w", opts.Selector, ErrNotFound)
	}
	return res, nil
}

func (p *Page) Screenshot(selector string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.Shots[selector]
	if !ok {
		return nil, fmt.Errorf("screenshot %s: %w", selector, ErrNotFound)
	}
	return data, nil
}

func (p *Page) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ContentErr != nil {
		return "", p.ContentErr
	}
	return p.HTML, nil
}

// NavigatedTo reports whether url was ever requested.
func (p *Page) NavigatedTo(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.Navigations {
		if n == url {
			return true
		}
	}
	return false
}

// Clock is a fake browser.Clock. Sleep advances Now immediately.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration

	// OnSleep runs after each sleep with the clock already advanced
	OnSleep func(total time.Duration)
	elapsed time.Duration
}

var _ browser.Clock = (*Clock)(nil)

// NewClock returns a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.elapsed += d
	c.Sleeps = append(c.Sleeps, d)
	hook := c.OnSleep
	elapsed := c.elapsed
	c.mu.Unlock()

	if hook != nil {
		hook(elapsed)
	}
	return ctx.Err()
}

// Elapsed is the total slept time.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Launcher is a fake browser.Launcher handing out pages from NewPage.
type Launcher struct {
	mu sync.Mutex

	// NewPage builds the page for each launch; defaults to a blank page
	NewPage func() *Page
	Err     error

	Launches []browser.LaunchOptions
	Pages    []*Page
	Stops    int
}

var _ browser.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(opts browser.LaunchOptions) (browser.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Launches = append(l.Launches, opts)
	if l.Err != nil {
		return nil, l.Err
	}

	var page *Page
	if l.NewPage != nil {
		page = l.NewPage()
	} else {
		page = NewPage("about:blank")
	}
	l.Pages = append(l.Pages, page)
	return page, nil
}

func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Stops++
	return nil
}

// LaunchCount returns the number of Launch calls.
func (l *Launcher) LaunchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Launches)
}
