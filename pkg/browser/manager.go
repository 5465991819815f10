package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

// ManagerOptions configures the persistent profile owned by a Manager.
type ManagerOptions struct {
	// UserDataDir is the profile directory; created if missing
	UserDataDir string

	// StorageStatePath receives cookie/local-storage snapshots
	StorageStatePath string

	// RootURL is opened right after launch and sent as Referer
	RootURL string

	Headless          bool
	NavigationTimeout time.Duration
}

// Manager owns the single browser session of the process.
type Manager struct {
	mu       sync.Mutex
	opts     ManagerOptions
	launcher Launcher
	handle   Handle
	log      *logging.Logger

	// exclusive admits one caller at a time to the page
	exclusive *semaphore.Weighted
}

// NewManager creates a manager. Nothing is launched until Acquire.
func NewManager(opts ManagerOptions, launcher Launcher, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = DefaultTimeout
	}
	return &Manager{
		opts:      opts,
		launcher:  launcher,
		log:       log,
		exclusive: semaphore.NewWeighted(1),
	}
}

// Exclusive runs fn while holding the page. Callers queue in arrival order;
// a caller whose ctx ends while waiting gets ctx.Err() and fn is not run.
func (m *Manager) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.exclusive.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for browser: %w", err)
	}
	defer m.exclusive.Release(1)

	return fn(ctx)
}

// Acquire returns the live page, launching the profile if needed. A page that
// was closed underneath us is discarded and replaced.
func (m *Manager) Acquire(ctx context.Context) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.handle != nil {
		if m.handle.Alive() {
			return m.handle, nil
		}
		m.log.Warnf("browser page is no longer usable, relaunching")
		if err := m.handle.Close(); err != nil {
			m.log.Debugf("closing stale context: %v", err)
		}
		m.handle = nil
	}

	if err := os.MkdirAll(m.opts.UserDataDir, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create profile directory: %v", ErrLaunch, err)
	}

	handle, err := m.launcher.Launch(LaunchOptions{
		UserDataDir: m.opts.UserDataDir,
		Headless:    m.opts.Headless,
		Referer:     m.opts.RootURL,
		Timeout:     m.opts.NavigationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	// Opening the root first makes sure the init script is applied
	if m.opts.RootURL != "" {
		err = handle.Navigate(m.opts.RootURL, NavigateOptions{
			WaitUntil: WaitDOMContentLoaded,
			Timeout:   m.opts.NavigationTimeout,
		})
		if err != nil {
			_ = handle.Close()
			return nil, fmt.Errorf("%w: initial navigation: %v", ErrLaunch, err)
		}
	}

	m.handle = handle
	m.log.Infof("browser initialized")
	return handle, nil
}

// Active reports whether a live session exists.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle != nil && m.handle.Alive()
}

// Release closes the session. Close errors are logged, not returned.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return
	}
	if err := m.handle.Close(); err != nil {
		m.log.Warnf("error closing browser context: %v", err)
	}
	m.handle = nil
	m.log.Infof("browser closed")
}

// PersistState snapshots cookies and local storage to the storage-state
// file. It is a no-op when no session is active.
func (m *Manager) PersistState() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		m.log.Debugf("no active session, skipping state snapshot")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.opts.StorageStatePath), 0750); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := m.handle.SaveStorageState(m.opts.StorageStatePath); err != nil {
		return err
	}

	m.log.Infof("session state saved")
	return nil
}

// Shutdown releases the session and stops the driver.
func (m *Manager) Shutdown() error {
	m.Release()
	return m.launcher.Stop()
}
