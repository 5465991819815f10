package browser_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/browser/browsertest"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
)

func newManager(t *testing.T, launcher browser.Launcher) (*browser.Manager, browser.ManagerOptions) {
	t.Helper()
	dir := t.TempDir()
	opts := browser.ManagerOptions{
		UserDataDir:      filepath.Join(dir, "browser-data"),
		StorageStatePath: filepath.Join(dir, "auth", "session.json"),
		RootURL:          "https://elevenlabs.io/",
		Headless:         true,
	}
	return browser.NewManager(opts, launcher, logging.Nop()), opts
}

func TestManagerAcquireLaunchesOnce(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, opts := newManager(t, launcher)

	page, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://elevenlabs.io/", page.URL())
	assert.DirExists(t, opts.UserDataDir)

	again, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, page, again)
	assert.Equal(t, 1, launcher.LaunchCount())

	launch := launcher.Launches[0]
	assert.Equal(t, opts.UserDataDir, launch.UserDataDir)
	assert.True(t, launch.Headless)
	assert.Equal(t, "https://elevenlabs.io/", launch.Referer)
}

func TestManagerRelaunchesClosedPage(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, _ := newManager(t, launcher)

	page, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, page.(*browsertest.Page).Close())
	assert.False(t, manager.Active())

	replacement, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, page, replacement)
	assert.Equal(t, 2, launcher.LaunchCount())
}

func TestManagerLaunchFailure(t *testing.T) {
	launcher := &browsertest.Launcher{Err: errors.New("no chromium")}
	manager, _ := newManager(t, launcher)

	_, err := manager.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrLaunch)
	assert.Contains(t, err.Error(), "no chromium")
}

func TestManagerInitialNavigationFailure(t *testing.T) {
	var page *browsertest.Page
	launcher := &browsertest.Launcher{NewPage: func() *browsertest.Page {
		page = browsertest.NewPage("about:blank")
		page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		return page
	}}
	manager, _ := newManager(t, launcher)

	_, err := manager.Acquire(context.Background())
	require.ErrorIs(t, err, browser.ErrLaunch)
	assert.True(t, page.Closed, "failed session should be closed")
	assert.False(t, manager.Active())
}

func TestManagerAcquireCanceled(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, _ := newManager(t, launcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := manager.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, launcher.LaunchCount())
}

func TestManagerReleaseIdempotent(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, _ := newManager(t, launcher)

	manager.Release()

	page, err := manager.Acquire(context.Background())
	require.NoError(t, err)

	manager.Release()
	manager.Release()

	assert.True(t, page.(*browsertest.Page).Closed)
	assert.False(t, manager.Active())
}

func TestManagerPersistState(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, opts := newManager(t, launcher)

	// No session yet
	require.NoError(t, manager.PersistState())

	page, err := manager.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, manager.PersistState())

	assert.Equal(t, []string{opts.StorageStatePath}, page.(*browsertest.Page).StateSaves)
	assert.DirExists(t, filepath.Dir(opts.StorageStatePath))
}

func TestManagerShutdown(t *testing.T) {
	launcher := &browsertest.Launcher{}
	manager, _ := newManager(t, launcher)

	_, err := manager.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, manager.Shutdown())
	assert.Equal(t, 1, launcher.Stops)
	assert.False(t, manager.Active())
}

func TestManagerExclusiveSerializes(t *testing.T) {
	manager, _ := newManager(t, &browsertest.Launcher{})

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Exclusive(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestManagerExclusiveCanceledWhileWaiting(t *testing.T) {
	manager, _ := newManager(t, &browsertest.Launcher{})

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = manager.Exclusive(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	err := manager.Exclusive(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	close(release)
	<-done
}

func TestManagerExclusivePropagatesError(t *testing.T) {
	manager, _ := newManager(t, &browsertest.Launcher{})
	boom := errors.New("boom")

	err := manager.Exclusive(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The slot is released after an error
	err = manager.Exclusive(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
}
