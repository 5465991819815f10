package generation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/browser/browsertest"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/models"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

const (
	appURL     = "https://elevenlabs.io/app/image-video"
	historyURL = "https://elevenlabs.io/app/image-video/history"
	signInURL  = "https://elevenlabs.io/app/sign-in"
	resultSrc  = "https://replicate.delivery/xezq/out-0.png"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image data")

type pageSource struct {
	page *browsertest.Page
	err  error
}

func (p pageSource) Acquire(context.Context) (browser.Page, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.page, nil
}

type fixture struct {
	orch  *Orchestrator
	page  *browsertest.Page
	clock *browsertest.Clock
	dir   string
}

func testRoutes(t *testing.T) *browser.Routes {
	t.Helper()
	routes, err := browser.NewRoutes("https://elevenlabs.io", "*sign-in*", "*[Hh]istory*")
	require.NoError(t, err)
	return routes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	page := browsertest.NewPage("about:blank")
	clock := browsertest.NewClock(time.UnixMilli(1717243200000))
	dir := t.TempDir()

	orch := New(pageSource{page: page}, testRoutes(t), Options{
		AppURL:            appURL,
		SavePath:          dir,
		StrictAspectRatio: true,
		Clock:             clock,
	}, logging.Nop())

	return &fixture{orch: orch, page: page, clock: clock, dir: dir}
}

// happyPage scripts a page that generates and lands on history after submit.
func (f *fixture) happyPage() {
	f.page.Visible[site.PromptInput] = true
	f.page.Visible[site.GenerateButton] = true
	f.page.Visible[site.ResultImage] = true
	f.page.OnClick[site.GenerateButton] = func(p *browsertest.Page) {
		p.SetURL(historyURL)
	}
	f.page.Attrs[site.ResultImage] = map[string]string{"src": resultSrc}
	f.page.Fetches[resultSrc] = &browser.FetchResult{Status: 200, ContentType: "image/png", Body: pngBytes}
}

func TestGenerateSuccess(t *testing.T) {
	f := newFixture(t)
	f.happyPage()

	res := f.orch.Generate(context.Background(), Request{Prompt: "a red fox in snow"})

	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Error)
	assert.Equal(t, models.DefaultModel, res.Model)
	assert.Equal(t, "a red fox in snow", res.Prompt)
	assert.NotEmpty(t, res.JobID)

	want := filepath.Join(f.dir, "a-red-fox-in-snow-"+strconv.FormatInt(f.clock.Now().UnixMilli(), 10)+".png")
	assert.Equal(t, want, res.ImagePath)

	data, err := os.ReadFile(res.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	assert.True(t, f.page.NavigatedTo(appURL))
	assert.Equal(t, "a red fox in snow", f.page.Filled[site.PromptInput])
	assert.Contains(t, f.page.Clicks, site.GenerateButton)
	assert.Equal(t, []string{"Home"}, f.page.Keys)
}

func TestGenerateCustomSavePath(t *testing.T) {
	f := newFixture(t)
	f.happyPage()
	dir := filepath.Join(t.TempDir(), "out", "nested")

	res := f.orch.Generate(context.Background(), Request{Prompt: "x", SavePath: dir})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, dir, filepath.Dir(res.ImagePath))
	assert.FileExists(t, res.ImagePath)
}

func TestGenerateNotLoggedIn(t *testing.T) {
	f := newFixture(t)
	f.happyPage()
	f.page.OnNavigate = func(string) string { return signInURL }

	res := f.orch.Generate(context.Background(), Request{Prompt: "x"})

	assert.False(t, res.Success)
	assert.Equal(t, "Not logged in. Please authenticate first.", res.Error)
	assert.Equal(t, "x", res.Prompt)
	assert.Empty(t, f.page.Filled)
}

func TestGenerateInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"empty prompt", Request{Prompt: "   "}, "prompt is required"},
		{"unknown model", Request{Prompt: "x", Model: "dall-e-2"}, `unknown model "dall-e-2"`},
		{"unsupported ratio", Request{Prompt: "x", AspectRatio: "21:9"}, "21:9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.happyPage()

			res := f.orch.Generate(context.Background(), tt.req)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "invalid request")
			assert.Contains(t, res.Error, tt.want)
			assert.Empty(t, f.page.Navigations)
		})
	}
}

func TestGenerateLenientAspectRatio(t *testing.T) {
	page := browsertest.NewPage("about:blank")
	f := &fixture{page: page, clock: browsertest.NewClock(time.UnixMilli(1)), dir: t.TempDir()}
	f.orch = New(pageSource{page: page}, testRoutes(t), Options{
		AppURL:   appURL,
		SavePath: f.dir,
		Clock:    f.clock,
	}, logging.Nop())
	f.happyPage()

	res := f.orch.Generate(context.Background(), Request{Prompt: "x", AspectRatio: "21:9"})
	assert.True(t, res.Success, res.Error)
}

func TestGenerateSubmitFailures(t *testing.T) {
	t.Run("prompt input missing", func(t *testing.T) {
		f := newFixture(t)
		f.happyPage()
		f.page.Visible[site.PromptInput] = false

		res := f.orch.Generate(context.Background(), Request{Prompt: "x"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, ErrInputNotFound.Error())
	})

	t.Run("generate button missing", func(t *testing.T) {
		f := newFixture(t)
		f.happyPage()
		f.page.Visible[site.GenerateButton] = false

		res := f.orch.Generate(context.Background(), Request{Prompt: "x"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, ErrSubmitNotFound.Error())
		assert.Equal(t, "x", f.page.Filled[site.PromptInput])
	})
}

func TestGenerateProceedsAfterTimeout(t *testing.T) {
	f := newFixture(t)
	f.happyPage()
	// Never reaches history
	f.page.OnClick[site.GenerateButton] = nil

	res := f.orch.Generate(context.Background(), Request{Prompt: "slow one"})

	require.True(t, res.Success, res.Error)
	assert.FileExists(t, res.ImagePath)
	assert.GreaterOrEqual(t, f.clock.Elapsed(), DefaultWaiterOptions().Ceiling)
}

func TestGenerateArtifactNotFound(t *testing.T) {
	f := newFixture(t)
	f.happyPage()
	f.page.Visible[site.ResultImage] = false

	res := f.orch.Generate(context.Background(), Request{Prompt: "x"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrArtifactNotFound.Error(), res.Error)
}

func TestGenerateRecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.page.Panic = "driver exploded"

	res := f.orch.Generate(context.Background(), Request{Prompt: "x"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, ErrUnknown.Error())
	assert.Contains(t, res.Error, "driver exploded")
	assert.Equal(t, models.DefaultModel, res.Model)
}

func TestGenerateBrowserUnavailable(t *testing.T) {
	orch := New(pageSource{err: browser.ErrLaunch}, testRoutes(t), Options{
		AppURL:   appURL,
		SavePath: t.TempDir(),
		Clock:    browsertest.NewClock(time.Now()),
	}, logging.Nop())

	res := orch.Generate(context.Background(), Request{Prompt: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "browser launch failed")
}

func TestGenerateCanceled(t *testing.T) {
	f := newFixture(t)
	f.happyPage()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := f.orch.Generate(ctx, Request{Prompt: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, context.Canceled.Error())
}

func TestPrepareDismissesOverlays(t *testing.T) {
	f := newFixture(t)
	f.page.Visible[site.CookieAccept] = true
	f.page.Visible[site.TryNow] = true
	f.page.Visible[site.ImageToggle] = true

	require.NoError(t, f.orch.Prepare(context.Background(), f.page))

	assert.Equal(t, []string{site.CookieAccept, site.TryNow, site.ImageToggle}, f.page.Clicks)
	assert.Equal(t, []time.Duration{3 * time.Second, 500 * time.Millisecond, time.Second, 500 * time.Millisecond}, f.clock.Sleeps)
}

func TestPrepareNavigationFailure(t *testing.T) {
	f := newFixture(t)
	f.page.NavigateErr = errors.New("net::ERR_TIMED_OUT")

	err := f.orch.Prepare(context.Background(), f.page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open image generation page")
}

func TestConfigure(t *testing.T) {
	flux, ok := models.Lookup("flux-kontext-pro")
	require.True(t, ok)
	def, ok := models.Lookup(models.DefaultModel)
	require.True(t, ok)

	t.Run("default model leaves picker alone", func(t *testing.T) {
		f := newFixture(t)
		f.page.Visible[site.ModelSelector] = true

		f.orch.Configure(context.Background(), f.page, def, "")
		assert.Empty(t, f.page.Clicks)
	})

	t.Run("model and ratio", func(t *testing.T) {
		f := newFixture(t)
		f.page.Visible[site.ModelSelector] = true
		f.page.Visible[site.ModelOption(flux.Name)] = true
		f.page.Visible[site.AspectSelector] = true
		f.page.Visible[site.AspectOption("16:9")] = true

		f.orch.Configure(context.Background(), f.page, flux, "16:9")
		assert.Equal(t, []string{
			site.ModelSelector,
			site.ModelOption(flux.Name),
			site.AspectSelector,
			site.AspectOption("16:9"),
		}, f.page.Clicks)
	})

	t.Run("missing controls are skipped", func(t *testing.T) {
		f := newFixture(t)
		f.page.Visible[site.AspectSelector] = true

		f.orch.Configure(context.Background(), f.page, flux, "16:9")
		assert.Equal(t, []string{site.AspectSelector}, f.page.Clicks)
	})
}

func TestNegativePrompt(t *testing.T) {
	t.Run("supported model", func(t *testing.T) {
		f := newFixture(t)
		f.happyPage()
		f.page.Visible[site.NegativePrompt] = true

		res := f.orch.Generate(context.Background(), Request{Prompt: "x", Model: "seedream-4", NegativePrompt: "blur"})
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "blur", f.page.Filled[site.NegativePrompt])
	})

	t.Run("unsupported model", func(t *testing.T) {
		f := newFixture(t)
		f.happyPage()
		f.page.Visible[site.NegativePrompt] = true

		res := f.orch.Generate(context.Background(), Request{Prompt: "x", NegativePrompt: "blur"})
		require.True(t, res.Success, res.Error)
		assert.NotContains(t, f.page.Filled, site.NegativePrompt)
	})

	t.Run("field missing is not fatal", func(t *testing.T) {
		f := newFixture(t)
		f.happyPage()

		res := f.orch.Generate(context.Background(), Request{Prompt: "x", Model: "seedream-4", NegativePrompt: "blur"})
		assert.True(t, res.Success, res.Error)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "ü...", truncate("üü", 1))
}
