// Package generation drives the Image & Video page from prompt to saved file.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/models"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

// PageSource hands out the shared page. *browser.Manager implements it.
type PageSource interface {
	Acquire(ctx context.Context) (browser.Page, error)
}

// Options configures an Orchestrator.
type Options struct {
	AppURL   string
	SavePath string

	NavigationTimeout time.Duration
	DownloadTimeout   time.Duration
	Waiter            WaiterOptions

	// StrictAspectRatio rejects ratios the model does not list
	StrictAspectRatio bool

	// Clock defaults to browser.RealClock
	Clock browser.Clock
}

// UI timings
const (
	pageSettle        = 3 * time.Second
	precheckSettle    = 2 * time.Second
	overlayProbe      = 2 * time.Second
	toggleProbe       = time.Second
	pickerProbe       = 3 * time.Second
	optionProbe       = 2 * time.Second
	promptTimeout     = 10 * time.Second
	submitTimeout     = 5 * time.Second
	shortPause        = 300 * time.Millisecond
	mediumPause       = 500 * time.Millisecond
	popupDismissPause = time.Second
)

// Orchestrator runs generation requests against the page. Callers must hold
// the page (browser.Manager.Exclusive) for the duration of Generate.
type Orchestrator struct {
	pages     PageSource
	routes    *browser.Routes
	opts      Options
	extractor *Extractor
	log       *logging.Logger
}

// New creates an Orchestrator.
func New(pages PageSource, routes *browser.Routes, opts Options, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = browser.RealClock{}
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = browser.DefaultTimeout
	}
	if opts.DownloadTimeout == 0 {
		opts.DownloadTimeout = browser.DefaultTimeout
	}
	if opts.Waiter == (WaiterOptions{}) {
		opts.Waiter = DefaultWaiterOptions()
	}

	return &Orchestrator{
		pages:     pages,
		routes:    routes,
		opts:      opts,
		extractor: NewExtractor(opts.Clock, opts.DownloadTimeout, log),
		log:       log,
	}
}

// Generate produces one image. It never returns an error: every failure,
// panics included, is reported in the Result.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (result Result) {
	jobID := uuid.NewString()
	log := o.log.With("job", jobID)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic during generation: %v", r)
			result = Failure(req, fmt.Errorf("%w: %v", ErrUnknown, r))
			result.JobID = jobID
		}
	}()

	norm, model, err := normalize(req, o.opts.SavePath, o.opts.StrictAspectRatio)
	if err != nil {
		result = Failure(norm, err)
		result.JobID = jobID
		return result
	}
	req = norm

	log.Infof("generating image with %s: %q", req.Model, truncate(req.Prompt, 50))

	path, err := o.run(ctx, log, req, model)
	if err != nil {
		log.Errorf("generation failed: %v", err)
		result = Failure(req, err)
		result.JobID = jobID
		return result
	}

	return Result{
		Success:   true,
		ImagePath: path,
		Model:     req.Model,
		Prompt:    req.Prompt,
		JobID:     jobID,
	}
}

func (o *Orchestrator) run(ctx context.Context, log *logging.Logger, req Request, model models.Descriptor) (path string, err error) {
	page, err := o.pages.Acquire(ctx)
	if err != nil {
		return "", err
	}

	defer func() {
		if unexpectedPage(err) {
			browser.LogSnapshot(log, page, err.Error())
		}
	}()

	if err := o.Prepare(ctx, page); err != nil {
		return "", err
	}

	if o.routes.IsSignIn(page.URL()) {
		return "", ErrNotLoggedIn
	}

	if err := o.opts.Clock.Sleep(ctx, precheckSettle); err != nil {
		return "", err
	}

	o.Configure(ctx, page, model, req.AspectRatio)

	negative := req.NegativePrompt
	if negative != "" && !model.SupportsNegativePrompt {
		log.Warnf("%s does not support negative prompts, ignoring", model.ID)
		negative = ""
	}

	if err := o.Submit(ctx, page, req.Prompt, negative); err != nil {
		return "", err
	}

	waiter := NewWaiter(page, o.routes, o.opts.Clock, o.opts.Waiter, log)
	phase, err := waiter.Await(ctx)
	if err != nil {
		return "", err
	}
	log.Debugf("await finished in phase %s", phase)

	return o.extractor.Extract(ctx, page, req.SavePath, req.Prompt)
}

// unexpectedPage reports errors caused by the UI not matching the selectors.
func unexpectedPage(err error) bool {
	return errors.Is(err, ErrInputNotFound) ||
		errors.Is(err, ErrSubmitNotFound) ||
		errors.Is(err, ErrArtifactNotFound)
}

// Prepare opens the app route and clears the overlays that sit on top of it.
func (o *Orchestrator) Prepare(ctx context.Context, page browser.Page) error {
	o.log.Infof("navigating to image generation page")

	return browser.RunSteps(ctx, o.log,
		browser.Step{
			Name:   "open image generation page",
			Policy: browser.Required,
			Run: func(ctx context.Context) error {
				err := page.Navigate(o.opts.AppURL, browser.NavigateOptions{
					WaitUntil: browser.WaitDOMContentLoaded,
					Timeout:   o.opts.NavigationTimeout,
				})
				if err != nil {
					return err
				}
				return o.opts.Clock.Sleep(ctx, pageSettle)
			},
		},
		browser.Step{
			Name:   "dismiss cookie banner",
			Policy: browser.BestEffort,
			Run:    o.clickIfVisible(page, site.CookieAccept, overlayProbe, mediumPause),
		},
		browser.Step{
			Name:   "dismiss try now popup",
			Policy: browser.BestEffort,
			Run:    o.clickIfVisible(page, site.TryNow, overlayProbe, popupDismissPause),
		},
		browser.Step{
			Name:   "switch to image mode",
			Policy: browser.BestEffort,
			Run:    o.clickIfVisible(page, site.ImageToggle, toggleProbe, mediumPause),
		},
	)
}

// Configure selects the model and aspect ratio. Both are best-effort; the UI
// defaults apply when a control cannot be found.
func (o *Orchestrator) Configure(ctx context.Context, page browser.Page, model models.Descriptor, aspectRatio string) {
	var steps []browser.Step

	if model.ID != "" && model.ID != models.DefaultModel {
		o.log.Infof("selecting model: %s", model.Name)
		steps = append(steps, browser.Step{
			Name:   "select model " + model.ID,
			Policy: browser.BestEffort,
			Run:    o.pick(page, site.ModelSelector, pickerProbe, mediumPause, site.ModelOption(model.Name)),
		})
	}

	if aspectRatio != "" {
		o.log.Infof("setting aspect ratio: %s", aspectRatio)
		steps = append(steps, browser.Step{
			Name:   "select aspect ratio " + aspectRatio,
			Policy: browser.BestEffort,
			Run:    o.pick(page, site.AspectSelector, optionProbe, shortPause, site.AspectOption(aspectRatio)),
		})
	}

	// Only best-effort steps, so the error is always nil or ctx.Err()
	_ = browser.RunSteps(ctx, o.log, steps...)
}

// Submit enters the prompt and starts generation.
func (o *Orchestrator) Submit(ctx context.Context, page browser.Page, prompt, negativePrompt string) error {
	steps := []browser.Step{{
		Name:   "enter prompt",
		Policy: browser.Required,
		Run: func(context.Context) error {
			if err := page.WaitVisible(site.PromptInput, promptTimeout); err != nil {
				return fmt.Errorf("%w: %v", ErrInputNotFound, err)
			}
			if err := page.Click(browser.ClickOptions{Selector: site.PromptInput}); err != nil {
				return err
			}
			return page.Fill(browser.FillOptions{Selector: site.PromptInput, Value: prompt})
		},
	}}

	if negativePrompt != "" {
		steps = append(steps, browser.Step{
			Name:   "enter negative prompt",
			Policy: browser.BestEffort,
			Run: func(context.Context) error {
				if !page.IsVisible(site.NegativePrompt, optionProbe) {
					return fmt.Errorf("%w: negative prompt input", browser.ErrNotVisible)
				}
				return page.Fill(browser.FillOptions{Selector: site.NegativePrompt, Value: negativePrompt})
			},
		})
	}

	steps = append(steps, browser.Step{
		Name:   "click generate",
		Policy: browser.Required,
		Run: func(context.Context) error {
			if err := page.WaitVisible(site.GenerateButton, submitTimeout); err != nil {
				return fmt.Errorf("%w: %v", ErrSubmitNotFound, err)
			}
			return page.Click(browser.ClickOptions{Selector: site.GenerateButton})
		},
	})

	o.log.Infof("entering prompt")
	return browser.RunSteps(ctx, o.log, steps...)
}

// clickIfVisible clicks selector when it appears within probe, then pauses.
// Absence is not a failure.
func (o *Orchestrator) clickIfVisible(page browser.Page, selector string, probe, pause time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		if !page.IsVisible(selector, probe) {
			return nil
		}
		if err := page.Click(browser.ClickOptions{Selector: selector}); err != nil {
			return err
		}
		return o.opts.Clock.Sleep(ctx, pause)
	}
}

// pick opens a dropdown and clicks option in it.
func (o *Orchestrator) pick(page browser.Page, opener string, probe, pause time.Duration, option string) func(context.Context) error {
	return func(ctx context.Context) error {
		if !page.IsVisible(opener, probe) {
			return fmt.Errorf("%w: picker", browser.ErrNotVisible)
		}
		if err := page.Click(browser.ClickOptions{Selector: opener}); err != nil {
			return err
		}
		if err := o.opts.Clock.Sleep(ctx, pause); err != nil {
			return err
		}
		if !page.IsVisible(option, optionProbe) {
			return fmt.Errorf("%w: %s", browser.ErrNotVisible, option)
		}
		if err := page.Click(browser.ClickOptions{Selector: option}); err != nil {
			return err
		}
		return o.opts.Clock.Sleep(ctx, pause)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
