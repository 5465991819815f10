// Package auth tracks whether the browser profile is logged in to the site
// and drives the sign-in form when it is not.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

// State is the last known authentication state.
type State int

const (
	StateUnknown State = iota
	StateChecking
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is the outcome of a live session check.
type Status struct {
	IsLoggedIn  bool
	Email       string
	LastChecked time.Time
}

// Reason classifies a failed login.
type Reason int

const (
	// ReasonNavigation covers page loads and form interactions that failed
	ReasonNavigation Reason = iota

	// ReasonFormNotFound means the email field never appeared
	ReasonFormNotFound

	// ReasonRejected means the site showed an inline error
	ReasonRejected

	// ReasonStillOnSignIn means the form was submitted but nothing happened
	ReasonStillOnSignIn
)

func (r Reason) String() string {
	switch r {
	case ReasonNavigation:
		return "navigation"
	case ReasonFormNotFound:
		return "form_not_found"
	case ReasonRejected:
		return "rejected"
	case ReasonStillOnSignIn:
		return "still_on_sign_in"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// LoginError describes why Login failed.
type LoginError struct {
	Reason Reason

	// Message is the site's inline error text, when there was one
	Message string

	Err error
}

func (e *LoginError) Error() string {
	msg := "login failed (" + e.Reason.String() + ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// LoginOK reports whether a Login result means the profile is logged in.
func LoginOK(err error) bool {
	return err == nil
}

// PageSource hands out the shared page. *browser.Manager implements it.
type PageSource interface {
	Acquire(ctx context.Context) (browser.Page, error)
	PersistState() error
}

// Options configures an Authenticator.
type Options struct {
	AppURL            string
	LoginURL          string
	NavigationTimeout time.Duration

	// Clock defaults to browser.RealClock
	Clock browser.Clock
}

// Fixed waits observed on the site
const (
	settleDelay        = 2 * time.Second
	emailFieldTimeout  = 10 * time.Second
	cookieTimeout      = 2 * time.Second
	errorProbeTimeout  = time.Second
	userMenuTimeout    = 3 * time.Second
	logoutTimeout      = 2 * time.Second
	overlayDismissWait = 500 * time.Millisecond
)

// Authenticator checks and establishes the logged-in state of the profile.
// Callers must hold the page (browser.Manager.Exclusive) while using it.
type Authenticator struct {
	pages  PageSource
	store  *SessionStore
	routes *browser.Routes
	opts   Options
	log    *logging.Logger

	mu    sync.Mutex
	state State
}

// New creates an Authenticator.
func New(pages PageSource, store *SessionStore, routes *browser.Routes, opts Options, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = browser.RealClock{}
	}
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = browser.DefaultTimeout
	}
	return &Authenticator{
		pages:  pages,
		store:  store,
		routes: routes,
		opts:   opts,
		log:    log,
	}
}

// State returns the last known state.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authenticator) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()

	if prev != s {
		a.log.Debugf("auth state %s -> %s", prev, s)
	}
}

// Status checks the live page. It never fails: any fault is reported as not
// logged in.
func (a *Authenticator) Status(ctx context.Context) Status {
	status, _ := a.status(ctx)
	return status
}

// status is Status plus the reason the page could not be checked, if any.
func (a *Authenticator) status(ctx context.Context) (Status, error) {
	a.setState(StateChecking)

	loggedIn, checkErr := a.checkPage(ctx)
	if checkErr != nil {
		a.log.Warnf("session check failed: %v", checkErr)
	}

	status := Status{IsLoggedIn: loggedIn}

	rec, err := a.store.Load()
	if err != nil {
		a.log.Warnf("ignoring session record: %v", err)
	}
	if rec != nil {
		status.Email = rec.Email

		// The stored flag is only a hint; correct it when the site disagrees.
		// A page that could not be checked says nothing about the session.
		if rec.IsValid && !loggedIn && checkErr == nil {
			rec.IsValid = false
			if err := a.store.Save(*rec); err != nil {
				a.log.Warnf("failed to invalidate session record: %v", err)
			}
		}
	}

	if loggedIn {
		a.setState(StateAuthenticated)
	} else {
		a.setState(StateUnauthenticated)
	}

	status.LastChecked = a.opts.Clock.Now()
	return status, checkErr
}

func (a *Authenticator) checkPage(ctx context.Context) (bool, error) {
	page, err := a.pages.Acquire(ctx)
	if err != nil {
		return false, err
	}

	if !a.routes.OnSite(page.URL()) {
		err = page.Navigate(a.opts.AppURL, browser.NavigateOptions{
			WaitUntil: browser.WaitDOMContentLoaded,
			Timeout:   a.opts.NavigationTimeout,
		})
		if err != nil {
			return false, err
		}
	}

	// Give client-side redirects to sign-in time to happen
	if err := a.opts.Clock.Sleep(ctx, settleDelay); err != nil {
		return false, err
	}

	return a.routes.IsAuthenticated(page.URL()), nil
}

// Login signs in with creds. The error is a *LoginError for every failure
// that reached the site.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) error {
	if !creds.Valid() {
		return ErrNoCredentials
	}

	a.setState(StateChecking)
	err := a.login(ctx, creds)
	if err != nil {
		a.setState(StateUnauthenticated)
		a.log.Warnf("login failed: %v", err)
		return err
	}

	a.setState(StateAuthenticated)
	a.log.Infof("login successful")
	return nil
}

func (a *Authenticator) login(ctx context.Context, creds Credentials) error {
	page, err := a.pages.Acquire(ctx)
	if err != nil {
		return &LoginError{Reason: ReasonNavigation, Err: err}
	}

	a.log.Infof("navigating to login page")
	err = page.Navigate(a.opts.LoginURL, browser.NavigateOptions{
		WaitUntil: browser.WaitNetworkIdle,
		Timeout:   a.opts.NavigationTimeout,
	})
	if err != nil {
		return &LoginError{Reason: ReasonNavigation, Err: err}
	}

	if err := page.WaitVisible(site.EmailInput, emailFieldTimeout); err != nil {
		browser.LogSnapshot(a.log, page, "login form not found")
		return &LoginError{Reason: ReasonFormNotFound, Err: err}
	}

	err = browser.RunSteps(ctx, a.log,
		browser.Step{
			Name:   "dismiss cookie banner",
			Policy: browser.BestEffort,
			Run:    a.dismiss(page, site.CookieAccept, cookieTimeout),
		},
		browser.Step{
			Name:   "fill email",
			Policy: browser.Required,
			Run: func(context.Context) error {
				return page.Fill(browser.FillOptions{Selector: site.EmailInput, Value: creds.Email})
			},
		},
		browser.Step{
			Name:   "fill password",
			Policy: browser.Required,
			Run: func(context.Context) error {
				return page.Fill(browser.FillOptions{Selector: site.PasswordInput, Value: creds.Password.Reveal()})
			},
		},
		browser.Step{
			Name:   "submit sign in",
			Policy: browser.Required,
			Run: func(context.Context) error {
				return page.ClickButtonText(site.SignInButtonText, a.opts.NavigationTimeout)
			},
		},
	)
	if err != nil {
		return &LoginError{Reason: ReasonNavigation, Err: err}
	}

	waitErr := page.WaitForURL(func(u string) bool {
		return !a.routes.IsSignIn(u)
	}, a.opts.NavigationTimeout)

	if a.routes.IsSignIn(page.URL()) {
		if page.IsVisible(site.LoginError, errorProbeTimeout) {
			text, _ := page.TextContent(site.LoginError)
			return &LoginError{Reason: ReasonRejected, Message: text}
		}
		browser.LogSnapshot(a.log, page, "still on sign-in")
		return &LoginError{Reason: ReasonStillOnSignIn, Err: waitErr}
	}

	// The profile directory keeps cookies on its own; the snapshot is a bonus
	if err := a.pages.PersistState(); err != nil {
		a.log.Warnf("failed to save session state: %v", err)
	}

	err = a.store.Save(SessionRecord{
		Email:     creds.Email,
		LastLogin: a.opts.Clock.Now().UTC(),
		IsValid:   true,
	})
	if err != nil {
		a.log.Warnf("%v", err)
	}

	return nil
}

// dismiss clicks selector if it shows up within timeout.
func (a *Authenticator) dismiss(page browser.Page, selector string, timeout time.Duration) func(context.Context) error {
	return func(ctx context.Context) error {
		if !page.IsVisible(selector, timeout) {
			return nil
		}
		if err := page.Click(browser.ClickOptions{Selector: selector}); err != nil {
			return err
		}
		return a.opts.Clock.Sleep(ctx, overlayDismissWait)
	}
}

// Logout signs out through the user menu if it can find it and always clears
// the stored session.
func (a *Authenticator) Logout(ctx context.Context) error {
	page, err := a.pages.Acquire(ctx)
	if err != nil {
		a.log.Warnf("logout without browser: %v", err)
	} else {
		_ = browser.RunSteps(ctx, a.log,
			browser.Step{
				Name:   "open user menu",
				Policy: browser.BestEffort,
				Run:    a.dismiss(page, site.UserMenu, userMenuTimeout),
			},
			browser.Step{
				Name:   "click log out",
				Policy: browser.BestEffort,
				Run: func(context.Context) error {
					if !page.IsVisible(site.LogoutButton, logoutTimeout) {
						return fmt.Errorf("%w: %s", browser.ErrNotVisible, site.LogoutButton)
					}
					return page.Click(browser.ClickOptions{Selector: site.LogoutButton})
				},
			},
		)
	}

	a.setState(StateUnauthenticated)
	if err := a.store.Clear(); err != nil {
		return err
	}

	a.log.Infof("logged out, removed %s", a.store.MetadataPath())
	return nil
}

// EnsureAuthenticated reports whether the page is logged in, attempting a
// single login with creds when it is not and creds is non-nil.
//
// Without creds, a page that could not be checked is reported as not logged
// in along with the check error, so callers can tell a browser fault from a
// missing session.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, creds *Credentials) (bool, error) {
	status, checkErr := a.status(ctx)
	if status.IsLoggedIn {
		return true, nil
	}
	if creds == nil {
		if checkErr != nil {
			a.log.Warnf("session could not be checked, reporting not logged in: %v", checkErr)
		}
		return false, checkErr
	}

	a.log.Infof("not logged in, attempting authentication")
	if err := a.Login(ctx, *creds); err != nil {
		return false, err
	}
	return true, nil
}
