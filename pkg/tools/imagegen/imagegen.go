// Package imagegen implements the image generation tools: generate_image,
// list_models, get_session_status, login and logout.
package imagegen

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/entrhq/imagegen-mcp/pkg/auth"
	"github.com/entrhq/imagegen-mcp/pkg/config"
	"github.com/entrhq/imagegen-mcp/pkg/generation"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
)

// Messages returned to clients
const (
	MsgNoCredentials = "Not logged in. Please provide email and password via tool parameters or ELEVENLABS_EMAIL/ELEVENLABS_PASSWORD environment variables."
	MsgAuthFailed    = "Failed to authenticate. Please check your credentials."
	MsgSessionActive = "Session is active and valid"
	MsgSessionNone   = "Not logged in. Please provide credentials to authenticate."
	MsgLoggedOut     = "Logged out"
)

// Runner serializes access to the page. *browser.Manager implements it.
type Runner interface {
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Authenticator is the auth surface the tools use. *auth.Authenticator
// implements it.
type Authenticator interface {
	Status(ctx context.Context) auth.Status
	Login(ctx context.Context, creds auth.Credentials) error
	Logout(ctx context.Context) error
	EnsureAuthenticated(ctx context.Context, creds *auth.Credentials) (bool, error)
}

// Generator runs one generation. *generation.Orchestrator implements it.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) generation.Result
}

// Deps are shared by all tools.
type Deps struct {
	Browser   Runner
	Auth      Authenticator
	Generator Generator
	Config    *config.Config

	// Limiter throttles generate_image; nil means unlimited
	Limiter *rate.Limiter

	Log *logging.Logger
}

// NewLimiter allows perMinute generations per minute with no burst beyond
// one. Zero or less disables throttling.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return d
}

// NewTools returns every tool in the order they are advertised.
func NewTools(deps Deps) []tools.Tool {
	return []tools.Tool{
		NewGenerateImageTool(deps),
		NewListModelsTool(),
		NewGetSessionStatusTool(deps),
		NewLoginTool(deps),
		NewLogoutTool(deps),
	}
}

// NewRegistry registers every tool.
func NewRegistry(deps Deps) (*tools.Registry, error) {
	return tools.NewRegistry(NewTools(deps)...)
}

// isoTime formats t the way JavaScript's Date.toISOString does.
func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
