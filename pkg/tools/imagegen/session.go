package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/auth"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
)

// GetSessionStatusTool reports whether the browser profile is logged in.
type GetSessionStatusTool struct {
	deps Deps
}

// NewGetSessionStatusTool creates a new get_session_status tool.
func NewGetSessionStatusTool(deps Deps) *GetSessionStatusTool {
	return &GetSessionStatusTool{deps: deps.withDefaults()}
}

func (t *GetSessionStatusTool) Name() string {
	return "get_session_status"
}

func (t *GetSessionStatusTool) Description() string {
	return "Check if currently logged in to ElevenLabs and get session information"
}

func (t *GetSessionStatusTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// SessionStatusResult is the get_session_status result.
type SessionStatusResult struct {
	IsLoggedIn  bool    `json:"isLoggedIn"`
	Email       *string `json:"email"`
	LastChecked string  `json:"lastChecked"`
	Message     string  `json:"message"`
}

// Execute checks the live page. Failures are reported as logged out, never
// as errors.
func (t *GetSessionStatusTool) Execute(ctx context.Context, _ json.RawMessage) (string, map[string]interface{}, error) {
	status := auth.Status{LastChecked: time.Now()}

	err := t.deps.Browser.Exclusive(ctx, func(ctx context.Context) error {
		status = t.deps.Auth.Status(ctx)
		return nil
	})
	if err != nil {
		t.deps.Log.Warnf("session status unavailable: %v", err)
	}

	result := SessionStatusResult{
		IsLoggedIn:  status.IsLoggedIn,
		LastChecked: isoTime(status.LastChecked),
		Message:     MsgSessionNone,
	}
	if status.Email != "" {
		email := status.Email
		result.Email = &email
	}
	if status.IsLoggedIn {
		result.Message = MsgSessionActive
	}

	out, err := tools.MarshalResult(result)
	if err != nil {
		return "", nil, err
	}
	return out, map[string]interface{}{"logged_in": status.IsLoggedIn}, nil
}

// LoginTool signs in explicitly, without generating anything.
type LoginTool struct {
	deps Deps
}

// NewLoginTool creates a new login tool.
func NewLoginTool(deps Deps) *LoginTool {
	return &LoginTool{deps: deps.withDefaults()}
}

func (t *LoginTool) Name() string {
	return "login"
}

func (t *LoginTool) Description() string {
	return "Log in to ElevenLabs with the given credentials, or ELEVENLABS_EMAIL/ELEVENLABS_PASSWORD when omitted, and persist the session"
}

func (t *LoginTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"email":    tools.StringProperty("ElevenLabs account email"),
			"password": tools.StringProperty("ElevenLabs account password"),
		},
		nil,
	)
}

// LoginInput represents the parameters for login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the login result.
type LoginResult struct {
	Success bool   `json:"success"`
	Email   string `json:"email,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Execute performs one login attempt.
func (t *LoginTool) Execute(ctx context.Context, raw json.RawMessage) (string, map[string]interface{}, error) {
	var input LoginInput
	if err := tools.UnmarshalArguments(raw, &input); err != nil {
		return "", nil, err
	}

	creds := auth.ResolveCredentials(input.Email, input.Password, t.deps.Config)
	input.Password = ""

	var result LoginResult
	if creds == nil {
		result = LoginResult{Success: false, Error: MsgNoCredentials}
	} else {
		defer creds.Zero()
		result.Email = creds.Email

		err := t.deps.Browser.Exclusive(ctx, func(ctx context.Context) error {
			return t.deps.Auth.Login(ctx, *creds)
		})

		if err == nil {
			result.Success = true
		} else {
			result.Error = MsgAuthFailed
			var loginErr *auth.LoginError
			if errors.As(err, &loginErr) {
				result.Reason = loginErr.Reason.String()
				result.Detail = loginErr.Message
			} else {
				result.Detail = err.Error()
			}
		}
	}

	out, err := tools.MarshalResult(result)
	if err != nil {
		return "", nil, err
	}
	return out, map[string]interface{}{"success": result.Success}, nil
}

// LogoutTool signs out and clears the stored session.
type LogoutTool struct {
	deps Deps
}

// NewLogoutTool creates a new logout tool.
func NewLogoutTool(deps Deps) *LogoutTool {
	return &LogoutTool{deps: deps.withDefaults()}
}

func (t *LogoutTool) Name() string {
	return "logout"
}

func (t *LogoutTool) Description() string {
	return "Log out of ElevenLabs and delete the stored session"
}

func (t *LogoutTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// LogoutResult is the logout result.
type LogoutResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Execute logs out.
func (t *LogoutTool) Execute(ctx context.Context, _ json.RawMessage) (string, map[string]interface{}, error) {
	err := t.deps.Browser.Exclusive(ctx, func(ctx context.Context) error {
		return t.deps.Auth.Logout(ctx)
	})

	result := LogoutResult{Success: true, Message: MsgLoggedOut}
	if err != nil {
		result = LogoutResult{Success: false, Message: err.Error()}
	}

	out, err := tools.MarshalResult(result)
	if err != nil {
		return "", nil, err
	}
	return out, nil, nil
}
