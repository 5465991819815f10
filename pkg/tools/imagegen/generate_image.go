package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/imagegen-mcp/pkg/auth"
	"github.com/entrhq/imagegen-mcp/pkg/generation"
	"github.com/entrhq/imagegen-mcp/pkg/models"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
)

// GenerateImageTool generates an image through the web UI and saves it.
type GenerateImageTool struct {
	deps Deps
}

// NewGenerateImageTool creates a new generate_image tool.
func NewGenerateImageTool(deps Deps) *GenerateImageTool {
	return &GenerateImageTool{deps: deps.withDefaults()}
}

// Name returns the tool name.
func (t *GenerateImageTool) Name() string {
	return "generate_image"
}

// Description returns the tool description.
func (t *GenerateImageTool) Description() string {
	return "Generate an image using ElevenLabs Image & Video feature. Returns the path to the downloaded image file."
}

// Schema returns the tool's JSON schema.
func (t *GenerateImageTool) Schema() map[string]interface{} {
	ids := models.IDs()
	savePath := "assets/"
	if t.deps.Config != nil {
		savePath = t.deps.Config.SavePath
	}

	return tools.BaseToolSchema(
		map[string]interface{}{
			"prompt": tools.StringProperty("The text prompt describing the image to generate"),
			"model": tools.StringProperty(
				fmt.Sprintf("Model to use. Options: %s. Default: %s", strings.Join(ids, ", "), models.DefaultModel),
				ids...,
			),
			"savePath":       tools.StringProperty("Directory to save the image. Default: " + savePath),
			"aspectRatio":    tools.StringProperty(`Aspect ratio (e.g., "1:1", "16:9", "9:16")`),
			"negativePrompt": tools.StringProperty("What to avoid in the generated image"),
			"email":          tools.StringProperty("ElevenLabs account email (for authentication if not logged in)"),
			"password":       tools.StringProperty("ElevenLabs account password (for authentication if not logged in)"),
		},
		[]string{"prompt"},
	)
}

// GenerateImageInput represents the parameters for generate_image.
type GenerateImageInput struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	SavePath       string `json:"savePath"`
	AspectRatio    string `json:"aspectRatio"`
	NegativePrompt string `json:"negativePrompt"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

// authFailure is returned when a login attempt was made and failed.
type authFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Execute authenticates if needed and generates the image.
func (t *GenerateImageTool) Execute(ctx context.Context, raw json.RawMessage) (string, map[string]interface{}, error) {
	var input GenerateImageInput
	if err := tools.UnmarshalArguments(raw, &input); err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(input.Prompt) == "" {
		return "", nil, fmt.Errorf("prompt is required")
	}

	req := generation.Request{
		Prompt:         input.Prompt,
		Model:          input.Model,
		SavePath:       input.SavePath,
		AspectRatio:    input.AspectRatio,
		NegativePrompt: input.NegativePrompt,
	}

	// Bad requests are answered before the browser starts or a login is tried
	norm, err := generation.Validate(req, t.savePath(), t.strict())
	if err != nil {
		out, merr := tools.MarshalResult(generation.Failure(norm, err))
		if merr != nil {
			return "", nil, merr
		}
		return out, map[string]interface{}{"success": false, "invalid": true}, nil
	}

	creds := auth.ResolveCredentials(input.Email, input.Password, t.deps.Config)
	input.Password = ""
	if creds != nil {
		defer creds.Zero()
	}

	if t.deps.Limiter != nil {
		if err := t.deps.Limiter.Wait(ctx); err != nil {
			return "", nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var payload interface{}
	metadata := map[string]interface{}{}

	err = t.deps.Browser.Exclusive(ctx, func(ctx context.Context) error {
		ok, err := t.deps.Auth.EnsureAuthenticated(ctx, creds)
		if !ok && creds == nil && err != nil {
			t.deps.Log.Warnf("session check failed, browser may not have started: %v", err)
		}
		if !ok {
			payload = authPayload(creds, err)
			metadata["authenticated"] = false
			return nil
		}

		result := t.deps.Generator.Generate(ctx, req)
		payload = result
		metadata["job_id"] = result.JobID
		metadata["success"] = result.Success
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	out, err := tools.MarshalResult(payload)
	if err != nil {
		return "", nil, err
	}
	return out, metadata, nil
}

func (t *GenerateImageTool) savePath() string {
	if t.deps.Config == nil {
		return ""
	}
	return t.deps.Config.SavePath
}

func (t *GenerateImageTool) strict() bool {
	return t.deps.Config == nil || t.deps.Config.StrictAspectRatio
}

func authPayload(creds *auth.Credentials, err error) interface{} {
	if creds == nil {
		return generation.Result{Success: false, Error: MsgNoCredentials}
	}

	failure := authFailure{Success: false, Error: MsgAuthFailed}
	var loginErr *auth.LoginError
	if errors.As(err, &loginErr) {
		failure.Reason = loginErr.Reason.String()
		failure.Detail = loginErr.Message
	}
	return failure
}
