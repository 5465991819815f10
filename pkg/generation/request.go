package generation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/imagegen-mcp/pkg/models"
)

var (
	// ErrInvalidRequest is returned for requests rejected before touching the page
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotLoggedIn is returned when the app route bounces to sign-in
	ErrNotLoggedIn = errors.New("Not logged in. Please authenticate first.")

	// ErrInputNotFound is returned when the prompt field never appears
	ErrInputNotFound = errors.New("prompt input not found")

	// ErrSubmitNotFound is returned when the generate control never appears
	ErrSubmitNotFound = errors.New("generate button not found")

	// ErrArtifactNotFound is returned when every extraction strategy failed
	ErrArtifactNotFound = errors.New("Failed to download image - no suitable image found")

	// ErrUnknown wraps recovered panics
	ErrUnknown = errors.New("unknown error during image generation")
)

// Request describes one image to generate.
type Request struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	SavePath       string `json:"savePath,omitempty"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	NegativePrompt string `json:"negativePrompt,omitempty"`
}

// Result is the outcome of Generate. Exactly one of ImagePath and Error is set.
type Result struct {
	Success   bool   `json:"success"`
	ImagePath string `json:"imagePath,omitempty"`
	Error     string `json:"error,omitempty"`
	Model     string `json:"model,omitempty"`
	Prompt    string `json:"prompt,omitempty"`

	// JobID correlates log lines for one request
	JobID string `json:"-"`
}

// Failure builds an unsuccessful result.
func Failure(req Request, err error) Result {
	return Result{
		Success: false,
		Error:   err.Error(),
		Model:   req.Model,
		Prompt:  req.Prompt,
	}
}

// Validate fills defaults and checks req against the model catalog without
// touching the browser. The returned request is what Generate would run.
func Validate(req Request, defaultSavePath string, strict bool) (Request, error) {
	norm, _, err := normalize(req, defaultSavePath, strict)
	return norm, err
}

// normalize fills defaults and checks the request against the catalog.
// strict turns unsupported aspect ratios into errors.
func normalize(req Request, defaultSavePath string, strict bool) (Request, models.Descriptor, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return req, models.Descriptor{}, fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}

	if req.Model == "" {
		req.Model = models.DefaultModel
	}
	if req.SavePath == "" {
		req.SavePath = defaultSavePath
	}

	model, ok := models.Lookup(req.Model)
	if !ok {
		return req, model, fmt.Errorf("%w: unknown model %q (available: %s)",
			ErrInvalidRequest, req.Model, strings.Join(models.IDs(), ", "))
	}

	if strict {
		if err := model.ValidateAspectRatio(req.AspectRatio); err != nil {
			return req, model, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	return req, model, nil
}
