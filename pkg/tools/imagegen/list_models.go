package imagegen

import (
	"context"
	"encoding/json"

	"github.com/entrhq/imagegen-mcp/pkg/models"
	"github.com/entrhq/imagegen-mcp/pkg/tools"
)

// ListModelsTool lists the model catalog. It never touches the browser.
type ListModelsTool struct{}

// NewListModelsTool creates a new list_models tool.
func NewListModelsTool() *ListModelsTool {
	return &ListModelsTool{}
}

// Name returns the tool name.
func (t *ListModelsTool) Name() string {
	return "list_models"
}

// Description returns the tool description.
func (t *ListModelsTool) Description() string {
	return "List all available image generation models on ElevenLabs"
}

// Schema returns the tool's JSON schema.
func (t *ListModelsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// ModelInfo is one entry of the list_models result.
type ModelInfo struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	IsDefault              bool     `json:"isDefault"`
	AspectRatios           []string `json:"aspectRatios"`
	SupportsNegativePrompt bool     `json:"supportsNegativePrompt"`
}

// ListModelsResult is the list_models result.
type ListModelsResult struct {
	Models       []ModelInfo `json:"models"`
	DefaultModel string      `json:"defaultModel"`
}

// Execute returns the catalog.
func (t *ListModelsTool) Execute(_ context.Context, _ json.RawMessage) (string, map[string]interface{}, error) {
	catalog := models.All()

	result := ListModelsResult{
		Models:       make([]ModelInfo, 0, len(catalog)),
		DefaultModel: models.DefaultModel,
	}
	for _, m := range catalog {
		result.Models = append(result.Models, ModelInfo{
			ID:                     m.ID,
			Name:                   m.Name,
			Description:            m.Description,
			IsDefault:              m.ID == models.DefaultModel,
			AspectRatios:           m.AspectRatios,
			SupportsNegativePrompt: m.SupportsNegativePrompt,
		})
	}

	out, err := tools.MarshalResult(result)
	if err != nil {
		return "", nil, err
	}
	return out, map[string]interface{}{"count": len(result.Models)}, nil
}
