// Package models holds the static catalog of image models offered by the
// ElevenLabs Image & Video page.
package models

import (
	"fmt"
	"strings"
)

// Descriptor describes one selectable image model.
type Descriptor struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Description             string   `json:"description"`
	SupportsNegativePrompt  bool     `json:"supportsNegativePrompt"`
	SupportsBatchGeneration bool     `json:"supportsBatchGeneration"`
	AspectRatios            []string `json:"aspectRatios"`
}

// DefaultModel is selected in the UI when the page loads, so choosing it
// requires no interaction with the model picker.
const DefaultModel = "gpt-image-1.5"

var (
	ratiosBasic    = []string{"1:1", "16:9", "9:16", "3:2", "2:3"}
	ratiosStandard = []string{"1:1", "16:9", "9:16", "3:2", "2:3", "4:3", "3:4"}
	ratiosPortrait = []string{"1:1", "16:9", "9:16", "3:2", "2:3", "4:3", "3:4", "4:5", "5:4"}
	ratiosWide     = []string{"1:1", "16:9", "9:16", "3:2", "2:3", "4:3", "3:4", "4:5", "5:4", "21:9"}
)

// catalog is ordered the way models appear in the picker.
var catalog = []Descriptor{
	{
		ID:                      "gpt-image-1.5",
		Name:                    "GPT Image 1.5",
		Description:             "OpenAI - precise, high-quality image generation",
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosStandard,
	},
	{
		ID:                      "gpt-image-1",
		Name:                    "GPT Image 1",
		Description:             "OpenAI - precise text-based creation and editing",
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosBasic,
	},
	{
		ID:                      "flux-kontext-pro",
		Name:                    "Flux 1 Kontext Pro",
		Description:             "Professional style control via reference images",
		SupportsNegativePrompt:  true,
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosWide,
	},
	{
		ID:                      "seedream-4",
		Name:                    "Seedream 4",
		Description:             "Multi-shot sequences with stable physics",
		SupportsNegativePrompt:  true,
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosPortrait,
	},
	{
		ID:                      "nano-banana",
		Name:                    "Nano Banana (Google)",
		Description:             "High-speed iterations, 4 simultaneous generations",
		SupportsNegativePrompt:  true,
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosWide,
	},
	{
		ID:                      "wan-2.5",
		Name:                    "Wan 2.5",
		Description:             "Strong prompt fidelity with motion awareness",
		SupportsNegativePrompt:  true,
		SupportsBatchGeneration: true,
		AspectRatios:            ratiosBasic,
	},
}

// All returns a copy of the catalog in picker order.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	for i, d := range catalog {
		d.AspectRatios = append([]string(nil), d.AspectRatios...)
		out[i] = d
	}
	return out
}

// IDs returns the model identifiers in picker order.
func IDs() []string {
	ids := make([]string, len(catalog))
	for i, d := range catalog {
		ids[i] = d.ID
	}
	return ids
}

// Lookup returns the descriptor for id.
func Lookup(id string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			d.AspectRatios = append([]string(nil), d.AspectRatios...)
			return d, true
		}
	}
	return Descriptor{}, false
}

// SupportsAspectRatio reports whether ratio is one of the model's ratios.
func (d Descriptor) SupportsAspectRatio(ratio string) bool {
	for _, r := range d.AspectRatios {
		if r == ratio {
			return true
		}
	}
	return false
}

// ValidateAspectRatio returns an error naming the allowed ratios when ratio
// is not supported by the model. An empty ratio is always valid.
func (d Descriptor) ValidateAspectRatio(ratio string) error {
	if ratio == "" || d.SupportsAspectRatio(ratio) {
		return nil
	}
	return fmt.Errorf("aspect ratio %q is not supported by %s (supported: %s)",
		ratio, d.ID, strings.Join(d.AspectRatios, ", "))
}
