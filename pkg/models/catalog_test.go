package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultModelInCatalog(t *testing.T) {
	d, ok := Lookup(DefaultModel)
	require.True(t, ok, "default model must be in the catalog")
	assert.Equal(t, "GPT Image 1.5", d.Name)
}

func TestIDsOrderAndUniqueness(t *testing.T) {
	want := []string{"gpt-image-1.5", "gpt-image-1", "flux-kontext-pro", "seedream-4", "nano-banana", "wan-2.5"}
	if diff := cmp.Diff(want, IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}

	seen := map[string]bool{}
	for _, id := range IDs() {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0].AspectRatios[0] = "99:1"
	first[0].Name = "mutated"

	second := All()
	assert.Equal(t, "1:1", second[0].AspectRatios[0])
	assert.Equal(t, "GPT Image 1.5", second[0].Name)
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("dall-e-2")
	assert.False(t, ok)
}

func TestValidateAspectRatio(t *testing.T) {
	gpt1, _ := Lookup("gpt-image-1")
	flux, _ := Lookup("flux-kontext-pro")

	assert.NoError(t, gpt1.ValidateAspectRatio(""))
	assert.NoError(t, gpt1.ValidateAspectRatio("16:9"))
	assert.NoError(t, flux.ValidateAspectRatio("21:9"))

	err := gpt1.ValidateAspectRatio("21:9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpt-image-1")
	assert.Contains(t, err.Error(), "16:9")
}

func TestNegativePromptSupport(t *testing.T) {
	for _, d := range All() {
		switch d.ID {
		case "gpt-image-1.5", "gpt-image-1":
			assert.False(t, d.SupportsNegativePrompt, d.ID)
		default:
			assert.True(t, d.SupportsNegativePrompt, d.ID)
		}
		assert.True(t, d.SupportsBatchGeneration, d.ID)
		assert.Contains(t, d.AspectRatios, "1:1", d.ID)
	}
}
