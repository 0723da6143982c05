package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultVariants(t *testing.T) {
	gen := DefaultGenerationConfig()
	variants := DefaultVariants(gen)

	require.Len(t, variants, 3)
	assert.Equal(t, []string{VariantTags, VariantScore, VariantScenes},
		[]string{variants[0].Name, variants[1].Name, variants[2].Name})

	for _, v := range variants {
		assert.NotEmpty(t, v.Instruction, v.Name)
		assert.NotEmpty(t, v.Trigger, v.Name)
		assert.Equal(t, gen, v.Generation, v.Name)
	}

	assert.False(t, variants[0].AwaitReady)
	assert.False(t, variants[1].AwaitReady)
	assert.True(t, variants[2].AwaitReady)
	assert.Equal(t, ShapeSceneAnalysis, variants[2].Shape)
}

func TestVariantAccepts(t *testing.T) {
	variants := DefaultVariants(DefaultGenerationConfig())

	assert.True(t, variants[0].Accepts("image/png"))
	assert.True(t, variants[0].Accepts("IMAGE/JPEG"))
	assert.False(t, variants[0].Accepts("video/mp4"))
	assert.True(t, variants[2].Accepts("video/mp4"))
	assert.False(t, variants[2].Accepts("image/gif"))
	assert.False(t, variants[2].Accepts(""))
}

func TestFindVariant(t *testing.T) {
	variants := DefaultVariants(DefaultGenerationConfig())

	v, err := FindVariant(variants, VariantScore)
	require.NoError(t, err)
	assert.Equal(t, ShapeScoreRecord, v.Shape)

	_, err = FindVariant(variants, "caption")
	assert.Error(t, err)
}
