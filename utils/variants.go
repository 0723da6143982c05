package utils

import (
	"fmt"
	"strings"
)

// Shape identifies the JSON reply a variant expects.
type Shape string

const (
	ShapeTagList       Shape = "tag-list"
	ShapeScoreRecord   Shape = "score-record"
	ShapeSceneAnalysis Shape = "scene-analysis"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

const (
	VariantTags   = "tags"
	VariantScore  = "score"
	VariantScenes = "scenes"
)

// Variant is everything that distinguishes one demo app from another.
type Variant struct {
	Name        string
	Title       string
	Description string
	Instruction string
	Trigger     string
	Shape       Shape
	Media       MediaKind
	AwaitReady  bool
	Generation  GenerationConfig
}

// Accepts reports whether the MIME type belongs to the variant's media kind.
func (v Variant) Accepts(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), string(v.Media)+"/")
}

// DefaultVariants returns the three apps in display order.
func DefaultVariants(gen GenerationConfig) []Variant {
	return []Variant{
		{
			Name:        VariantTags,
			Title:       "自動タグ付けアプリ",
			Description: "アップロードする写真にタグと確信度を付与します。",
			Instruction: tagInstruction,
			Trigger:     tagTrigger,
			Shape:       ShapeTagList,
			Media:       MediaImage,
			Generation:  gen,
		},
		{
			Name:        VariantScore,
			Title:       "写真採点アプリ",
			Description: "アップロードする写真を100点満点で採点します。",
			Instruction: scoreInstruction,
			Trigger:     scoreTrigger,
			Shape:       ShapeScoreRecord,
			Media:       MediaImage,
			Generation:  gen,
		},
		{
			Name:        VariantScenes,
			Title:       "Video Analyzer",
			Description: "Analyze a video using the Gemini AI model.",
			Instruction: sceneInstruction,
			Trigger:     sceneTrigger,
			Shape:       ShapeSceneAnalysis,
			Media:       MediaVideo,
			AwaitReady:  true,
			Generation:  gen,
		},
	}
}

func FindVariant(variants []Variant, name string) (Variant, error) {
	for _, v := range variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown variant %q", name)
}
