package utils

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector only loads the languages the apps are expected to answer in.
func NewLinguaDetector() *LinguaDetector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Japanese, lingua.Chinese, lingua.Korean, lingua.German, lingua.French, lingua.Spanish).
		Build()
	return &LinguaDetector{detector: detector}
}

func (d *LinguaDetector) DetectLanguage(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return language.String(), true
}

// outcomeText collects the free text of a successful outcome.
func outcomeText(outcome *Outcome) string {
	var parts []string
	switch {
	case outcome.Tags != nil:
		for _, tag := range outcome.Tags.Tags {
			parts = append(parts, tag.Tag)
		}
	case outcome.Score != nil:
		parts = append(parts, outcome.Score.Reason)
	case outcome.Scenes != nil:
		for _, scene := range outcome.Scenes.Scenes {
			parts = append(parts, scene.Summary)
		}
	}
	return strings.Join(parts, " ")
}
