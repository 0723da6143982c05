package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const MaxTags = 20

const timestampPattern = `^[0-9]{2,}:[0-5][0-9]$`

var replySchemas = map[Shape]map[string]interface{}{
	ShapeTagList: {
		"type":     "array",
		"maxItems": MaxTags,
		"items": map[string]interface{}{
			"oneOf": []interface{}{
				map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"tag", "confidence"},
					"properties": map[string]interface{}{
						"tag":        map[string]interface{}{"type": "string", "minLength": 1},
						"confidence": map[string]interface{}{"type": "number"},
					},
				},
				map[string]interface{}{
					"type":     "array",
					"minItems": 2,
					"maxItems": 2,
					"items": []interface{}{
						map[string]interface{}{"type": "string", "minLength": 1},
						map[string]interface{}{"type": "number"},
					},
				},
			},
		},
	},
	ShapeScoreRecord: {
		"type":     "object",
		"required": []interface{}{"score", "reason"},
		"properties": map[string]interface{}{
			"score":  map[string]interface{}{"type": "integer"},
			"reason": map[string]interface{}{"type": "string"},
		},
	},
	ShapeSceneAnalysis: {
		"type":     "object",
		"required": []interface{}{"scenes", "best_scene"},
		"properties": map[string]interface{}{
			"scenes": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"timestamp", "summary", "score"},
					"properties": map[string]interface{}{
						"timestamp": map[string]interface{}{"type": "string", "pattern": timestampPattern},
						"summary":   map[string]interface{}{"type": "string"},
						"score":     map[string]interface{}{"type": "integer"},
					},
				},
			},
			"best_scene": map[string]interface{}{"type": "string", "pattern": timestampPattern},
		},
	},
}

// ResponseParser turns raw reply text into a typed Outcome. Replies that are
// not valid JSON or do not match the expected shape become an ErrorResult.
// Scores outside [0,100] and confidences outside [0,1] are clamped, and tags
// are ordered by descending confidence.
type ResponseParser struct {
	schemas map[Shape]*gojsonschema.Schema
	logger  *slog.Logger
}

func NewResponseParser(logger *slog.Logger) (*ResponseParser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schemas := make(map[Shape]*gojsonschema.Schema, len(replySchemas))
	for shape, definition := range replySchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", shape, err)
		}
		schemas[shape] = schema
	}
	return &ResponseParser{schemas: schemas, logger: logger}, nil
}

// Parse never returns nil and never panics on model output.
func (p *ResponseParser) Parse(reply string, shape Shape) *Outcome {
	outcome := &Outcome{}
	if err := p.parse(reply, shape, outcome); err != nil {
		parseErr := &ParseError{Shape: shape, Err: err}
		p.logger.Warn("discarding unparsable reply", "shape", shape, "error", err)
		return &Outcome{Error: &ErrorResult{Message: parseErr.Error()}}
	}
	return outcome
}

func (p *ResponseParser) parse(reply string, shape Shape, outcome *Outcome) error {
	schema, ok := p.schemas[shape]
	if !ok {
		return fmt.Errorf("unknown reply shape %q", shape)
	}

	data := []byte(stripCodeFence(reply))
	value, err := decodeStrict(data)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate reply: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("reply does not match %s: %s", shape, strings.Join(details, "; "))
	}

	switch shape {
	case ShapeTagList:
		tags, err := p.toTags(value)
		if err != nil {
			return err
		}
		outcome.Tags = &TagList{Tags: tags}
	case ShapeScoreRecord:
		record, err := p.toScore(value)
		if err != nil {
			return err
		}
		outcome.Score = record
	case ShapeSceneAnalysis:
		analysis, err := p.toScenes(value)
		if err != nil {
			return err
		}
		outcome.Scenes = analysis
	}
	return nil
}

func decodeStrict(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return value, nil
}

// stripCodeFence removes a single markdown fence around the reply, which some
// models emit even when asked for bare JSON.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	newline := strings.Index(trimmed, "\n")
	if newline == -1 {
		return trimmed
	}
	body := strings.TrimSpace(trimmed[newline+1:])
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func (p *ResponseParser) toTags(value interface{}) ([]Tag, error) {
	items, _ := value.([]interface{})
	tags := make([]Tag, 0, len(items))
	for i, item := range items {
		var name interface{}
		var confidence interface{}
		switch entry := item.(type) {
		case map[string]interface{}:
			name, confidence = entry["tag"], entry["confidence"]
		case []interface{}:
			name, confidence = entry[0], entry[1]
		}

		tag, _ := name.(string)
		number, err := toFloat(confidence)
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i, err)
		}
		tags = append(tags, Tag{Tag: tag, Confidence: p.clampFloat("confidence", number, 0, 1)})
	}
	// Tags are presented highest confidence first; equal confidences keep the model's order.
	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Confidence > tags[j].Confidence
	})
	return tags, nil
}

func (p *ResponseParser) toScore(value interface{}) (*ScoreRecord, error) {
	fields, _ := value.(map[string]interface{})
	score, err := toFloat(fields["score"])
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	reason, _ := fields["reason"].(string)
	return &ScoreRecord{Score: p.clampInt("score", score), Reason: reason}, nil
}

func (p *ResponseParser) toScenes(value interface{}) (*SceneAnalysis, error) {
	fields, _ := value.(map[string]interface{})
	items, _ := fields["scenes"].([]interface{})
	best, _ := fields["best_scene"].(string)

	analysis := &SceneAnalysis{Scenes: make([]Scene, 0, len(items)), BestScene: best}
	for i, item := range items {
		entry, _ := item.(map[string]interface{})
		score, err := toFloat(entry["score"])
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		timestamp, _ := entry["timestamp"].(string)
		summary, _ := entry["summary"].(string)
		analysis.Scenes = append(analysis.Scenes, Scene{
			Timestamp: timestamp,
			Summary:   summary,
			Score:     p.clampInt("scene score", score),
		})
	}
	return analysis, nil
}

func toFloat(value interface{}) (float64, error) {
	number, ok := value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
	return number.Float64()
}

func (p *ResponseParser) clampInt(field string, value float64) int {
	return int(p.clampFloat(field, value, 0, 100))
}

func (p *ResponseParser) clampFloat(field string, value, low, high float64) float64 {
	switch {
	case value < low:
		p.logger.Warn("clamping out-of-range value", "field", field, "value", value, "clamped", low)
		return low
	case value > high:
		p.logger.Warn("clamping out-of-range value", "field", field, "value", value, "clamped", high)
		return high
	}
	return value
}
