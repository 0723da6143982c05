package utils

// FileState is the processing state of an uploaded file on the inference service.
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
)

// MediaAsset is a raw image or video buffer supplied by the caller for one request.
type MediaAsset struct {
	Name     string
	MIMEType string
	Data     []byte
}

// RemoteFile is the service's handle for an uploaded file. The pipeline only reads it.
type RemoteFile struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	MIMEType    string    `json:"mimeType,omitempty"`
	URI         string    `json:"uri,omitempty"`
	State       FileState `json:"state"`
	Error       string    `json:"error,omitempty"`
}

// GenerationConfig is passed unchanged with every conversation of a variant.
type GenerationConfig struct {
	Temperature      float32
	TopP             float32
	TopK             int
	MaxOutputTokens  int
	ResponseMIMEType string
}

// DefaultGenerationConfig mirrors the settings the demo apps shipped with.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:      1,
		TopP:             0.95,
		TopK:             64,
		MaxOutputTokens:  8192,
		ResponseMIMEType: "application/json",
	}
}

// AnalysisRequest pairs uploaded files with the variant's fixed instruction.
type AnalysisRequest struct {
	Files       []*RemoteFile
	Instruction string
	Trigger     string
	Generation  GenerationConfig
}

type Tag struct {
	Tag        string  `json:"tag" xml:"name,attr"`
	Confidence float64 `json:"confidence" xml:"confidence,attr"`
}

type TagList struct {
	Tags []Tag `json:"tags" xml:"Tag"`
}

type ScoreRecord struct {
	Score  int    `json:"score" xml:"Score"`
	Reason string `json:"reason" xml:"Reason"`
}

type Scene struct {
	Timestamp string `json:"timestamp" xml:"timestamp,attr"`
	Summary   string `json:"summary" xml:",chardata"`
	Score     int    `json:"score" xml:"score,attr"`
}

type SceneAnalysis struct {
	Scenes    []Scene `json:"scenes" xml:"Scene"`
	BestScene string  `json:"best_scene" xml:"bestScene,attr"`
}

// ErrorResult stands in for an analysis result when the reply could not be parsed.
type ErrorResult struct {
	Message string `json:"error" xml:",chardata"`
}

// Outcome carries exactly one of Tags, Score, Scenes or Error.
type Outcome struct {
	Variant  string         `json:"variant" xml:"variant,attr"`
	Language string         `json:"language,omitempty" xml:"language,attr,omitempty"`
	Tags     *TagList       `json:"tags,omitempty" xml:"Tags,omitempty"`
	Score    *ScoreRecord   `json:"score,omitempty" xml:"ScoreRecord,omitempty"`
	Scenes   *SceneAnalysis `json:"scenes,omitempty" xml:"Scenes,omitempty"`
	Error    *ErrorResult   `json:"error,omitempty" xml:"Error,omitempty"`

	// BestSceneStill is a JPEG of the best scene, when one could be extracted.
	BestSceneStill []byte `json:"-" xml:"-"`
}

func (o *Outcome) Failed() bool {
	return o.Error != nil
}
