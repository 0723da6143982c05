package utils

import "context"

// InferenceService is the hosted multimodal model: it stores uploaded media and
// answers conversations that reference it.
type InferenceService interface {
	UploadFile(ctx context.Context, path, mimeType string) (*RemoteFile, error)
	GetFile(ctx context.Context, name string) (*RemoteFile, error)
	Converse(ctx context.Context, req AnalysisRequest) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, asset MediaAsset, variant Variant) (*Outcome, error)
}

type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoFile, timestamp string) ([]byte, error)
}

type LanguageDetector interface {
	DetectLanguage(text string) (string, bool)
}
