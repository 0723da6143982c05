package utils

import "context"

type MockInferenceService struct {
	UploadFileFunc func(ctx context.Context, path, mimeType string) (*RemoteFile, error)
	GetFileFunc    func(ctx context.Context, name string) (*RemoteFile, error)
	ConverseFunc   func(ctx context.Context, req AnalysisRequest) (string, error)
}

func (m *MockInferenceService) UploadFile(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
	return m.UploadFileFunc(ctx, path, mimeType)
}

func (m *MockInferenceService) GetFile(ctx context.Context, name string) (*RemoteFile, error) {
	return m.GetFileFunc(ctx, name)
}

func (m *MockInferenceService) Converse(ctx context.Context, req AnalysisRequest) (string, error) {
	return m.ConverseFunc(ctx, req)
}

type MockAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, asset MediaAsset, variant Variant) (*Outcome, error)
}

func (m *MockAnalyzer) Analyze(ctx context.Context, asset MediaAsset, variant Variant) (*Outcome, error) {
	return m.AnalyzeFunc(ctx, asset, variant)
}

type MockFrameExtractor struct {
	ExtractFrameFunc func(ctx context.Context, videoFile, timestamp string) ([]byte, error)
}

func (m *MockFrameExtractor) ExtractFrame(ctx context.Context, videoFile, timestamp string) ([]byte, error) {
	return m.ExtractFrameFunc(ctx, videoFile, timestamp)
}

type MockLanguageDetector struct {
	DetectLanguageFunc func(text string) (string, bool)
}

func (m *MockLanguageDetector) DetectLanguage(text string) (string, bool) {
	return m.DetectLanguageFunc(text)
}
