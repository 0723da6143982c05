package utils

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, service InferenceService, opts PipelineOptions) *Pipeline {
	t.Helper()
	if opts.TmpDir == "" {
		opts.TmpDir = t.TempDir()
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	pipeline, err := NewPipeline(service, opts)
	require.NoError(t, err)
	return pipeline
}

func activeUpload(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
	return &RemoteFile{Name: "files/1", MIMEType: mimeType, URI: "https://files/1", State: FileStateActive}, nil
}

func testVariant(t *testing.T, name string) Variant {
	t.Helper()
	variant, err := FindVariant(DefaultVariants(DefaultGenerationConfig()), name)
	require.NoError(t, err)
	return variant
}

func TestPipelineTagsScenario(t *testing.T) {
	var sent AnalysisRequest
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			sent = req
			return `[{"tag":"cat","confidence":0.95},{"tag":"sofa","confidence":0.7}]`, nil
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "image/png", Data: []byte("png")}, testVariant(t, VariantTags))

	require.NoError(t, err)
	require.False(t, outcome.Failed())
	assert.Equal(t, VariantTags, outcome.Variant)
	assert.Len(t, outcome.Tags.Tags, 2)
	assert.Equal(t, "cat", outcome.Tags.Tags[0].Tag)

	assert.Equal(t, tagInstruction, sent.Instruction)
	assert.Equal(t, tagTrigger, sent.Trigger)
	assert.Equal(t, DefaultGenerationConfig(), sent.Generation)
	require.Len(t, sent.Files, 1)
	assert.Equal(t, "files/1", sent.Files[0].Name)
}

func TestPipelineScoreScenario(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return `{"score": 82, "reason": "clear smiling face"}`, nil
		},
	}
	languages := &MockLanguageDetector{
		DetectLanguageFunc: func(text string) (string, bool) {
			assert.Equal(t, "clear smiling face", text)
			return "ENGLISH", true
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{Languages: languages})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "image/jpeg", Data: []byte("jpg")}, testVariant(t, VariantScore))

	require.NoError(t, err)
	require.NotNil(t, outcome.Score)
	assert.Equal(t, 82, outcome.Score.Score)
	assert.Equal(t, "clear smiling face", outcome.Score.Reason)
	assert.Equal(t, "ENGLISH", outcome.Language)
}

func TestPipelineStuckProcessingTimesOut(t *testing.T) {
	conversed := false
	service := &MockInferenceService{
		UploadFileFunc: func(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
			return &RemoteFile{Name: "files/v", MIMEType: mimeType, State: FileStateProcessing}, nil
		},
		GetFileFunc: func(ctx context.Context, name string) (*RemoteFile, error) {
			return &RemoteFile{Name: name, State: FileStateProcessing}, nil
		},
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			conversed = true
			return "", nil
		},
	}
	tmpDir := t.TempDir()
	pipeline := newTestPipeline(t, service, PipelineOptions{TmpDir: tmpDir, MaxPollAttempts: 3})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "video/mp4", Data: []byte("mp4")}, testVariant(t, VariantScenes))

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Nil(t, outcome)
	assert.False(t, conversed)

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipelineTruncatedReplyIsErrorResult(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return `{"score": 8`, nil
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "image/png", Data: []byte("png")}, testVariant(t, VariantScore))

	require.NoError(t, err)
	require.True(t, outcome.Failed())
	assert.Equal(t, VariantScore, outcome.Variant)
	assert.Contains(t, outcome.Error.Message, "Error parsing JSON response")
	assert.Nil(t, outcome.Score)
}

func TestPipelineScenesExtractsBestSceneStill(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: func(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
			return &RemoteFile{Name: "files/v", MIMEType: mimeType, State: FileStateProcessing}, nil
		},
		GetFileFunc: func(ctx context.Context, name string) (*RemoteFile, error) {
			return &RemoteFile{Name: name, State: FileStateActive}, nil
		},
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return `{"scenes":[{"timestamp":"00:42","summary":"jump","score":90}],"best_scene":"00:42"}`, nil
		},
	}
	frames := &MockFrameExtractor{
		ExtractFrameFunc: func(ctx context.Context, videoFile, timestamp string) ([]byte, error) {
			assert.FileExists(t, videoFile)
			assert.Equal(t, "00:42", timestamp)
			return []byte("jpeg"), nil
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{Frames: frames})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "video/mp4", Data: []byte("mp4")}, testVariant(t, VariantScenes))

	require.NoError(t, err)
	require.NotNil(t, outcome.Scenes)
	assert.Equal(t, "00:42", outcome.Scenes.BestScene)
	assert.Equal(t, []byte("jpeg"), outcome.BestSceneStill)
}

func TestPipelineStillFailureIsNotFatal(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		GetFileFunc: func(ctx context.Context, name string) (*RemoteFile, error) {
			return &RemoteFile{Name: name, State: FileStateActive}, nil
		},
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return `{"scenes":[],"best_scene":"00:01"}`, nil
		},
	}
	frames := &MockFrameExtractor{
		ExtractFrameFunc: func(ctx context.Context, videoFile, timestamp string) ([]byte, error) {
			return nil, errors.New("ffmpeg not found")
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{Frames: frames})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "video/webm", Data: []byte("webm")}, testVariant(t, VariantScenes))

	require.NoError(t, err)
	assert.False(t, outcome.Failed())
	assert.Nil(t, outcome.BestSceneStill)
}

func TestPipelineRejectsWrongMediaKind(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: func(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
			t.Fatal("upload should not be attempted")
			return nil, nil
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{})

	_, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "video/mp4", Data: []byte("mp4")}, testVariant(t, VariantTags))

	var uploadErr *UploadError
	assert.ErrorAs(t, err, &uploadErr)
}

func TestPipelineInvocationError(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return "", errors.New("503 from model")
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{})

	_, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "image/png", Data: []byte("png")}, testVariant(t, VariantTags))

	var invocationErr *InvocationError
	require.ErrorAs(t, err, &invocationErr)
	assert.Equal(t, VariantTags, invocationErr.Variant)
}

func TestPipelineBlankReplyIsErrorResult(t *testing.T) {
	service := &MockInferenceService{
		UploadFileFunc: activeUpload,
		ConverseFunc: func(ctx context.Context, req AnalysisRequest) (string, error) {
			return "  \n", nil
		},
	}
	pipeline := newTestPipeline(t, service, PipelineOptions{})

	outcome, err := pipeline.Analyze(context.Background(), MediaAsset{MIMEType: "image/png", Data: []byte("png")}, testVariant(t, VariantScore))

	require.NoError(t, err)
	require.NotNil(t, outcome)
	require.True(t, outcome.Failed())
	assert.Equal(t, VariantScore, outcome.Variant)
	assert.Contains(t, outcome.Error.Message, "Error parsing JSON response")
	assert.Nil(t, outcome.Score)
}
