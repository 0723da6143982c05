package inference

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/HugeFrog24/media-scorer/utils"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient talks to the Gemini File API and generateContent through the
// genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, baseURL, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 10 * time.Minute},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) UploadFile(ctx context.Context, path, mimeType string) (*utils.RemoteFile, error) {
	file, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, err
	}
	return toRemoteFile(file), nil
}

func (c *GeminiClient) GetFile(ctx context.Context, name string) (*utils.RemoteFile, error) {
	file, err := c.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, err
	}
	return toRemoteFile(file), nil
}

// Converse replays the chat the demo apps used: one user turn holding the
// files and the instruction, followed by the trigger message.
func (c *GeminiClient) Converse(ctx context.Context, request utils.AnalysisRequest) (string, error) {
	var parts []*genai.Part
	for _, file := range request.Files {
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(request.Instruction))

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
		genai.NewContentFromText(request.Trigger, genai.RoleUser),
	}

	gen := request.Generation
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(gen.Temperature),
		TopP:             genai.Ptr(gen.TopP),
		MaxOutputTokens:  int32(gen.MaxOutputTokens),
		ResponseMIMEType: gen.ResponseMIMEType,
	}
	if gen.TopK > 0 {
		config.TopK = genai.Ptr(float32(gen.TopK))
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}

func toRemoteFile(f *genai.File) *utils.RemoteFile {
	file := &utils.RemoteFile{
		Name:        f.Name,
		DisplayName: f.DisplayName,
		MIMEType:    f.MIMEType,
		URI:         f.URI,
		State:       utils.FileState(f.State),
	}
	if f.Error != nil {
		file.Error = f.Error.Message
	}
	return file
}
