package inference

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/HugeFrog24/media-scorer/utils"
)

const DefaultOpenAIModel = openai.GPT4o

const inlinePrefix = "inline/"

// OpenAIClient serves the image variants through a chat completions endpoint.
// There is no file store behind it: "uploading" turns the image into a data
// URL that is sent inline, and such files are ACTIVE immediately. Video is not
// supported.
//
// The response format is left unset because json_object mode rejects the
// top-level array the tag variant asks for; the instruction text carries the
// JSON requirement instead. TopK has no equivalent and is ignored.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(config), model: model}
}

func (c *OpenAIClient) UploadFile(ctx context.Context, path, mimeType string) (*utils.RemoteFile, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("mime type %s is not supported by the openai backend", mimeType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &utils.RemoteFile{
		Name:        inlinePrefix + uuid.NewString(),
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
		URI:         fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		State:       utils.FileStateActive,
	}, nil
}

func (c *OpenAIClient) GetFile(ctx context.Context, name string) (*utils.RemoteFile, error) {
	if !strings.HasPrefix(name, inlinePrefix) {
		return nil, fmt.Errorf("unknown file %s", name)
	}
	return &utils.RemoteFile{Name: name, State: utils.FileStateActive}, nil
}

func (c *OpenAIClient) Converse(ctx context.Context, request utils.AnalysisRequest) (string, error) {
	var parts []openai.ChatMessagePart
	for _, file := range request.Files {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: file.URI, Detail: openai.ImageURLDetailAuto},
		})
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: request.Instruction})

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: request.Trigger,
			},
		},
		Temperature: request.Generation.Temperature,
		TopP:        request.Generation.TopP,
		MaxTokens:   request.Generation.MaxOutputTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
