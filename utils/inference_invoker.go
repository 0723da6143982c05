package utils

import (
	"context"
	"log/slog"
)

type InferenceInvoker struct {
	service InferenceService
	logger  *slog.Logger
}

func NewInferenceInvoker(service InferenceService, logger *slog.Logger) *InferenceInvoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &InferenceInvoker{service: service, logger: logger}
}

// Invoke opens a single-turn conversation with the files and the variant's
// instruction, sends its trigger message and returns the raw reply text. A
// blank reply is returned as is and left to the parser.
func (i *InferenceInvoker) Invoke(ctx context.Context, files []*RemoteFile, variant Variant) (string, error) {
	req := AnalysisRequest{
		Files:       files,
		Instruction: variant.Instruction,
		Trigger:     variant.Trigger,
		Generation:  variant.Generation,
	}

	reply, err := i.service.Converse(ctx, req)
	if err != nil {
		return "", &InvocationError{Variant: variant.Name, Err: err}
	}

	i.logger.Debug("raw reply", "variant", variant.Name, "content", reply)
	return reply, nil
}
