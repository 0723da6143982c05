package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// FFmpegFrameExtractor grabs a single JPEG frame from a video with ffmpeg.
type FFmpegFrameExtractor struct {
	Binary string
}

func (e FFmpegFrameExtractor) ExtractFrame(ctx context.Context, videoFile, timestamp string) ([]byte, error) {
	binary := e.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-ss", timestamp,
		"-i", videoFile,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %v\nStderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %s", timestamp)
	}
	return stdout.Bytes(), nil
}
