package utils

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var knownExtensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
	"video/mpeg":      ".mpeg",
}

// MediaUploader stages media buffers in tmpDir and submits them to the service.
type MediaUploader struct {
	service InferenceService
	tmpDir  string
	logger  *slog.Logger
}

func NewMediaUploader(service InferenceService, tmpDir string, logger *slog.Logger) *MediaUploader {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MediaUploader{service: service, tmpDir: tmpDir, logger: logger}
}

// Stage writes the asset to a uniquely named file. The returned cleanup func
// removes it and is safe to call more than once.
func (u *MediaUploader) Stage(asset MediaAsset) (string, func(), error) {
	if err := os.MkdirAll(u.tmpDir, os.ModePerm); err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := filepath.Join(u.tmpDir, uuid.NewString()+extensionFor(asset.MIMEType))
	if err := os.WriteFile(path, asset.Data, 0600); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("failed to stage media: %w", err)
	}

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			u.logger.Warn("failed to remove staged media", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}

// Submit uploads an already staged file.
func (u *MediaUploader) Submit(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
	file, err := u.service.UploadFile(ctx, path, mimeType)
	if err != nil {
		return nil, &UploadError{MIMEType: mimeType, Err: err}
	}
	if file == nil || file.Name == "" {
		return nil, &UploadError{MIMEType: mimeType, Err: fmt.Errorf("service returned no file handle")}
	}
	u.logger.Info("uploaded file", "display_name", file.DisplayName, "name", file.Name, "uri", file.URI)
	return file, nil
}

// Upload stages and submits the asset, removing the staged file before returning.
func (u *MediaUploader) Upload(ctx context.Context, asset MediaAsset) (*RemoteFile, error) {
	path, cleanup, err := u.Stage(asset)
	if err != nil {
		return nil, &UploadError{MIMEType: asset.MIMEType, Err: err}
	}
	defer cleanup()
	return u.Submit(ctx, path, asset.MIMEType)
}

func extensionFor(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if ext, ok := knownExtensions[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// MIMETypeForFile guesses a media MIME type from the file extension.
func MIMETypeForFile(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	for mimeType, known := range knownExtensions {
		if known == ext {
			return mimeType
		}
	}
	if ext == ".jpeg" {
		return "image/jpeg"
	}
	return mime.TypeByExtension(ext)
}
