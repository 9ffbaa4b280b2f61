package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"net/http"
	"os"
	"strings"

	"campusfeed/internal/models"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxBytes  = 5 << 20
	DefaultAvatarMaxBytes = 1 << 20
)

var allowedImageMIMEs = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageService turns uploaded image bytes into data URLs stored on posts
// and avatars.
type ImageService struct {
	maxBytes int64
}

// NewImageService creates an ImageService accepting images up to maxBytes.
func NewImageService(maxBytes int64) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultImageMaxBytes
	}
	return &ImageService{maxBytes: maxBytes}
}

// Encode reads an image and returns it as a base64 data URL. Read failures
// are IO_ERROR; empty, oversized or non-image input is INVALID_INPUT.
func (s *ImageService) Encode(ctx context.Context, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", models.NewIOError("image read cancelled", err)
	}

	content, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", models.NewIOError("failed to read image", err)
	}
	if len(content) == 0 {
		return "", models.NewInvalidInputError("no image provided")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewInvalidInputError(fmt.Sprintf("image too large (max %d bytes)", s.maxBytes))
	}

	mime, err := s.inspect(content)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content), nil
}

// Validate checks a data URL produced elsewhere against the same rules as
// Encode, and requires the declared type to match the content.
func (s *ImageService) Validate(dataURL string) error {
	header, payload, ok := strings.Cut(dataURL, ",")
	declared, isBase64 := strings.CutSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !ok || !strings.HasPrefix(header, "data:") || !isBase64 {
		return models.NewInvalidInputError("image must be a base64 data URL")
	}
	if int64(len(payload)) > int64(base64.StdEncoding.EncodedLen(int(s.maxBytes))) {
		return models.NewInvalidInputError(fmt.Sprintf("image too large (max %d bytes)", s.maxBytes))
	}
	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.NewInvalidInputError("invalid image encoding")
	}
	if len(content) == 0 {
		return models.NewInvalidInputError("no image provided")
	}
	if int64(len(content)) > s.maxBytes {
		return models.NewInvalidInputError(fmt.Sprintf("image too large (max %d bytes)", s.maxBytes))
	}
	mime, err := s.inspect(content)
	if err != nil {
		return err
	}
	if mime != declared {
		return models.NewInvalidInputError(fmt.Sprintf("image declared as %s but is %s", declared, mime))
	}
	return nil
}

// inspect sniffs the content type and makes sure the bytes decode.
func (s *ImageService) inspect(content []byte) (string, error) {
	mime := http.DetectContentType(content)
	if !allowedImageMIMEs[mime] {
		return "", models.NewInvalidInputError("invalid image type " + mime)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return "", models.NewInvalidInputError("invalid image file")
	}
	return mime, nil
}

// EncodeFile opens path and encodes it.
func (s *ImageService) EncodeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", models.NewIOError("failed to open image", err)
	}
	defer f.Close()
	return s.Encode(ctx, f)
}

// EncodeAsync encodes on a separate goroutine and calls done exactly once
// with the result.
func (s *ImageService) EncodeAsync(ctx context.Context, r io.Reader, done func(dataURL string, err error)) {
	go func() {
		done(s.Encode(ctx, r))
	}()
}
