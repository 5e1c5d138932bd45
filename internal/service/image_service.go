package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"unitoku/internal/config"
	"unitoku/internal/models"
	"unitoku/internal/observability"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageUploadDir       = "/tmp/unitoku/uploads/images"
	DefaultImageMaxUploadSizeMB = 10
	// MaxImageEdge bounds the longer side of a stored image.
	MaxImageEdge = 1440
	WebPQuality  = 75
	// MediaURLPrefix is where stored images are served from.
	MediaURLPrefix = "/media/"
)

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes an image written to the upload directory.
type StoredImage struct {
	Hash   string `json:"hash"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

// ImageService converts post attachments to WebP and stores them by content hash.
type ImageService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultImageUploadDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.ImageUploadDir != "" {
			uploadDir = cfg.ImageUploadDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// UploadDir is the directory served under MediaURLPrefix.
func (s *ImageService) UploadDir() string {
	return s.uploadDir
}

// MaxUploadBytes is the largest accepted upload.
func (s *ImageService) MaxUploadBytes() int64 {
	return s.maxUploadSizeBytes
}

func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (*StoredImage, error) {
	img, err := s.upload(in)
	outcome := "stored"
	if err != nil {
		outcome = "rejected"
		if models.IsCode(err, models.CodeInternal) {
			outcome = "failed"
			svcLog.LogServiceError(ctx, "image", "Upload", err)
		}
	}
	observability.ImageUploads.WithLabelValues(outcome).Inc()
	return img, err
}

func (s *ImageService) upload(in UploadImageInput) (*StoredImage, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	if !isAllowedImageMIME(mimetype.Detect(in.Content).String()) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, models.NewValidationError("Unsupported image format")
	}

	resized := resizeToFit(decoded, MaxImageEdge, MaxImageEdge)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	sum := sha256.Sum256(encoded)
	hash := hex.EncodeToString(sum[:])
	name := hash + ".webp"
	path := filepath.Join(s.uploadDir, name)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := writeBytesToFile(path, encoded); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	b := resized.Bounds()
	return &StoredImage{
		Hash:   hash,
		URL:    MediaURLPrefix + name,
		Width:  b.Dx(),
		Height: b.Dy(),
		Bytes:  len(encoded),
	}, nil
}

// IsValidImageName reports whether name is "<sha256 hex>.webp", the only
// form served from the upload directory.
func IsValidImageName(name string) bool {
	hash, ok := strings.CutSuffix(name, ".webp")
	if !ok || len(hash) != sha256.Size*2 {
		return false
	}
	for _, c := range hash {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// resizeToFit scales src down to fit inside maxWidth x maxHeight, keeping the aspect ratio.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
