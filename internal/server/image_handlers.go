package server

import (
	"io"
	"mime/multipart"

	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/gofiber/fiber/v2"
)

// imageFormField is the multipart field carrying a post attachment.
const imageFormField = "image"

// readAttachment loads an uploaded part, reading at most limit+1 bytes so an
// understated part size cannot slip past the cap.
func readAttachment(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, limit+1))
}

// UploadImage handles POST /api/images. The image is re-encoded as WebP and
// the returned /media URL can be placed in a post's image_urls.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile(imageFormField)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	limit := s.imageService.MaxUploadBytes()
	tooLarge := models.NewValidationError("File too large")
	if fh.Size > limit {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, tooLarge)
	}
	content, err := readAttachment(fh, limit)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	if int64(len(content)) > limit {
		return models.RespondWithError(c, fiber.StatusRequestEntityTooLarge, tooLarge)
	}

	stored, err := s.imageService.Upload(c.UserContext(), service.UploadImageInput{
		UserID:      currentUserID(c),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	c.Location(stored.URL)
	return c.Status(fiber.StatusCreated).JSON(stored)
}
