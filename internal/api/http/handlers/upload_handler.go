package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asafe/user-service/internal/api/dto"
	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/service"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// UploadHandler accepts profile picture uploads.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Profile handles POST /api/upload/profile (multipart field "file").
func (h *UploadHandler) Profile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("No file uploaded", nil)
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	url, err := h.uploads.UploadProfilePicture(c.UserContext(), auth.MustPrincipal(c), service.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(dto.UploadResponse{Message: "File uploaded successfully", FileURL: url})
}
