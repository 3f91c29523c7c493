package dto

// NotificationRequest payload for POST /api/notification.
type NotificationRequest struct {
	Message string `json:"message" validate:"required"`
}

// UploadResponse is returned after a successful profile picture upload.
type UploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
}
