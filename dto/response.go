package dto

import "errors"

// Custom errors
var (
	// ErrUnreadableImage means the recognizer produced zero text. The
	// extraction engine itself accepts empty text and returns an all-null
	// result; this error belongs to the caller.
	ErrUnreadableImage = errors.New("no text could be recognized in the document")
	ErrRecordNotFound  = errors.New("invoice record not found")
	ErrInvalidStatus   = errors.New("invalid invoice status")
)

// Invoice record statuses.
const (
	StatusDraft         = "Draft"
	StatusPendingReview = "Pending Review"
	StatusPaid          = "Paid"
	StatusRejected      = "Rejected"
)

// ValidStatus reports whether s is one of the allowed record statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusPaid, StatusRejected:
		return true
	}
	return false
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// UploadResponse is returned by the upload endpoint: the persisted record id
// plus the engine's full output for immediate review.
type UploadResponse struct {
	ID        string           `json:"id"`
	Filename  string           `json:"filename"`
	ImagePath string           `json:"image_path"`
	Status    string           `json:"status"`
	Extracted ExtractedInvoice `json:"extracted"`
}
