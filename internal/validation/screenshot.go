package validation

import (
	"github.com/gabriel-vasile/mimetype"

	"impact-registration/internal/domain"
)

// NewScreenshot wraps uploaded bytes, taking the MIME type from the content
// rather than the file name.
func NewScreenshot(filename string, data []byte) *domain.Screenshot {
	return &domain.Screenshot{
		Filename:    filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}
