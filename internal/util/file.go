package util

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/feedora/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// MaxUploadBytes caps a single media upload.
const MaxUploadBytes = 50 << 20

// FormUpload opens the multipart file under field as a storage.Upload. It
// returns a nil upload when the field is absent. The returned closer must be
// called once the upload has been stored.
func FormUpload(c *gin.Context, field string, folder storage.Folder, userID string) (*storage.Upload, io.Closer, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, io.NopCloser(nil), nil
	}
	if err != nil {
		return nil, nil, apperrors.Invalidf("could not read %s upload", field)
	}
	if fh.Size > MaxUploadBytes {
		return nil, nil, apperrors.Invalidf("%s exceeds %d MB", field, MaxUploadBytes>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", field, err)
	}
	return &storage.Upload{
		Folder:   folder,
		UserID:   userID,
		Filename: fh.Filename,
		Body:     f,
		Size:     fh.Size,
	}, f, nil
}
