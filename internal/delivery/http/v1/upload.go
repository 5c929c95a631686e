package v1

import (
	"errors"
	"io"
	"net/http"

	"go-panel-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// formUpload reads an optional multipart file. A missing field yields nil.
// At most maxBytes+1 bytes are read so the size check downstream still
// sees an oversized file as oversized.
func formUpload(c *gin.Context, field string, maxBytes int64) (*domain.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	return &domain.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
