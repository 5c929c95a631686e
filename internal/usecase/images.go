package usecase

import (
	"context"
	"errors"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/logger"
	"go-panel-backend/pkg/media"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/security"
	"go-panel-backend/pkg/security/antivirus"
)

// Object key prefixes in the blob store.
const (
	AvatarPrefix  = "avatars"
	ProductPrefix = "productos"
)

const (
	msgInvalidImage  = "Selecciona una imagen válida (JPG, PNG, GIF o WEBP)."
	msgImageTooLarge = "La imagen supera el tamaño máximo permitido."
	msgImageRejected = "La imagen fue rechazada por el análisis de seguridad."
)

type ImageConfig struct {
	MaxBytes int64
	// MaxDimension > 0 downscales larger images before upload.
	MaxDimension int
	// Scanner defaults to antivirus.Nop.
	Scanner antivirus.Scanner
}

// ImageUploader validates, optionally downscales and stores images, returning
// their public URL.
type ImageUploader struct {
	blobs   domain.BlobStore
	cfg     ImageConfig
	metrics metrics.Recorder
	now     func() time.Time
}

func NewImageUploader(blobs domain.BlobStore, cfg ImageConfig, rec metrics.Recorder) *ImageUploader {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if cfg.Scanner == nil {
		cfg.Scanner = antivirus.Nop{}
	}
	return &ImageUploader{blobs: blobs, cfg: cfg, metrics: rec, now: time.Now}
}

// Check rejects anything that is not an allowed image or that the scanner
// flags. The detected MIME type replaces the client-supplied one.
func (u *ImageUploader) Check(ctx context.Context, up *domain.Upload) error {
	check, err := security.ValidateImage(up.Filename, up.Data, u.cfg.MaxBytes)
	if err != nil {
		if errors.Is(err, security.ErrFileTooLarge) {
			return apperror.Validation(msgImageTooLarge)
		}
		return apperror.Validation(msgInvalidImage)
	}
	up.ContentType = check.DetectedMIME

	verdict, err := u.cfg.Scanner.Scan(ctx, up.Filename, up.Data)
	switch {
	case errors.Is(err, antivirus.ErrInfected):
		u.metrics.RecordUpload("scan", "rejected")
		logger.Log.Warn("upload rejected by scanner", "filename", up.Filename, "threat", verdict.Threat)
		return apperror.Validation(msgImageRejected)
	case err != nil:
		u.metrics.RecordUpload("scan", "failure")
		logger.Log.Error("upload scan failed", "filename", up.Filename, "error", err)
		return apperror.Storage(msgImageRejected, err)
	}
	return nil
}

// Upload stores a checked image under prefix and returns its public URL.
func (u *ImageUploader) Upload(ctx context.Context, prefix string, up domain.Upload) (string, error) {
	scaled, err := media.Downscale(up, u.cfg.MaxDimension)
	if err != nil {
		logger.Log.Warn("image downscale failed, uploading original", "filename", up.Filename, "error", err)
		scaled = up
	}

	key := media.ObjectKey(prefix, scaled.Filename, u.now())
	ref, err := u.blobs.Put(ctx, key, scaled.Data, scaled.ContentType)
	if err != nil {
		u.metrics.RecordUpload(prefix, "failure")
		logger.Log.Error("image upload failed", "key", key, "error", err)
		return "", apperror.Storage("", err)
	}
	url, err := u.blobs.PublicURL(ctx, ref)
	if err != nil {
		u.metrics.RecordUpload(prefix, "failure")
		logger.Log.Error("image url resolution failed", "key", key, "error", err)
		return "", apperror.Storage("", err)
	}

	u.metrics.RecordUpload(prefix, "success")
	return url, nil
}
