package v1

import (
	"context"
	"net/http"
	"strings"

	"go-panel-backend/internal/delivery/http/middleware"
	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/usecase"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

const msgConfirmDelete = "Confirma la eliminación antes de continuar."

// EditorDeps is shared by the three collection handlers.
type EditorDeps struct {
	Sockets   *Sockets
	Metrics   metrics.Recorder
	Audit     *security.AuditLogger
	MaxUpload int64
	// Upload guards routes that accept an image.
	Upload gin.HandlerFunc
}

func (d EditorDeps) recorder() metrics.Recorder {
	if d.Metrics == nil {
		return metrics.Nop{}
	}
	return d.Metrics
}

type exportFunc func(ctx context.Context, format string) ([]byte, string, error)

// sendExport streams the collection as a download. format defaults to xlsx.
func sendExport(c *gin.Context, collection string, export exportFunc, audit *security.AuditLogger) {
	format := strings.ToLower(c.DefaultQuery("format", usecase.FormatXLSX))

	data, filename, err := export(c.Request.Context(), format)
	if err != nil {
		c.Error(err)
		return
	}

	if audit != nil {
		uid := ""
		if s := middleware.SessionFrom(c); s != nil {
			uid = s.UID
		}
		audit.Log(c.Request.Context(), security.AuditEvent{
			Event:        security.EventDataExport,
			SubjectType:  "uid",
			SubjectValue: uid,
			IP:           c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			Details:      map[string]any{"collection": collection, "format": format},
		})
	}

	contentType := "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if format == usecase.FormatCSV {
		contentType = "text/csv; charset=utf-8"
	}
	response.Attachment(c, filename, contentType, data)
}

// confirmed enforces the two-step delete over plain HTTP.
func confirmed(c *gin.Context) bool {
	if c.Query("confirm") == "true" {
		return true
	}
	c.Error(apperror.New(http.StatusPreconditionRequired, msgConfirmDelete, nil))
	return false
}

func bindInput(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		c.Error(apperror.BadRequest(apperror.MsgUnexpected))
		return false
	}
	return true
}
