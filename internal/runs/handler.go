package runs

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/report"
	"content-analyzer/internal/shared/server/middleware"
	"content-analyzer/internal/shared/server/respond"
	"content-analyzer/internal/transcribe"
)

// multipartOverhead is the room left above MaxUploadBytes for form framing.
const multipartOverhead = 1 << 20

// QuestionSets resolves the question set a run is started with.
type QuestionSets interface {
	Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error)
}

type Handler struct {
	Runs *Manager
	Sets QuestionSets
	// MaxUploadBytes caps the uploaded file; zero means transcribe.DefaultMaxFileBytes.
	MaxUploadBytes int64
}

func NewHandler(runs *Manager, sets QuestionSets) *Handler {
	return &Handler{Runs: runs, Sets: sets}
}

func (h *Handler) uploadLimit() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return transcribe.DefaultMaxFileBytes
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/runs", h.start)
	rg.GET("/runs/current", h.current)
	rg.GET("/runs/current/events", h.events)
	rg.POST("/runs/current/cancel", h.cancel)
	rg.DELETE("/runs/current", h.reset)
	rg.GET("/runs/current/report", h.report)
}

func (h *Handler) start(c *gin.Context) {
	limit := h.uploadLimit()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(c, &pipeline.Error{Kind: pipeline.KindFileTooLarge, Stage: pipeline.StageIdle,
				Err: &transcribe.SizeError{Size: c.Request.ContentLength, Limit: limit}})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if size := int64(len(data)); size > limit {
		writeError(c, &pipeline.Error{Kind: pipeline.KindFileTooLarge, Stage: pipeline.StageIdle,
			Err: &transcribe.SizeError{Size: size, Limit: limit}})
		return
	}

	owner := middleware.UserIDFromContext(c)
	set, err := h.Sets.Get(c.Request.Context(), owner, c.PostForm("questionSetId"))
	if err != nil {
		writeError(c, err)
		return
	}

	snap, err := h.Runs.Start(c.Request.Context(), owner, pipeline.File{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, set)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("runId", snap.Job.ID)
	c.Set("questionSetId", set.ID)
	respond.JSON(c, http.StatusAccepted, snap)
}

func (h *Handler) current(c *gin.Context) {
	snap, err := h.Runs.Current(middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("runId", snap.Job.ID)
	respond.OK(c, snap)
}

func (h *Handler) events(c *gin.Context) {
	updates, unsubscribe, err := h.Runs.Subscribe(middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	for {
		select {
		case snap := <-updates:
			c.Set("runId", snap.Job.ID)
			c.SSEvent("job", snap)
			c.Writer.Flush()
			if !snap.Active {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.Runs.Cancel(middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Runs.Reset(middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) report(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, name, err := h.Runs.Report(middleware.UserIDFromContext(c), format)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, name, format.ContentType(), data)
}

func writeError(c *gin.Context, err error) {
	var pe *pipeline.Error
	switch {
	case errors.As(err, &pe):
		respond.Error(c, kindStatus(pe.Kind), string(pe.Kind), pe.UserMessage(), nil)
	case errors.Is(err, ErrRunActive):
		respond.Error(c, http.StatusConflict, "run_active", err.Error(), nil)
	case errors.Is(err, ErrNoRun):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrNotFinished), errors.Is(err, ErrNoResult):
		respond.Error(c, http.StatusConflict, "run_not_finished", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "question set not found", nil)
	case errors.Is(err, report.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), map[string]any{"formats": []string{"pdf", "txt", "docx"}})
	case errors.Is(err, report.ErrEmptyResult):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "run operation failed", nil)
	}
}

func kindStatus(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidCatalog:
		return http.StatusBadRequest
	case pipeline.KindFileTooLarge, pipeline.KindPreprocessingInsufficient:
		return http.StatusRequestEntityTooLarge
	case pipeline.KindUnsupportedFileType:
		return http.StatusUnsupportedMediaType
	case pipeline.KindConfigurationMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
