package results

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/report"
	"content-analyzer/internal/shared/server/middleware"
	"content-analyzer/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/results", h.list)
	rg.GET("/results/:id", h.get)
	rg.GET("/results/:id/report", h.report)
	rg.DELETE("/results/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) get(c *gin.Context) {
	c.Set("resultId", c.Param("id"))
	rec, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) report(c *gin.Context) {
	c.Set("resultId", c.Param("id"))
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	data, name, err := h.Svc.Report(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), format)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Attachment(c, name, format.ContentType(), data)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("resultId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "result not found", nil)
	case errors.Is(err, report.ErrUnsupportedFormat):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), map[string]any{"formats": []string{"pdf", "txt", "docx"}})
	case errors.Is(err, ErrInvalidInput), errors.Is(err, report.ErrEmptyResult):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "result operation failed", nil)
	}
}
