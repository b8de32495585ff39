package catalog

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"content-analyzer/internal/extract"
	"content-analyzer/internal/shared/server/middleware"
	"content-analyzer/internal/shared/server/respond"
)

const maxImportSize = 5 << 20

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches question-set routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/question-sets", h.list)
	rg.POST("/question-sets", h.create)
	rg.POST("/question-sets/import", h.importDocument)
	rg.GET("/question-sets/:id", h.get)
	rg.PUT("/question-sets/:id", h.update)
	rg.DELETE("/question-sets/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	sets, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"items": sets})
}

func (h *Handler) get(c *gin.Context) {
	c.Set("questionSetId", c.Param("id"))
	set, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, set)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	set, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("questionSetId", set.ID)
	respond.Created(c, set)
}

func (h *Handler) update(c *gin.Context) {
	c.Set("questionSetId", c.Param("id"))
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	set, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, set)
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("questionSetId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) importDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)
	fileHeader, err := c.FormFile("file")
	if err != nil {
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

	set, err := h.Svc.Import(
		c.Request.Context(),
		middleware.UserIDFromContext(c),
		c.PostForm("name"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	if set.ID == "" {
		respond.OK(c, gin.H{"questions": set.Questions})
		return
	}
	respond.Created(c, set)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "question set not found", nil)
	case errors.Is(err, ErrDefaultImmutable):
		respond.Error(c, http.StatusForbidden, "default_immutable", err.Error(), nil)
	case errors.Is(err, ErrInvalidCatalog), errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, extract.ErrUnsupported):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file_type", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "question set operation failed", nil)
	}
}
