package ginserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/formmetrics/internal/domain"
	"github.com/vshulcz/formmetrics/internal/services/ingest"
)

// FormField is the form field carrying the serialized record.
const FormField = "json"

const maxSubmitBytes = 1 << 20

// Handler exposes HTTP endpoints for record collection and inspection.
type Handler struct {
	svc     *ingest.Service
	metrics http.Handler
}

// NewHandler wires an ingest service into a gin-compatible HTTP handler.
// A non-nil metrics handler is served on /metrics.
func NewHandler(svc *ingest.Service, metrics http.Handler) *Handler {
	return &Handler{svc: svc, metrics: metrics}
}

// Submit handles `POST /formmetrics.php` with the record in the `json` form
// field, urlencoded or multipart.
func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitBytes)
	raw, ok := c.GetPostForm(FormField)
	if !ok {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	ctx := ingest.WithClientIP(c.Request.Context(), c.ClientIP())
	if _, err := h.svc.Accept(ctx, []byte(raw)); err != nil {
		httpError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
}

// Records handles `GET /api/v1/records?limit=N`, newest first.
func (h *Handler) Records(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, "bad request")
			return
		}
		limit = n
	}

	recs, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		httpError(c, err)
		return
	}
	if recs == nil {
		recs = []domain.StoredRecord{}
	}
	c.JSON(http.StatusOK, recs)
}

// Record handles `GET /api/v1/records/:id`.
func (h *Handler) Record(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Stats handles `GET /api/v1/stats`.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Ping proxies `GET /ping` to the storage health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "db ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func httpError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotFound):
		c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidRecord):
		c.String(http.StatusBadRequest, "bad request")
	default:
		c.String(http.StatusInternalServerError, "internal error")
	}
}
