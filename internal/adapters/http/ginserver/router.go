package ginserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the collector's gin engine. Requests are logged and panics
// recovered through log; extra middlewares run after those. No proxy is
// trusted, so the client IP is the peer address until TrustProxies says otherwise.
func NewRouter(h *Handler, log *zap.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	r.POST("/formmetrics.php", h.Submit)
	r.POST("/formmetrics", h.Submit)

	api := r.Group("/api/v1")
	api.GET("/records", h.Records)
	api.GET("/records/:id", h.Record)
	api.GET("/stats", h.Stats)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
	return r
}

// TrustProxies lets the listed proxy IPs or CIDRs supply the client IP via
// X-Forwarded-For. An empty list trusts none.
func TrustProxies(r *gin.Engine, proxies []string) error {
	if len(proxies) == 0 {
		return r.SetTrustedProxies(nil)
	}
	return r.SetTrustedProxies(proxies)
}
