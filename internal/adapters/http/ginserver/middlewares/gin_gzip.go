// Package middlewares holds gin middlewares shared by the collector server.
package middlewares

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type gzipReadCloser struct {
	gz  *gzip.Reader
	raw io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		return err
	}
	if g.raw != nil {
		return g.raw.Close()
	}
	return nil
}

// GzipRequest transparently inflates request bodies sent with
// Content-Encoding: gzip so form parsing sees the plain body.
func GzipRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		enc := strings.ToLower(c.GetHeader("Content-Encoding"))
		if !strings.Contains(enc, "gzip") {
			c.Next()
			return
		}
		gr, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = &gzipReadCloser{gz: gr, raw: c.Request.Body}
		c.Request.Header.Del("Content-Encoding")
		c.Request.Header.Del("Content-Length")
		c.Request.ContentLength = -1
		c.Next()
	}
}
