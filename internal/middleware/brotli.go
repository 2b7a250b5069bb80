package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig configures response compression.
type BrotliConfig struct {
	Quality   int
	MinLength int
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// bufferedWriter holds the whole body so the encoding can be chosen once its size is known.
// After the first Flush it stops buffering and writes straight through.
type bufferedWriter struct {
	gin.ResponseWriter
	body        bytes.Buffer
	status      int
	passthrough bool
}

func (w *bufferedWriter) WriteHeader(code int) {
	if w.passthrough {
		return
	}
	w.status = code
}

func (w *bufferedWriter) WriteHeaderNow() {
	if w.passthrough {
		w.ResponseWriter.WriteHeaderNow()
	}
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	if w.passthrough {
		return w.ResponseWriter.Write(data)
	}
	return w.body.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	if w.passthrough {
		return w.ResponseWriter.WriteString(s)
	}
	return w.body.WriteString(s)
}

// Flush sends whatever is buffered uncompressed and switches to pass-through,
// so streaming handlers reach the client as they write.
func (w *bufferedWriter) Flush() {
	if !w.passthrough {
		w.passthrough = true
		w.ResponseWriter.Header().Add("Vary", "Accept-Encoding")
		w.ResponseWriter.WriteHeader(w.Status())
		if w.body.Len() > 0 {
			_, _ = w.ResponseWriter.Write(w.body.Bytes())
			w.body.Reset()
		}
	}
	w.ResponseWriter.Flush()
}

func (w *bufferedWriter) Status() int {
	if w.passthrough {
		return w.ResponseWriter.Status()
	}
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *bufferedWriter) Size() int {
	if w.passthrough {
		return w.ResponseWriter.Size()
	}
	return w.body.Len()
}

func (w *bufferedWriter) Written() bool {
	if w.passthrough {
		return true
	}
	return w.status != 0 || w.body.Len() > 0
}

// Brotli compresses JSON responses with the default config.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig compresses responses of at least cfg.MinLength bytes for
// clients that accept "br". WebSocket upgrades and event streams are passed
// through untouched.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < 0 || cfg.Quality > 11 {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if shouldSkip(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		original := c.Writer
		bw := &bufferedWriter{ResponseWriter: original}
		c.Writer = bw
		c.Next()
		c.Writer = original

		if bw.passthrough {
			return
		}

		original.Header().Add("Vary", "Accept-Encoding")
		body := bw.body.Bytes()
		if len(body) < cfg.MinLength || original.Header().Get("Content-Encoding") != "" ||
			strings.HasPrefix(original.Header().Get("Content-Type"), "text/event-stream") {
			original.WriteHeader(bw.Status())
			_, _ = original.Write(body)
			return
		}

		var compressed bytes.Buffer
		enc := brotli.NewWriterLevel(&compressed, cfg.Quality)
		if _, err := enc.Write(body); err != nil || enc.Close() != nil {
			original.WriteHeader(bw.Status())
			_, _ = original.Write(body)
			return
		}

		original.Header().Set("Content-Encoding", "br")
		original.Header().Set("Content-Length", strconv.Itoa(compressed.Len()))
		original.WriteHeader(bw.Status())
		_, _ = original.Write(compressed.Bytes())
	}
}

func shouldSkip(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name := strings.TrimSpace(strings.SplitN(enc, ";", 2)[0])
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
