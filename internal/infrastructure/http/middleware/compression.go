package middleware

import (
	"bufio"
	"net"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// BrotliLevel balances ratio against latency for dynamic HTML.
const BrotliLevel = 5

// Compression encodes text responses with brotli when the client accepts
// it. Binary bodies such as the PNG download pass through untouched.
func (m *Middleware) Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Server.EnableCompression || !acceptsBrotli(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		bw := &brotliResponseWriter{ResponseWriter: w}
		defer bw.Close()

		next.ServeHTTP(bw, r)
	})
}

func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if coding == "br" {
			return !strings.Contains(part, "q=0") || strings.Contains(part, "q=0.")
		}
	}
	return false
}

type brotliResponseWriter struct {
	http.ResponseWriter
	writer      *brotli.Writer
	wroteHeader bool
}

func (w *brotliResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	h := w.Header()
	if code != http.StatusNoContent && code != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type")) {
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		w.writer = brotli.NewWriterLevel(w.ResponseWriter, BrotliLevel)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *brotliResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.writer != nil {
		return w.writer.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// Flush pushes buffered compressed bytes to the client.
func (w *brotliResponseWriter) Flush() {
	if w.writer != nil {
		_ = w.writer.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets websocket upgrades bypass compression.
func (w *brotliResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Close finishes the brotli stream.
func (w *brotliResponseWriter) Close() {
	if w.writer != nil {
		_ = w.writer.Close()
	}
}

func compressible(contentType string) bool {
	mainType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return strings.HasPrefix(mainType, "text/") ||
		mainType == "application/json" ||
		mainType == "application/javascript" ||
		mainType == "image/svg+xml"
}
