package session

import (
	"bufio"
	"net"
	"net/http"
	"sync"
)

// responseWriter runs a commit hook right before the first header or body
// byte is written, which is the last moment a cookie can still be set.
type responseWriter struct {
	http.ResponseWriter
	beforeWrite func()
	mu          sync.Mutex
	written     bool
}

func newResponseWriter(w http.ResponseWriter, beforeWrite func()) *responseWriter {
	return &responseWriter{ResponseWriter: w, beforeWrite: beforeWrite}
}

// commit runs the hook once. Safe to call repeatedly.
func (w *responseWriter) commit() {
	w.mu.Lock()
	if w.written {
		w.mu.Unlock()
		return
	}
	w.written = true
	hook := w.beforeWrite
	w.beforeWrite = nil
	w.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// WriteHeader sends an HTTP response header with the provided status code.
func (w *responseWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

// Write writes the data to the connection as part of an HTTP reply.
func (w *responseWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

// Flush implements the http.Flusher interface.
func (w *responseWriter) Flush() {
	w.commit()
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements the http.Hijacker interface.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
