package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/wippyai/hello-element/element"
	"github.com/wippyai/hello-element/guest"
)

const wasmContentType = "application/wasm"

// serve runs the dev server until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	timeout := time.Duration(a.cfg.Serve.TimeoutSeconds) * time.Second
	server := &http.Server{
		Addr:         a.cfg.Serve.Addr,
		Handler:      a.handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  2 * timeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("serving",
			zap.String("addr", server.Addr),
			zap.String("root", a.cfg.Root),
			zap.String("module", a.cfg.Module))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// handler builds the routed, CORS-wrapped and logged server handler.
func (a *app) handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", a.handleIndex).Methods("GET")
	router.HandleFunc("/hello.wasm", a.handleFile(a.cfg.Module, wasmContentType)).Methods("GET")
	router.HandleFunc("/app.wasm", a.handleFile(a.cfg.Serve.App, wasmContentType)).Methods("GET")
	router.HandleFunc("/wasm_exec.js", a.handleFile(a.cfg.Serve.WasmExec, "text/javascript")).Methods("GET")
	router.HandleFunc("/render", a.handleRender).Methods("GET")
	router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: a.cfg.Serve.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return corsHandler.Handler(a.loggingMiddleware(router))
}

func (a *app) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// handleFile serves path from the resource filesystem.
func (a *app) handleFile(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := guest.ReadFile(a.fs, path)
		if err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				a.respondWithError(w, http.StatusNotFound, "not_found", path+" not found under "+a.cfg.Root)
				return
			}
			a.respondWithError(w, http.StatusInternalServerError, "read_failed", err.Error())
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, path, time.Time{}, bytes.NewReader(data))
	}
}

// handleRender serves the index page with hello-world rendered on the server.
func (a *app) handleRender(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := a.renderPage(r.Context(), &buf); err != nil {
		a.respondWithError(w, http.StatusBadGateway, "render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, statErr := a.fs.Stat(a.cfg.Module)
	a.respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"element":   element.TagName,
		"module":    a.cfg.Module,
		"available": statErr == nil,
		"instances": a.eng.Instances(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

func (a *app) respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.log.Warn("encode response", zap.Error(err))
	}
}

func (a *app) respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	a.respondWithJSON(w, statusCode, errorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	})
}

func (a *app) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)))
	})
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
