package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/export"
)

type captureRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var body captureRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kindParam := chi.URLParam(r, "kind")
	if kindParam == "" {
		kindParam = body.Kind
	}
	kind, ok := domain.ParseKind(kindParam)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "kind must be \"post\" or \"profile\"")
		return
	}

	res, err := s.capturer.Capture(r.Context(), domain.CaptureRequest{URL: body.URL, Kind: kind})
	if err != nil {
		s.respondWithError(w, captureStatus(err), domain.UserMessage(kind, err))
		return
	}
	s.respondWithJSON(w, http.StatusOK, newCaptureResponse(res))
}

func captureStatus(err error) int {
	switch domain.Class(err) {
	case "invalid_request":
		return http.StatusBadRequest
	case "navigation_timeout", "timeout":
		return http.StatusGatewayTimeout
	case "no_text", "ocr", "element_not_found":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, s.layout.ImageDirs())
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, []string{s.layout.TextDir})
}

// serveArtifact sends the first file named by the {filename} parameter found in
// dirs, as a download. Only bare file names are accepted.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, dirs []string) {
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || !isBaseName(name) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeFile(w, r, path)
		return
	}
	s.respondWithError(w, http.StatusNotFound, fmt.Sprintf("File %s not found. Please make sure the file exists.", name))
}

func isBaseName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "Excel", "extracted_data.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "PDF", "extracted_data.pdf", "application/pdf", export.WritePDF)
}

// serveExport renders into memory first so a failed render can still produce
// a JSON error instead of a truncated download.
func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, format, filename, contentType string, write func(io.Writer, string) error) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("No text available for generating %s.", format))
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, text); err != nil {
		s.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Error generating %s.", format))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"service": "healthy"}
	for dir := range uniqueDirs(s.layout.InstagramDir, s.layout.TweetDir, s.layout.TextDir) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			healthStatus["artifacts"] = "unhealthy"
			s.logger.Error("health check failed for artifact dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	if _, ok := healthStatus["artifacts"]; !ok {
		healthStatus["artifacts"] = "healthy"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			healthStatus["redis"] = "unhealthy"
			s.logger.Error("health check failed for redis", zap.Error(err))
		} else {
			healthStatus["redis"] = "healthy"
		}
	}

	for _, v := range healthStatus {
		if v != "healthy" {
			s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
			return
		}
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

func uniqueDirs(dirs ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		out[d] = struct{}{}
	}
	return out
}
