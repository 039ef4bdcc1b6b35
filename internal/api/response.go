package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/user/capture-service/internal/domain"
)

// CaptureResponse is the JSON body of a successful capture. The URLs point at
// the artifact download routes.
type CaptureResponse struct {
	Kind          domain.Kind `json:"kind"`
	Identifier    string      `json:"identifier"`
	ExtractedText string      `json:"extracted_text"`
	Sentiment     *float64    `json:"sentiment,omitempty"`
	ImageURL      string      `json:"image_url"`
	TextURL       string      `json:"text_url,omitempty"`
	CapturedAt    time.Time   `json:"captured_at"`
}

func newCaptureResponse(res domain.CaptureResult) CaptureResponse {
	out := CaptureResponse{
		Kind:          res.Kind,
		Identifier:    res.Identifier,
		ExtractedText: res.ExtractedText,
		Sentiment:     res.Sentiment,
		ImageURL:      "/api/artifacts/images/" + url.PathEscape(filepath.Base(res.ScreenshotPath)),
		CapturedAt:    res.CapturedAt,
	}
	if res.TextFilePath != "" {
		out.TextURL = "/api/artifacts/texts/" + url.PathEscape(filepath.Base(res.TextFilePath))
	}
	return out
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, errorResponse{Error: message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response")
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response) //nolint:errcheck
}
