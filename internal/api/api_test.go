package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/user/capture-service/internal/artifact"
	"github.com/user/capture-service/internal/config"
	"github.com/user/capture-service/internal/domain"
	"github.com/user/capture-service/internal/monitoring"
)

type fakeCapturer struct {
	got domain.CaptureRequest
	res domain.CaptureResult
	err error
}

func (f *fakeCapturer) Capture(_ context.Context, req domain.CaptureRequest) (domain.CaptureResult, error) {
	f.got = req
	return f.res, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type testServer struct {
	*Server
	capturer *fakeCapturer
	metrics  *monitoring.Metrics
}

func newTestServer(t *testing.T, redis Pinger) *testServer {
	t.Helper()
	root := t.TempDir()
	layout := artifact.Layout{
		InstagramDir: filepath.Join(root, "images"),
		TweetDir:     filepath.Join(root, "tweet_screenshots"),
		TextDir:      filepath.Join(root, "tweet_texts"),
	}
	require.NoError(t, layout.Ensure())

	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	c := &fakeCapturer{}
	cfg := &config.Config{ServerPort: "0", CaptureTimeoutSeconds: 5}
	return &testServer{
		Server:   NewServer(cfg, c, layout, redis, m, reg, zap.NewNop()),
		capturer: c,
		metrics:  m,
	}
}

func (ts *testServer) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestCapture_Post(t *testing.T) {
	ts := newTestServer(t, nil)
	score := 0.625
	ts.capturer.res = domain.CaptureResult{
		Kind:           domain.KindPost,
		Identifier:     "XYZ9",
		ExtractedText:  "I love this!",
		Sentiment:      &score,
		ScreenshotPath: filepath.Join(ts.layout.InstagramDir, "post_XYZ9.png"),
	}

	rec := ts.do(http.MethodPost, "/api/capture/post", `{"url":"https://instagram.com/p/XYZ9/"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.KindPost, ts.capturer.got.Kind)
	assert.Equal(t, "https://instagram.com/p/XYZ9/", ts.capturer.got.URL)

	var body CaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "XYZ9", body.Identifier)
	assert.Equal(t, "/api/artifacts/images/post_XYZ9.png", body.ImageURL)
	assert.Empty(t, body.TextURL)
	require.NotNil(t, body.Sentiment)
	assert.InDelta(t, 0.625, *body.Sentiment, 1e-9)
}

func TestCapture_KindInBody(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.capturer.res = domain.CaptureResult{
		Kind:           domain.KindProfile,
		Identifier:     "someuser",
		ScreenshotPath: "x/page_someuser.png",
		TextFilePath:   "y/page_someuser.txt",
	}

	rec := ts.do(http.MethodPost, "/api/capture", `{"url":"https://x.com/someuser","kind":"profile"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.KindProfile, ts.capturer.got.Kind)

	var body CaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/api/artifacts/texts/page_someuser.txt", body.TextURL)
	assert.Nil(t, body.Sentiment)
}

func TestCapture_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
		msg    string
	}{
		{"bad json", "/api/capture/post", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"bad kind", "/api/capture", `{"url":"u","kind":"story"}`, nil, http.StatusBadRequest, `kind must be "post" or "profile"`},
		{"empty url", "/api/capture/profile", `{"url":""}`, domain.ErrInvalidRequest, http.StatusBadRequest, "Please provide an X.com profile URL."},
		{"no text", "/api/capture/post", `{"url":"https://instagram.com/p/a/"}`, eris.Wrap(domain.ErrNoTextFound, "post a"), http.StatusUnprocessableEntity,
			"Error processing the Instagram post: No text found in the screenshot!"},
		{"timeout", "/api/capture/post", `{"url":"https://instagram.com/p/a/"}`, eris.Wrap(domain.ErrCaptureTimeout, "slow"), http.StatusGatewayTimeout,
			"Error processing the Instagram post: the capture took too long"},
		{"launch", "/api/capture/profile", `{"url":"https://x.com/a"}`, eris.Wrap(domain.ErrBrowserLaunch, "no chrome"), http.StatusInternalServerError,
			"Error processing the X.com profile: the browser could not be started"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.capturer.err = tt.err

			rec := ts.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeError(t, rec))
		})
	}
}

func TestArtifacts_Download(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(ts.layout.TweetDir, "tweet_a.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ts.layout.TextDir, "tweet_a.txt"), []byte("hello"), 0o644))

	rec := ts.do(http.MethodGet, "/api/artifacts/images/tweet_a.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = ts.do(http.MethodGet, "/api/artifacts/texts/tweet_a.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestArtifacts_InstagramDirFirst(t *testing.T) {
	ts := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(ts.layout.InstagramDir, "same.png"), []byte("instagram"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(ts.layout.TweetDir, "same.png"), []byte("tweet"), 0o644))

	rec := ts.do(http.MethodGet, "/api/artifacts/images/same.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "instagram", rec.Body.String())
}

func TestArtifacts_NotFoundAndTraversal(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/artifacts/texts/missing.txt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File missing.txt not found. Please make sure the file exists.", decodeError(t, rec))

	for _, target := range []string{"/api/artifacts/texts/..", "/api/artifacts/texts/..%5Csecret", "/api/artifacts/images/..%2Fconfig"} {
		rec = ts.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestIsBaseName(t *testing.T) {
	assert.True(t, isBaseName("post_XYZ9.png"))
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, "../x"} {
		assert.False(t, isBaseName(bad), bad)
	}
}

func TestExport_XLSX(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/export/xlsx?text=I+love+this%21", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "extracted_data.xlsx")

	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "I love this!", f.Sheets[0].Rows[1].Cells[0].String())
}

func TestExport_PDF(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/export/pdf?text=hello", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestExport_MissingText(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/export/xlsx", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No text available for generating Excel.", decodeError(t, rec))

	rec = ts.do(http.MethodGet, "/api/export/pdf?text=", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No text available for generating PDF.", decodeError(t, rec))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, fakePinger{})
	rec := ts.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["redis"])
	assert.Equal(t, "healthy", body["artifacts"])

	ts = newTestServer(t, fakePinger{err: errors.New("connection refused")})
	rec = ts.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics_EndpointAndMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(http.MethodGet, "/api/artifacts/images/a.png", "")
	ts.do(http.MethodGet, "/api/artifacts/images/b.png", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(
		ts.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/artifacts/images/{filename}", "404")))

	rec := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
