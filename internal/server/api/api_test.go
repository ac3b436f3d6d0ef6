package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayusman/palmpay/internal/app"
	"github.com/ayusman/palmpay/internal/capture"
	"github.com/ayusman/palmpay/internal/detector"
	"github.com/ayusman/palmpay/internal/store"
)

const swipeBody = `{"gesture_data":{"points":[[0.1,0.5],[0.2,0.5],[0.35,0.5],[0.5,0.5]]}}`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, s *store.Store) *app.App {
	t.Helper()
	return app.New(app.Config{
		Store:    s,
		Camera:   capture.NewMockCamera(nil, true),
		Detector: detector.NewMockDetector(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
