package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"filecatalog/internal/config"
	"filecatalog/internal/database"
	"filecatalog/internal/domain/file"
	"filecatalog/internal/pkg/jwt"
	"filecatalog/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret"

func setupRouter(t *testing.T, hub *realtime.Hub) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.Connect(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, file.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	cfg := &config.Config{
		UploadDir:       filepath.Join(dir, "uploads"),
		MaxUploadBytes:  5 << 20,
		JWTSecret:       testSecret,
		LookupCacheSize: 16,
		LookupCacheTTL:  time.Minute,
		ShutdownTimeout: time.Second,
	}
	r, err := NewRouter(cfg, db, hub)
	require.NoError(t, err)

	token, err := jwt.New(testSecret, time.Hour).GenerateToken("u-1", "tester")
	require.NoError(t, err)
	return r, token
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, token, name, contentType string, content []byte, tags string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("tags", tags))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())
	return env.Data
}

func TestCatalogLifecycle(t *testing.T) {
	r, token := setupRouter(t, nil)
	content := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 256)

	w := do(r, uploadRequest(t, token, "clip.mp4", "video/mp4", content, "a,b"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	uploaded := decode[struct {
		Filename string    `json:"filename"`
		File     file.File `json:"file"`
	}](t, w)
	assert.Equal(t, int64(0), uploaded.File.Order)
	assert.Equal(t, int64(0), uploaded.File.Views)
	assert.Equal(t, []string{"a", "b"}, uploaded.File.Tags)
	assert.Equal(t, "video/mp4", uploaded.File.MimeType)
	name := uploaded.Filename

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]file.File](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, name, listed[0].Filename)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/files/public/"+name, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, len(content), w.Body.Len())
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))

	req = httptest.NewRequest(http.MethodGet, "/api/files/public/"+name, nil)
	req.Header.Set("Range", "bytes=0-99")
	w = do(r, req)
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, content[:100], w.Body.Bytes())
	assert.Equal(t, "bytes 0-99/1024", w.Header().Get("Content-Range"))

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/files/increment-view/"+name, nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := `{"reorderedFiles":[{"id":"` + uploaded.File.ID + `"}]}`
	req = httptest.NewRequest(http.MethodPut, "/api/files/reorder", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/files/"+uploaded.File.ID+"/shareable-link", nil))
	require.Equal(t, http.StatusOK, w.Code)
	link := decode[map[string]string](t, w)["shareableLink"]
	assert.Contains(t, link, "/files/public/"+name)

	req = httptest.NewRequest(http.MethodGet, "/api/files/"+uploaded.File.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[file.File](t, w)
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, int64(0), got.Order)
	require.NotNil(t, got.ShareableLink)
	assert.Equal(t, link, *got.ShareableLink)
}

func TestGatedRoutes(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/files/list", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/files/reorder", strings.NewReader(`{}`))
	w = do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuxiliaryRoutes(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")

	w = do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, w.Body.String())

	w = do(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog_http_requests_total")

	w = do(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")

	req := httptest.NewRequest(http.MethodOptions, "/api/files", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = do(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEventsFeed(t *testing.T) {
	hub := realtime.NewHub()
	r, token := setupRouter(t, hub)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/files/events"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := do(r, uploadRequest(t, token, "notes.txt", "text/plain", []byte("hello"), "docs"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventFileUploaded, ev.Type)
	assert.NotEmpty(t, ev.FileID)
}
