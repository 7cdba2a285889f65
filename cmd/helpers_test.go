package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"vibeify/config"
	"vibeify/logger"
	"vibeify/services"
	"vibeify/testutil"
	"vibeify/types"
)

// TestHelper provides utilities for testing the Vibeify server
type TestHelper struct {
	Server       *httptest.Server
	App          *App
	MediaDir     string
	AssetsDir    string
	Placeholders map[string][]byte
	Startup      *types.ScanSummary
}

// NewTestHelper creates a server backed by the in-memory catalog. populate
// writes the media library before the startup scan runs.
func NewTestHelper(t *testing.T, populate func(mediaDir string)) *TestHelper {
	root := t.TempDir()
	helper := &TestHelper{
		MediaDir:  filepath.Join(root, "media"),
		AssetsDir: filepath.Join(root, "static"),
	}
	testutil.WriteFile(t, helper.MediaDir, ".keep", nil)
	helper.Placeholders = testutil.Placeholders(t, helper.AssetsDir)
	if populate != nil {
		populate(helper.MediaDir)
	}

	cfg := testConfig(root, helper.MediaDir, helper.AssetsDir)
	app, err := NewApp(context.Background(), cfg, logger.Nop(), nil)
	require.NoError(t, err)

	summary, err := app.Scan(context.Background(), false)
	require.NoError(t, err)

	helper.App = app
	helper.Startup = summary
	helper.Server = httptest.NewServer(app.Router())
	t.Cleanup(func() {
		helper.Server.Close()
		app.Close(context.Background())
	})
	return helper
}

func testConfig(root, mediaDir, assetsDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConf{
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		BaseURL: "http://vibeify.test",
		Media:   config.MediaConf{Dir: mediaDir},
		Images: config.ImagesConf{
			Dir:          filepath.Join(root, "images"),
			MaxDimension: 64,
		},
		Assets:  config.AssetsConf{Dir: assetsDir},
		Catalog: config.CatalogConf{Driver: "memory"},
		Scan:    config.ScanConf{IdentityCacheSize: 64},
		CORS:    config.CORSConf{Origins: []string{"*"}},
	}
}

// MemoryCatalog returns the catalog backing the server
func (h *TestHelper) MemoryCatalog(t *testing.T) *services.MemoryCatalog {
	catalog, ok := h.App.Catalog().(*services.MemoryCatalog)
	require.True(t, ok, "catalog should be in-memory")
	return catalog
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, header http.Header, body io.Reader) *http.Response {
	req, err := http.NewRequest(method, h.Server.URL+path, body)
	require.NoError(t, err)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get makes a GET request and returns the response with its body read
func (h *TestHelper) Get(t *testing.T, path string, header http.Header) (*http.Response, []byte) {
	resp := h.MakeRequest(t, http.MethodGet, path, header, nil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// GetJSON makes a GET request and unmarshals JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	resp, body := h.Get(t, path, nil)
	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
	return resp
}

// PostJSON makes a bodiless POST request and unmarshals JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, target interface{}) *http.Response {
	resp := h.MakeRequest(t, http.MethodPost, path, nil, nil)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), string(body))
	}
	return resp
}

// Upload posts data as the multipart "file" field with the given part
// content type
func (h *TestHelper) Upload(t *testing.T, path, contentType string, data []byte) (*http.Response, []byte) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	header := http.Header{"Content-Type": []string{w.FormDataContentType()}}
	resp := h.MakeRequest(t, http.MethodPost, path, header, &buf)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// WaitForScan polls /scan/last until the scan with scanID has completed
func (h *TestHelper) WaitForScan(t *testing.T, scanID string, timeout time.Duration) *types.ScanSummary {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		var summary types.ScanSummary
		resp := h.GetJSON(t, "/scan/last", &summary)
		if resp.StatusCode == http.StatusOK && summary.ID == scanID {
			return &summary
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("scan %s did not complete within timeout", scanID)
	return nil
}

// ConnectWebSocket connects to a WebSocket endpoint
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	wsURL := "ws" + h.Server.URL[4:] + path // Replace http:// with ws://

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}
