package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/meech-ward/qr-full-stack/internal/config"
	"github.com/meech-ward/qr-full-stack/internal/handler"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"github.com/meech-ward/qr-full-stack/internal/repository"
	"github.com/meech-ward/qr-full-stack/internal/service"
	"github.com/meech-ward/qr-full-stack/pkg/compositor"
	"github.com/meech-ward/qr-full-stack/pkg/jwt"
	"github.com/meech-ward/qr-full-stack/pkg/qrcode"
	"github.com/meech-ward/qr-full-stack/pkg/storage"
	"github.com/meech-ward/qr-full-stack/pkg/utils"
	"github.com/meech-ward/qr-full-stack/pkg/workqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.QRCode{}, &models.QRImage{}, &models.QRUse{}); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		LogEnv:          "test",
		UploadsDir:      t.TempDir(),
		JWTSecret:       testSecret,
		CORSOrigins:     "*",
		MaxUploadSize:   1 << 20,
		RateLimitWindow: time.Minute,
	}
	log := zap.NewNop()

	sinks := service.Sinks{
		Persistent: storage.NewLocalSink(cfg.UploadsDir, "/api/uploads"),
		Preview:    storage.NewDataURLSink(),
	}
	codes := repository.NewQRCodeRepository(db)
	images := repository.NewQRImageRepository(db)
	uses := repository.NewQRUseRepository(db)
	queue := workqueue.New(workqueue.Options{Delay: -1}, log)
	t.Cleanup(func() { queue.Close(context.Background()) })

	qrService := service.NewQRService(codes, images, uses, sinks, log)
	compositeService := service.NewCompositeService(
		compositor.New(compositor.Options{}, log), queue, qrcode.NewEncoder(qrcode.Highest, 2),
		codes, images, sinks, 2, log,
	)

	return New(cfg,
		log,
		handler.NewHealthHandler(queue),
		handler.NewQRHandler(qrService, compositeService, utils.NewValidator(), int64(cfg.MaxUploadSize), log),
		handler.NewShortURLHandler(qrService, log),
	)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func createShortURL(t *testing.T, app *fiber.App, text string) models.ShortURLResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/qr/short-url", strings.NewReader(fmt.Sprintf(`{"text":%q}`, text)))
	req.Header.Set("Content-Type", "application/json")
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("short-url status = %d: %s", resp.StatusCode, body)
	}
	var out models.ShortURLResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []uint8{200, 60, 20, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for k, data := range files {
		part, err := w.CreateFormFile(k, k+".bin")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/qr", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) ||
		!strings.Contains(string(body), `"pending":0`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestShortURLRedirectAndScanCount(t *testing.T) {
	app := newTestApp(t)
	link := createShortURL(t, app, "example.com/menu")
	if link.Type != models.QRTypeURL {
		t.Fatalf("type = %q", link.Type)
	}

	req := httptest.NewRequest(http.MethodGet, "/s/"+link.ID, nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	resp, _ := do(t, app, req)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("redirect status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "https://example.com/menu" {
		t.Errorf("Location = %q", loc)
	}

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/qr/"+link.ID, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var detail models.QRCodeDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		t.Fatal(err)
	}
	if detail.ScanCount != 1 || detail.QRCode.ID != link.ID {
		t.Errorf("detail = %+v", detail)
	}

	resp, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/qr", nil))
	var list models.QRCodeList
	if err := json.Unmarshal(body, &list); err != nil || len(list.QRCodes) != 1 {
		t.Errorf("list = %d %s", resp.StatusCode, body)
	}
}

func TestShortURLText(t *testing.T) {
	app := newTestApp(t)
	note := createShortURL(t, app, "table for two")

	resp, body := do(t, app, httptest.NewRequest(http.MethodGet, "/s/"+note.ID, nil))
	if resp.StatusCode != http.StatusOK || string(body) != "table for two" {
		t.Errorf("text code = %d %q", resp.StatusCode, body)
	}

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/s/nope", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id = %d", resp.StatusCode)
	}
}

func TestCreatePreview(t *testing.T) {
	app := newTestApp(t)
	req := multipartRequest(t,
		map[string]string{"text": "https://example.com", "blend": "normal", "padding": "0"},
		map[string][]byte{"bgImage": pngBytes(t)},
	)
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.CreateQRResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Files) != 1 || out.Files[0].Blend != "normal" || !strings.HasPrefix(out.Files[0].URL, "data:image/jpeg;base64,") {
		t.Errorf("files = %+v", out.Files)
	}
}

func TestCreateSavedAndServeUpload(t *testing.T) {
	app := newTestApp(t)
	code := createShortURL(t, app, "example.com")

	req := multipartRequest(t,
		map[string]string{"id": code.ID, "save": "true"},
		map[string][]byte{"qrImage": pngBytes(t), "bgImage": pngBytes(t)},
	)
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.CreateQRResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != code.ID || len(out.Files) != 1+len(compositor.Blends()) {
		t.Fatalf("response = %+v", out)
	}

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, out.Files[1].URL, nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("serving %s = %d", out.Files[1].URL, resp.StatusCode)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"no qr source", multipartRequest(t, nil, map[string][]byte{"bgImage": pngBytes(t)}), http.StatusBadRequest},
		{"unknown blend", multipartRequest(t, map[string]string{"text": "x", "blend": "screen"}, nil), http.StatusBadRequest},
		{"bad padding", multipartRequest(t, map[string]string{"text": "x", "padding": "wide"}, nil), http.StatusBadRequest},
		{"not an image", multipartRequest(t, map[string]string{"text": "x"}, map[string][]byte{"bgImage": []byte("plain text")}), http.StatusUnsupportedMediaType},
		{"oversized padding", multipartRequest(t, map[string]string{"text": "x", "padding": "50000"}, map[string][]byte{"bgImage": pngBytes(t)}), http.StatusBadRequest},
		{"oversized background", multipartRequest(t, map[string]string{"text": "x"}, map[string][]byte{"bgImage": []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100000 100000"></svg>`)}), http.StatusBadRequest},
		{"save unknown id", multipartRequest(t, map[string]string{"text": "x", "id": "ghost", "save": "true"}, nil), http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, body := do(t, app, tt.req)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d: %s", tt.name, resp.StatusCode, tt.status, body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/qr/short-url", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	if resp, _ := do(t, app, req); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty short-url text = %d", resp.StatusCode)
	}
}

func TestDeleteRequiresAdminToken(t *testing.T) {
	app := newTestApp(t)
	code := createShortURL(t, app, "example.com")

	resp, _ := do(t, app, httptest.NewRequest(http.MethodDelete, "/api/qr/"+code.ID, nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token = %d", resp.StatusCode)
	}

	token, err := jwt.GenerateToken(testSecret, "ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/qr/"+code.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := do(t, app, req)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), code.ID) ||
		!strings.Contains(string(body), `"success":true`) {
		t.Fatalf("delete = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/qr/"+code.ID, nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("after delete = %d", resp.StatusCode)
	}
}
