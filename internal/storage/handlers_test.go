package storage

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStorageServeObject(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "uploads", "gpx"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "uploads", "gpx", "h.gpx"), []byte("<gpx/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app.Group("/storage"), NewService(nil, root, "http://localhost/storage"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/storage/uploads/gpx/h.gpx", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("serve status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<gpx/>" {
		t.Fatalf("unexpected body %q", body)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/storage/uploads/gpx/missing.gpx", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
}
