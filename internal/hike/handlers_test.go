package hike

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-cartorando/internal/mapview"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func newApp(mock pgxmock.PgxPoolIface) *fiber.App {
	app := fiber.New()
	var repo *Repository
	if mock != nil {
		repo = NewRepository(mock)
	}
	RegisterRoutes(app.Group("/hikes"), repo, mapview.Config{}, func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	})
	return app
}

func hikeRow(polyline string) *pgxmock.Rows {
	return pgxmock.NewRows(hikeColumns).
		AddRow("hike-1", "user-1", "Lac Blanc", "desc", "Haute-Savoie", "easy", 9.5, 1000.0,
			[]byte(polyline), (*string)(nil), time.Now(), time.Now())
}

func TestHikeHandlersCreate(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO hikes`).
		WithArgs(pgxmock.AnyArg(), "user-1", "Lac Blanc", "", "", "moderate", 0.0, 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(time.Now(), time.Now()))

	app := newApp(mock)
	body, _ := json.Marshal(map[string]any{"title": "Lac Blanc", "difficulty": "moderate"})
	req := httptest.NewRequest(http.MethodPost, "/hikes/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %v %v", err, resp.StatusCode)
	}
}

func TestHikeHandlersCreateValidation(t *testing.T) {
	app := newApp(nil)

	body, _ := json.Marshal(map[string]any{"title": "ab", "difficulty": "extreme"})
	req := httptest.NewRequest(http.MethodPost, "/hikes/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "difficulty") || !strings.Contains(string(raw), "title") {
		t.Fatalf("expected field errors, got %s", raw)
	}

	req = httptest.NewRequest(http.MethodPost, "/hikes/", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed body")
	}
}

func TestHikeHandlersGetAndMap(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectHike).WithArgs("hike-1").WillReturnRows(hikeRow(`[[45.83,6.86],[45.84,6.87]]`))
	mock.ExpectQuery(selectHike).WithArgs("hike-1").WillReturnRows(hikeRow(`[[45.83,6.86],[45.84,6.87]]`))

	app := newApp(mock)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/hikes/hike-1", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get status: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/hikes/hike-1/map", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("map status: %v", err)
	}
	var out struct {
		Map struct {
			Center   []float64 `json:"center"`
			Editable bool      `json:"editable"`
			Path     struct {
				Features []json.RawMessage `json:"features"`
			} `json:"path"`
		} `json:"map"`
		LengthKm float64 `json:"length_km"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode map: %v", err)
	}
	if out.Map.Editable || len(out.Map.Path.Features) != 1 || out.LengthKm <= 0 {
		t.Fatalf("unexpected map view: %+v", out)
	}
	if out.Map.Center[0] != 45.83 || out.Map.Center[1] != 6.86 {
		t.Fatalf("expected map centered on first point")
	}
}

func TestHikeHandlersNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectHike).WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(selectHike).WithArgs("broken").WillReturnError(errHike)

	app := newApp(mock)
	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/hikes/missing", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found")
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/hikes/broken", nil))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected server error")
	}
}

func TestHikeHandlersExportGPX(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(selectHike).WithArgs("hike-1").WillReturnRows(hikeRow(`[[45.83,6.86],[45.84,6.87]]`))
	mock.ExpectQuery(selectHike).WithArgs("hike-1").WillReturnRows(hikeRow(`[]`))

	app := newApp(mock)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/hikes/hike-1/track.gpx", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("export status: %v", err)
	}
	if resp.Header.Get("Content-Type") != "application/gpx+xml" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "trkpt") {
		t.Fatalf("expected track points in export")
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/hikes/hike-1/track.gpx", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found for empty track")
	}
}
