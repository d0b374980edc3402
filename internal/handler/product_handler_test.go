package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/service"
	"ccdc-products-go/internal/storage"
	"ccdc-products-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type emptySource struct{ healthErr error }

func (emptySource) GroupedSegments(context.Context, int64, int64) (map[models.PixelCoord][]models.Segment, error) {
	return nil, nil
}

func (emptySource) GroupedPredictions(context.Context, int64, int64) (map[models.PixelCoord][]models.Prediction, error) {
	return nil, nil
}

func (s emptySource) CheckHealth(context.Context) error { return s.healthErr }

func newTestRouter(t *testing.T, src service.Source) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := config.DefaultProductConfig()
	cfg.ChipSize = 2
	cfg.RetryBackoff = nil
	cfg.GridOrigin = [2]int64{0, 0}

	router := gin.New()
	NewProductHandler(service.NewProductService(cfg, src, nil, store, log), log).RegisterRoutes(router)
	return router
}

func do(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateProduct(t *testing.T) {
	router := newTestRouter(t, emptySource{})

	w := do(router, http.MethodPost, "/api/v1/products", models.GenerateRequest{
		Product: "change", Cx: 0, Cy: 0, Tile: "h01v01", Dates: []string{"2000-01-01"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d, body %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp models.GenerationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "succeeded" || resp.Values != 4 || len(resp.Paths) != 1 {
		t.Errorf("response: got %+v", resp)
	}
}

func TestGenerateProduct_BadRequests(t *testing.T) {
	router := newTestRouter(t, emptySource{})

	tests := []struct {
		name string
		body any
	}{
		{"missing dates", map[string]any{"product": "change", "tile": "h01v01"}},
		{"unknown product", models.GenerateRequest{Product: "nope", Tile: "h01v01", Dates: []string{"2000-01-01"}}},
		{"bad date", models.GenerateRequest{Product: "cover", Tile: "h01v01", Dates: []string{"2000-13-01"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(router, http.MethodPost, "/api/v1/products", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestEvaluateFormula(t *testing.T) {
	router := newTestRouter(t, emptySource{})

	w := do(router, http.MethodGet, "/api/v1/formulas/length-of-segment?cx=0&cy=0&date=1983-01-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var values []models.FormulaValue
	if err := json.Unmarshal(w.Body.Bytes(), &values); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(values) != 4 || values[0].Val != 365 {
		t.Errorf("values: got %+v", values)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"pixelx"`)) {
		t.Errorf("body lacks pixelx field: %s", w.Body.String())
	}

	for _, path := range []string{
		"/api/v1/formulas/length-of-segment?cx=0&cy=0",
		"/api/v1/formulas/length-of-segment?cx=a&cy=0&date=1983-01-01",
		"/api/v1/formulas/nope?cx=0&cy=0&date=1983-01-01",
	} {
		if w := do(router, http.MethodGet, path, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want %d", path, w.Code, http.StatusBadRequest)
		}
	}
}

func TestGenerations_WithoutLedger(t *testing.T) {
	router := newTestRouter(t, emptySource{})

	if w := do(router, http.MethodGet, "/api/v1/products/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("get: got %d, want %d", w.Code, http.StatusNotFound)
	}
	w := do(router, http.MethodGet, "/api/v1/products?page=0&size=1000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	var list models.ListGenerationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Page != 1 || list.Size != 10 {
		t.Errorf("pagination defaults: got page %d size %d", list.Page, list.Size)
	}
}

func TestIngestSegments_ReadOnlySource(t *testing.T) {
	router := newTestRouter(t, emptySource{})
	w := do(router, http.MethodPost, "/api/v1/segments", models.IngestRequest{Pixels: []models.Pixel{}})
	if w.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCheckHealth(t *testing.T) {
	if w := do(newTestRouter(t, emptySource{}), http.MethodGet, "/api/v1/health", nil); w.Code != http.StatusOK {
		t.Errorf("healthy: got %d, want %d", w.Code, http.StatusOK)
	}
	down := emptySource{healthErr: errors.New("down")}
	if w := do(newTestRouter(t, down), http.MethodGet, "/api/v1/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: got %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
