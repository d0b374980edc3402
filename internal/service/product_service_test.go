package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/engine"
	"ccdc-products-go/internal/model"
	"ccdc-products-go/internal/repository"
	"ccdc-products-go/internal/storage"
	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
)

type fakeSource struct {
	segments    map[models.PixelCoord][]models.Segment
	predictions map[models.PixelCoord][]models.Prediction
	err         error
	saved       []models.Pixel
}

func (f *fakeSource) GroupedSegments(context.Context, int64, int64) (map[models.PixelCoord][]models.Segment, error) {
	return f.segments, f.err
}

func (f *fakeSource) GroupedPredictions(context.Context, int64, int64) (map[models.PixelCoord][]models.Prediction, error) {
	return f.predictions, f.err
}

func (f *fakeSource) CheckHealth(context.Context) error { return f.err }

// readOnlySource источник без SaveChip
type readOnlySource struct{ *fakeSource }

type ingestingSource struct{ *fakeSource }

func (s ingestingSource) SaveChip(_ context.Context, _, _ int64, pixels []models.Pixel) error {
	s.saved = pixels
	return nil
}

type memGenerations struct {
	mu   sync.Mutex
	byID map[string]model.Generation
	ids  []string
}

func newMemGenerations() *memGenerations {
	return &memGenerations{byID: make(map[string]model.Generation)}
}

func (m *memGenerations) Create(_ context.Context, gen *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[gen.ID] = *gen
	m.ids = append(m.ids, gen.ID)
	return nil
}

func (m *memGenerations) GetByID(_ context.Context, id string) (*model.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gen, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &gen, nil
}

func (m *memGenerations) List(_ context.Context, page, size int) ([]*model.Generation, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Generation
	for i := (page - 1) * size; i < len(m.ids) && len(out) < size; i++ {
		gen := m.byID[m.ids[i]]
		out = append(out, &gen)
	}
	return out, int64(len(m.ids)), nil
}

func (m *memGenerations) Update(_ context.Context, gen *model.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[gen.ID] = *gen
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() *config.ProductConfig {
	cfg := config.DefaultProductConfig()
	cfg.ChipSize = 3
	cfg.RetryBackoff = nil
	cfg.GridOrigin = [2]int64{0, 0}
	return cfg
}

func day(t *testing.T, s string) int {
	t.Helper()
	d, err := models.ParseOrdinal(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func treeSegment(t *testing.T) models.Segment {
	return models.Segment{
		Sday:   day(t, "2000-01-01"),
		Eday:   day(t, "2010-01-01"),
		Bday:   day(t, "2010-01-01"),
		Chprob: 1,
		Curqa:  8,
		NIR:    models.Band{Intercept: 0.3, Coefficients: []float64{0}},
		SWIR1:  models.Band{Intercept: 0.1, Coefficients: []float64{0}},
	}
}

func newTestService(t *testing.T, src Source) (*ProductService, *memGenerations, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gens := newMemGenerations()
	return NewProductService(testConfig(), src, gens, store, testLogger()), gens, store
}

func TestGenerate_Cover(t *testing.T) {
	ctx := context.Background()
	coord := models.PixelCoord{X: 2970, Y: 6030}
	src := &fakeSource{
		segments: map[models.PixelCoord][]models.Segment{coord: {treeSegment(t)}},
		predictions: map[models.PixelCoord][]models.Prediction{coord: {{
			Sday: day(t, "2000-01-01"),
			Pday: day(t, "2005-07-01"),
			Prob: []float64{0, 0, 0.1, 0.8, 0.1, 0, 0, 0},
		}}},
	}
	svc, gens, store := newTestService(t, src)

	resp, err := svc.Generate(ctx, models.GenerateRequest{
		Product: engine.ProductCover,
		Cx:      2970 + 45,
		Cy:      6030 - 45,
		Tile:    "h01v01",
		Dates:   []string{"2005-07-01", "2006-07-01"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Status != model.StatusSucceeded || resp.Pixels != 9 || resp.Values != 18 {
		t.Errorf("response: got %+v", resp)
	}
	if resp.Cx != 2970 || resp.Cy != 6030 {
		t.Errorf("snapped chip: got (%d, %d), want (2970, 6030)", resp.Cx, resp.Cy)
	}
	if len(resp.Paths) != 2 {
		t.Fatalf("paths: got %v, want 2", resp.Paths)
	}

	stored, err := gens.GetByID(ctx, resp.ID)
	if err != nil || stored.Status != model.StatusSucceeded {
		t.Errorf("ledger: got %+v, %v", stored, err)
	}

	var values []models.ProductValue
	if err := store.GetJSON(ctx, resp.Paths[0], &values); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if len(values) != 9 {
		t.Fatalf("values: got %d, want 9", len(values))
	}
	first := values[0]
	if first.Px != 2970 || first.Py != 6030 {
		t.Fatalf("first pixel: got (%d, %d)", first.Px, first.Py)
	}
	if first.Values[engine.KeyLCPri] != 4 || first.Values[engine.KeyLCPriConf] != 80 {
		t.Errorf("first pixel values: got %v", first.Values)
	}
	if values[1].Values[engine.KeyLCPri] != 0 {
		t.Errorf("empty pixel: got %v, want none class", values[1].Values)
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSource{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.GenerateRequest
	}{
		{"unknown product", models.GenerateRequest{Product: "nope", Tile: "h01v01", Dates: []string{"2000-01-01"}}},
		{"bad date", models.GenerateRequest{Product: "change", Tile: "h01v01", Dates: []string{"01/01/2000"}}},
		{"no dates", models.GenerateRequest{Product: "change", Tile: "h01v01"}},
		{"no tile", models.GenerateRequest{Product: "change", Dates: []string{"2000-01-01"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Generate(ctx, tt.req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("got %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestGenerate_SourceFailureRecorded(t *testing.T) {
	failure := errors.New("upstream down")
	svc, gens, _ := newTestService(t, &fakeSource{err: failure})

	resp, err := svc.Generate(context.Background(), models.GenerateRequest{
		Product: engine.ProductChange, Tile: "h01v01", Dates: []string{"2000-01-01"},
	})
	if !errors.Is(err, failure) {
		t.Fatalf("got %v, want source failure", err)
	}
	if resp == nil || resp.Status != model.StatusFailed || resp.Error == "" {
		t.Fatalf("response: got %+v", resp)
	}
	stored, _ := gens.GetByID(context.Background(), resp.ID)
	if stored.Status != model.StatusFailed {
		t.Errorf("ledger status: got %q, want failed", stored.Status)
	}
}

func TestEvaluateFormula(t *testing.T) {
	coord := models.PixelCoord{X: 0, Y: 0}
	src := &fakeSource{segments: map[models.PixelCoord][]models.Segment{coord: {treeSegment(t)}}}
	svc, _, _ := newTestService(t, src)

	values, err := svc.EvaluateFormula(context.Background(), string(engine.CurveFit), 0, 0, "2005-01-01")
	if err != nil {
		t.Fatalf("EvaluateFormula: %v", err)
	}
	if len(values) != 9 {
		t.Fatalf("values: got %d, want 9", len(values))
	}
	if values[0].Val != 8 || values[1].Val != 0 {
		t.Errorf("values: got %v, %v, want 8, 0", values[0].Val, values[1].Val)
	}

	if _, err := svc.EvaluateFormula(context.Background(), "nope", 0, 0, "2005-01-01"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unknown formula: got %v, want ErrInvalidRequest", err)
	}
}

func TestIngest(t *testing.T) {
	src := ingestingSource{&fakeSource{}}
	svc, _, _ := newTestService(t, src)
	ctx := context.Background()

	req := models.IngestRequest{Cx: 0, Cy: 90, Pixels: []models.Pixel{
		{Coord: models.PixelCoord{X: 30, Y: 60}, Segments: []models.Segment{treeSegment(t)}},
	}}
	resp, err := svc.Ingest(ctx, req)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Segments != 1 || len(src.saved) != 1 {
		t.Errorf("ingest: got %+v, saved %d", resp, len(src.saved))
	}

	req.Pixels[0].Coord = models.PixelCoord{X: 15, Y: 60}
	if _, err := svc.Ingest(ctx, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("off-grid pixel: got %v, want ErrInvalidRequest", err)
	}

	req.Cx = 15
	if _, err := svc.Ingest(ctx, req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("misaligned chip: got %v, want ErrInvalidRequest", err)
	}

	ro, _, _ := newTestService(t, readOnlySource{&fakeSource{}})
	if _, err := ro.Ingest(ctx, req); !errors.Is(err, ErrIngestUnsupported) {
		t.Errorf("read-only source: got %v, want ErrIngestUnsupported", err)
	}
}

func TestListAndGetGenerations(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSource{})
	ctx := context.Background()

	var last string
	for i := 0; i < 3; i++ {
		resp, err := svc.Generate(ctx, models.GenerateRequest{Product: engine.ProductChange, Tile: "h01v01", Dates: []string{"2000-01-01"}})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		last = resp.ID
	}

	list, err := svc.ListGenerations(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if list.Total != 3 || len(list.Generations) != 1 {
		t.Errorf("list: got %d of %d, want 1 of 3", len(list.Generations), list.Total)
	}

	gen, err := svc.GetGeneration(ctx, last)
	if err != nil || gen.ID != last {
		t.Errorf("GetGeneration: got %+v, %v", gen, err)
	}
	if _, err := svc.GetGeneration(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}

func TestCheckHealth(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSource{})
	svc.AddHealthCheck("database", func(context.Context) error { return errors.New("no connection") })

	resp, err := svc.CheckHealth(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if resp.Status != "unhealthy" || resp.Checks["source"] != "ok" || resp.Checks["database"] != "no connection" {
		t.Errorf("health: got %+v", resp)
	}
}
