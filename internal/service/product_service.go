package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/engine"
	"ccdc-products-go/internal/geo"
	"ccdc-products-go/internal/model"
	"ccdc-products-go/internal/pipeline"
	"ccdc-products-go/internal/repository"
	"ccdc-products-go/internal/storage"
	"ccdc-products-go/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidRequest некорректные параметры запроса
	ErrInvalidRequest = errors.New("invalid request")
	// ErrIngestUnsupported источник не поддерживает загрузку сегментов
	ErrIngestUnsupported = errors.New("source does not accept segments")
)

// Source источник сегментов и предсказаний чипа
type Source interface {
	GroupedSegments(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Segment, error)
	GroupedPredictions(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Prediction, error)
	CheckHealth(ctx context.Context) error
}

// Ingester источник, в который можно загрузить сегменты чипа
type Ingester interface {
	SaveChip(ctx context.Context, cx, cy int64, pixels []models.Pixel) error
}

// HealthCheck проверка одной зависимости сервиса
type HealthCheck func(ctx context.Context) error

// ProductService сервис генерации продуктов
type ProductService struct {
	cfg         *config.ProductConfig
	source      Source
	generations repository.GenerationRepository
	pipeline    *pipeline.Pipeline
	changes     *engine.ChangeEngine
	grid        *geo.Grid
	checks      map[string]HealthCheck
	logger      *logrus.Logger
}

// NewProductService создает новый сервис генерации продуктов.
// generations может быть nil, тогда журнал генераций не ведется.
func NewProductService(cfg *config.ProductConfig, source Source, generations repository.GenerationRepository, store storage.Store, logger *logrus.Logger) *ProductService {
	return &ProductService{
		cfg:         cfg,
		source:      source,
		generations: generations,
		pipeline:    pipeline.New(cfg, store, logger),
		changes:     engine.NewChangeEngine(cfg),
		grid:        geo.NewGrid(cfg.GridOrigin[0], cfg.GridOrigin[1], cfg.ChipSize, cfg.PixelSize),
		checks:      map[string]HealthCheck{"source": source.CheckHealth},
		logger:      logger,
	}
}

// AddHealthCheck регистрирует дополнительную проверку зависимости
func (s *ProductService) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Generate вычисляет продукт для чипа на все даты запроса и записывает документы.
// Если журнал ведется, ответ возвращается и при ошибке генерации.
func (s *ProductService) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerationResponse, error) {
	product, err := engine.NewProduct(req.Product, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dates, err := parseDates(req.Dates)
	if err != nil {
		return nil, err
	}
	if req.Tile == "" {
		return nil, fmt.Errorf("%w: tile is required", ErrInvalidRequest)
	}
	cx, cy := s.grid.SnapChip(req.Cx, req.Cy)

	gen := &model.Generation{
		ID:        uuid.New().String(),
		Product:   product.Name(),
		Tile:      req.Tile,
		Cx:        cx,
		Cy:        cy,
		Dates:     req.Dates,
		Status:    model.StatusRunning,
		StartedAt: time.Now(),
	}
	log := s.logger.WithFields(logrus.Fields{
		"generation": gen.ID,
		"product":    gen.Product,
		"cx":         gen.Cx,
		"cy":         gen.Cy,
	})

	if s.generations != nil {
		if err := s.generations.Create(ctx, gen); err != nil {
			log.Errorf("Ошибка сохранения генерации в БД: %v", err)
			return nil, fmt.Errorf("failed to record generation: %w", err)
		}
	}

	if cx != req.Cx || cy != req.Cy {
		log.Infof("Точка (%d, %d) приведена к углу чипа", req.Cx, req.Cy)
	}

	chip := models.Chip{Cx: cx, Cy: cy, Tile: req.Tile}
	outcome, runErr := s.run(ctx, product, chip, dates)

	finished := time.Now()
	gen.FinishedAt = &finished
	if runErr != nil {
		log.Errorf("Генерация завершилась ошибкой: %v", runErr)
		gen.Status = model.StatusFailed
		gen.Error = runErr.Error()
	} else {
		gen.Status = model.StatusSucceeded
		gen.Pixels = outcome.Pixels
		gen.Values = outcome.Values
		gen.Failures = len(outcome.Failures)
		gen.Paths = outcome.Paths
	}

	if s.generations != nil {
		// Контекст запроса мог быть отменен, статус все равно фиксируем
		if err := s.generations.Update(context.WithoutCancel(ctx), gen); err != nil {
			log.Errorf("Ошибка обновления генерации в БД: %v", err)
			if runErr == nil {
				return nil, fmt.Errorf("failed to record generation: %w", err)
			}
		}
	}

	resp := generationToResponse(gen)
	if runErr != nil {
		return resp, runErr
	}
	log.Infof("Генерация %s завершена: %d документов", gen.ID, len(gen.Paths))
	return resp, nil
}

func (s *ProductService) run(ctx context.Context, product engine.Product, chip models.Chip, dates []int) (*pipeline.Outcome, error) {
	pixels, err := s.loadChip(ctx, chip.Cx, chip.Cy)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, product, chip, dates, pixels)
}

// EvaluateFormula вычисляет одну формулу изменений для всех пикселей чипа
func (s *ProductService) EvaluateFormula(ctx context.Context, name string, cx, cy int64, date string) ([]models.FormulaValue, error) {
	f, err := engine.ParseFormula(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	day, err := models.ParseOrdinal(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	cx, cy = s.grid.SnapChip(cx, cy)
	pixels, err := s.loadChip(ctx, cx, cy)
	if err != nil {
		return nil, err
	}

	values, err := s.changes.EvaluateFormula(f, pixels, day)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", f, err)
	}
	return values, nil
}

// loadChip загружает данные источника и раскладывает их по сетке пикселей чипа.
// Пиксели без данных получают пустые списки сегментов и предсказаний.
func (s *ProductService) loadChip(ctx context.Context, cx, cy int64) ([]models.Pixel, error) {
	segments, err := s.source.GroupedSegments(ctx, cx, cy)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}
	predictions, err := s.source.GroupedPredictions(ctx, cx, cy)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	coords := s.grid.Pixels(cx, cy)
	pixels := make([]models.Pixel, len(coords))
	matched := 0
	for i, coord := range coords {
		segs, ok := segments[coord]
		if ok {
			matched++
		}
		pixels[i] = models.Pixel{Coord: coord, Segments: segs, Predictions: predictions[coord]}
	}

	if outside := len(segments) - matched; outside > 0 {
		s.logger.Warnf("Чип (%d, %d): %d пикселей источника вне сетки чипа", cx, cy, outside)
	}
	s.logger.Debugf("Чип (%d, %d): %d пикселей, %d с сегментами", cx, cy, len(pixels), matched)
	return pixels, nil
}

// Ingest сохраняет сегменты и предсказания чипа в источник
func (s *ProductService) Ingest(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	ingester, ok := s.source.(Ingester)
	if !ok {
		return nil, ErrIngestUnsupported
	}

	if cx, cy := s.grid.SnapChip(req.Cx, req.Cy); cx != req.Cx || cy != req.Cy {
		return nil, fmt.Errorf("%w: (%d, %d) is not a chip corner, nearest is (%d, %d)",
			ErrInvalidRequest, req.Cx, req.Cy, cx, cy)
	}

	resp := &models.IngestResponse{Cx: req.Cx, Cy: req.Cy, Pixels: len(req.Pixels)}
	for _, p := range req.Pixels {
		if !s.grid.Contains(req.Cx, req.Cy, p.Coord) {
			return nil, fmt.Errorf("%w: pixel (%d, %d) is not on the grid of chip (%d, %d)",
				ErrInvalidRequest, p.Coord.X, p.Coord.Y, req.Cx, req.Cy)
		}
		resp.Segments += len(p.Segments)
		resp.Predictions += len(p.Predictions)
	}

	if err := ingester.SaveChip(ctx, req.Cx, req.Cy, req.Pixels); err != nil {
		return nil, fmt.Errorf("failed to save chip: %w", err)
	}

	s.logger.Infof("Чип (%d, %d) загружен: %d пикселей, %d сегментов", req.Cx, req.Cy, resp.Pixels, resp.Segments)
	return resp, nil
}

// GetGeneration получает генерацию по ID
func (s *ProductService) GetGeneration(ctx context.Context, id string) (*models.GenerationResponse, error) {
	if s.generations == nil {
		return nil, repository.ErrNotFound
	}
	gen, err := s.generations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return generationToResponse(gen), nil
}

// ListGenerations получает список генераций с пагинацией
func (s *ProductService) ListGenerations(ctx context.Context, page, size int) (*models.ListGenerationsResponse, error) {
	resp := &models.ListGenerationsResponse{Generations: []models.GenerationResponse{}, Page: page, Size: size}
	if s.generations == nil {
		return resp, nil
	}

	gens, total, err := s.generations.List(ctx, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	for _, gen := range gens {
		resp.Generations = append(resp.Generations, *generationToResponse(gen))
	}
	resp.Total = total
	return resp, nil
}

// CheckHealth проверяет зависимости сервиса
func (s *ProductService) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	resp := &models.HealthResponse{
		Status:   "healthy",
		Checks:   make(map[string]string, len(s.checks)),
		Products: []string{engine.ProductChange, engine.ProductCover},
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed error
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			if failed == nil {
				failed = fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		resp.Checks[name] = "ok"
	}
	return resp, failed
}

func parseDates(values []string) ([]int, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one date is required", ErrInvalidRequest)
	}
	seen := make(map[int]bool, len(values))
	dates := make([]int, 0, len(values))
	for _, v := range values {
		day, err := models.ParseOrdinal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		dates = append(dates, day)
	}
	return dates, nil
}

func generationToResponse(gen *model.Generation) *models.GenerationResponse {
	return &models.GenerationResponse{
		ID:         gen.ID,
		Product:    gen.Product,
		Tile:       gen.Tile,
		Cx:         gen.Cx,
		Cy:         gen.Cy,
		Dates:      gen.Dates,
		Status:     gen.Status,
		Pixels:     gen.Pixels,
		Values:     gen.Values,
		Failures:   gen.Failures,
		Error:      gen.Error,
		Paths:      gen.Paths,
		StartedAt:  gen.StartedAt,
		FinishedAt: gen.FinishedAt,
	}
}
