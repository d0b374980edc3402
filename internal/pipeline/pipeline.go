package pipeline

import (
	"context"
	"fmt"
	"time"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/engine"
	"ccdc-products-go/internal/storage"
	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Outcome итог одного запуска конвейера
type Outcome struct {
	Paths    []string
	Pixels   int
	Values   int
	Failures []*ItemError
	Elapsed  time.Duration
}

// Pipeline связывает пул воркеров, агрегатор и Persister
type Pipeline struct {
	cfg       *config.ProductConfig
	pool      *Pool
	persister *Persister
	logger    *logrus.Logger
}

// New создает конвейер с параметрами из продуктовой конфигурации
func New(cfg *config.ProductConfig, store storage.Store, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		pool:      NewPool(cfg.Workers, logger),
		persister: NewPersister(store, cfg.RetryBackoff, cfg.PersistConcurrency, logger),
		logger:    logger,
	}
}

// Run вычисляет продукт для всех дат и пикселей чипа и записывает
// по одному документу на дату
func (p *Pipeline) Run(ctx context.Context, product engine.Product, chip models.Chip, dates []int, pixels []models.Pixel) (*Outcome, error) {
	start := time.Now()
	log := p.logger.WithFields(logrus.Fields{
		"product": product.Name(),
		"cx":      chip.Cx,
		"cy":      chip.Cy,
		"tile":    chip.Tile,
	})
	log.Infof("Запуск генерации: %d дат, %d пикселей", len(dates), len(pixels))

	results, err := p.pool.Run(ctx, product, dates, pixels)
	if err != nil {
		return nil, err
	}

	agg, err := NewAggregator(p.cfg.FailurePolicy, product, p.logger).Aggregate(results)
	if err != nil {
		return nil, fmt.Errorf("failed to compute %s: %w", product.Name(), err)
	}

	paths, err := p.persister.Persist(ctx, product.Name(), chip, agg)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Paths:    paths,
		Pixels:   len(pixels),
		Values:   agg.Count(),
		Failures: agg.Failures,
		Elapsed:  time.Since(start),
	}
	log.WithField("elapsed", out.Elapsed.String()).
		Infof("Генерация завершена: %d значений, %d документов", out.Values, len(out.Paths))
	return out, nil
}
