package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ccdc-products-go/internal/storage"
	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// PersistenceError запись документа не удалась после всех повторов
type PersistenceError struct {
	Product  string
	Date     string
	Path     string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s for %s to %s failed after %d attempts: %v",
		e.Product, e.Date, e.Path, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persister записывает по одному документу на дату с повторами
type Persister struct {
	store       storage.Store
	backoff     []time.Duration
	concurrency int
	logger      *logrus.Logger
}

// NewPersister создает Persister. Число попыток равно len(backoff)+1.
func NewPersister(store storage.Store, backoff []time.Duration, concurrency int, logger *logrus.Logger) *Persister {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Persister{
		store:       store,
		backoff:     backoff,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Persist записывает группы агрегации и возвращает пути документов,
// отсортированные по дате
func (p *Persister) Persist(ctx context.Context, product string, chip models.Chip, agg *Aggregation) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var mu sync.Mutex
	paths := make(map[string]string, len(agg.Groups))

	for _, date := range agg.Dates() {
		values := agg.Groups[date]
		path := storage.ProductPath(product, chip, date)

		g.Go(func() error {
			if err := p.putWithRetry(ctx, product, date, path, values); err != nil {
				return err
			}
			mu.Lock()
			paths[date] = path
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, path := range paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// putWithRetry выполняет запись, после каждой неудачной попытки ждет
// очередную задержку из backoff
func (p *Persister) putWithRetry(ctx context.Context, product, date, path string, values []models.ProductValue) error {
	attempts := 0
	for {
		attempts++
		err := p.store.PutJSON(ctx, path, values)
		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"product":  product,
				"date":     date,
				"path":     path,
				"attempts": attempts,
			}).Debug("Документ продукта записан")
			return nil
		}

		if attempts > len(p.backoff) {
			return &PersistenceError{Product: product, Date: date, Path: path, Attempts: attempts, Err: err}
		}

		delay := p.backoff[attempts-1]
		p.logger.WithFields(logrus.Fields{
			"product": product,
			"date":    date,
			"path":    path,
			"attempt": attempts,
			"delay":   delay.String(),
		}).Warnf("Ошибка записи документа, повтор: %v", err)

		if err := sleep(ctx, delay); err != nil {
			return &PersistenceError{Product: product, Date: date, Path: path, Attempts: attempts, Err: err}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
