package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"ccdc-products-go/internal/engine"
	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// WorkItem одна единица работы: дата запроса и пиксель
type WorkItem struct {
	Date  int
	Pixel models.Pixel
}

// Result результат обработки одной единицы работы. Value всегда содержит
// координаты пикселя и дату, даже если Err не nil.
type Result struct {
	Value models.ProductValue
	Err   error
}

// ItemError ошибка вычисления продукта для одного пикселя и даты
type ItemError struct {
	Product string
	Date    string
	Coord   models.PixelCoord
	Err     error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("product %s, pixel (%d, %d), date %s: %v",
		e.Product, e.Coord.X, e.Coord.Y, e.Date, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Pool фиксированный пул воркеров, вычисляющих продукт
type Pool struct {
	workers int
	logger  *logrus.Logger
}

// NewPool создает пул из workers воркеров
func NewPool(workers int, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers, logger: logger}
}

// Run вычисляет продукт для всех пар (дата, пиксель) и возвращает ровно
// len(dates)*len(pixels) результатов в порядке завершения
func (p *Pool) Run(ctx context.Context, product engine.Product, dates []int, pixels []models.Pixel) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total := len(dates) * len(pixels)
	if total == 0 {
		return []Result{}, nil
	}

	work := make(chan WorkItem, p.workers)
	results := make(chan Result, total)

	go Dispatch(ctx, dates, pixels, work)

	for i := 0; i < p.workers; i++ {
		go worker(product, work, results)
	}

	p.logger.WithFields(logrus.Fields{
		"product": product.Name(),
		"items":   total,
		"workers": p.workers,
	}).Debug("Задания отправлены в пул воркеров")

	collected := make([]Result, 0, total)
	for len(collected) < total {
		select {
		case r := <-results:
			collected = append(collected, r)
		case <-ctx.Done():
			return nil, fmt.Errorf("pool interrupted after %d of %d results: %w", len(collected), total, ctx.Err())
		}
	}

	return collected, nil
}

// Dispatch перечисляет декартово произведение дат и пикселей и закрывает
// канал work по окончании или при отмене ctx
func Dispatch(ctx context.Context, dates []int, pixels []models.Pixel, work chan<- WorkItem) {
	defer close(work)
	for _, date := range dates {
		for _, pixel := range pixels {
			select {
			case work <- WorkItem{Date: date, Pixel: pixel}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// worker обрабатывает задания до закрытия канала in.
// На каждое задание отправляется ровно один результат.
func worker(product engine.Product, in <-chan WorkItem, out chan<- Result) {
	for item := range in {
		out <- process(product, item)
	}
}

// process вычисляет продукт для одного задания; паника превращается в ошибку
func process(product engine.Product, item WorkItem) (r Result) {
	r.Value = models.ProductValue{
		Px:   item.Pixel.Coord.X,
		Py:   item.Pixel.Coord.Y,
		Date: models.FormatOrdinal(item.Date),
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.Err = &ItemError{
				Product: product.Name(),
				Date:    r.Value.Date,
				Coord:   item.Pixel.Coord,
				Err:     fmt.Errorf("panic: %v\n%s", rec, debug.Stack()),
			}
		}
	}()

	values, err := product.Compute(item.Pixel, item.Date)
	if err != nil {
		r.Err = &ItemError{
			Product: product.Name(),
			Date:    r.Value.Date,
			Coord:   item.Pixel.Coord,
			Err:     err,
		}
		return r
	}
	r.Value.Values = values
	return r
}
