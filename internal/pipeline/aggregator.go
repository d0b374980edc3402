package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/engine"
	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
)

// Aggregation результат группировки значений продукта по датам
type Aggregation struct {
	// Groups значения продукта по дате запроса (YYYY-MM-DD)
	Groups map[string][]models.ProductValue
	// Failures ошибки отдельных пикселей при политике record
	Failures []*ItemError
}

// Count возвращает общее число значений во всех группах
func (a *Aggregation) Count() int {
	n := 0
	for _, g := range a.Groups {
		n += len(g)
	}
	return n
}

// Dates возвращает даты групп по возрастанию
func (a *Aggregation) Dates() []string {
	dates := make([]string, 0, len(a.Groups))
	for d := range a.Groups {
		dates = append(dates, d)
	}
	slices.Sort(dates)
	return dates
}

// Aggregator группирует результаты воркеров по датам
type Aggregator struct {
	policy  string
	product engine.Product
	logger  *logrus.Logger
}

// NewAggregator создает агрегатор с политикой обработки ошибок policy
func NewAggregator(policy string, product engine.Product, logger *logrus.Logger) *Aggregator {
	return &Aggregator{policy: policy, product: product, logger: logger}
}

// Aggregate группирует результаты по дате. Внутри группы значения
// упорядочены по строкам растра: py по убыванию, затем px по возрастанию.
// При политике abort первая ошибка прерывает агрегацию, при политике record
// вместо значений подставляются значения по умолчанию, а ошибка сохраняется.
func (a *Aggregator) Aggregate(results []Result) (*Aggregation, error) {
	agg := &Aggregation{Groups: make(map[string][]models.ProductValue)}

	for _, r := range results {
		value := r.Value
		if r.Err != nil {
			itemErr := asItemError(a.product.Name(), r)
			if a.policy != config.FailurePolicyRecord {
				return nil, itemErr
			}
			agg.Failures = append(agg.Failures, itemErr)

			date, err := models.ParseOrdinal(value.Date)
			if err != nil {
				return nil, fmt.Errorf("failed to parse result date: %w", err)
			}
			value.Values = a.product.Fallback(date)
		}
		agg.Groups[value.Date] = append(agg.Groups[value.Date], value)
	}

	for _, group := range agg.Groups {
		slices.SortFunc(group, func(x, y models.ProductValue) int {
			if c := cmp.Compare(y.Py, x.Py); c != 0 {
				return c
			}
			return cmp.Compare(x.Px, y.Px)
		})
	}

	if len(agg.Failures) > 0 {
		a.logger.WithFields(logrus.Fields{
			"product":  a.product.Name(),
			"failures": len(agg.Failures),
			"first":    agg.Failures[0].Error(),
		}).Warn("Часть пикселей не вычислена, записаны значения по умолчанию")
	}

	return agg, nil
}

func asItemError(product string, r Result) *ItemError {
	var itemErr *ItemError
	if errors.As(r.Err, &itemErr) {
		return itemErr
	}
	return &ItemError{
		Product: product,
		Date:    r.Value.Date,
		Coord:   models.PixelCoord{X: r.Value.Px, Y: r.Value.Py},
		Err:     r.Err,
	}
}
