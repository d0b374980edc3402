package engine

import (
	"fmt"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/pkg/models"
)

// Имена продуктов
const (
	ProductChange = "change"
	ProductCover  = "cover"
)

// Product вычисляет именованные значения для одного пикселя и даты.
// Реализации не имеют изменяемого состояния и безопасны для параллельного вызова.
type Product interface {
	Name() string
	Compute(pixel models.Pixel, date int) (map[string]float64, error)
	Fallback(date int) map[string]float64
}

type changeProduct struct{ *ChangeEngine }

func (changeProduct) Name() string { return ProductChange }

type coverProduct struct{ *CoverEngine }

func (coverProduct) Name() string { return ProductCover }

// NewProduct возвращает продукт по имени
func NewProduct(name string, cfg *config.ProductConfig) (Product, error) {
	switch name {
	case ProductChange:
		return changeProduct{NewChangeEngine(cfg)}, nil
	case ProductCover:
		return coverProduct{NewCoverEngine(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown product %q: want %s|%s", name, ProductChange, ProductCover)
	}
}
