package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"ccdc-products-go/pkg/models"
)

// ErrNotFound возвращается, если объект отсутствует в хранилище
var ErrNotFound = errors.New("object not found")

// Store хранилище JSON-документов продуктов
type Store interface {
	PutJSON(ctx context.Context, key string, v any) error
	GetJSON(ctx context.Context, key string, v any) error
}

// ProductPath возвращает ключ документа продукта:
// json/{tile}/{cx}/{cy}/{product}/{product}-{cx}-{cy}-{date}.json
func ProductPath(product string, chip models.Chip, date string) string {
	cx := strconv.FormatInt(chip.Cx, 10)
	cy := strconv.FormatInt(chip.Cy, 10)
	name := fmt.Sprintf("%s-%s-%s-%s.json", product, cx, cy, date)
	return path.Join("json", chip.Tile, cx, cy, product, name)
}
