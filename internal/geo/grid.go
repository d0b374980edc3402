package geo

import (
	"ccdc-products-go/pkg/models"
)

// Grid сетка чипов в проекции Albers. Чип покрывает chipSize x chipSize
// пикселей, начало сетки в верхнем левом углу.
type Grid struct {
	originX   int64
	originY   int64
	chipSize  int
	pixelSize int64
}

// NewGrid создает сетку с началом (originX, originY)
func NewGrid(originX, originY int64, chipSize int, pixelSize int64) *Grid {
	return &Grid{
		originX:   originX,
		originY:   originY,
		chipSize:  chipSize,
		pixelSize: pixelSize,
	}
}

// ChipExtent возвращает длину стороны чипа в метрах
func (g *Grid) ChipExtent() int64 {
	return int64(g.chipSize) * g.pixelSize
}

// SnapChip возвращает верхний левый угол чипа, содержащего точку (x, y)
func (g *Grid) SnapChip(x, y int64) (cx, cy int64) {
	extent := g.ChipExtent()
	cx = g.originX + floorDiv(x-g.originX, extent)*extent
	cy = g.originY - floorDiv(g.originY-y, extent)*extent
	return cx, cy
}

// SnapPixel возвращает верхний левый угол пикселя, содержащего точку (x, y)
func (g *Grid) SnapPixel(x, y int64) models.PixelCoord {
	return models.PixelCoord{
		X: g.originX + floorDiv(x-g.originX, g.pixelSize)*g.pixelSize,
		Y: g.originY - floorDiv(g.originY-y, g.pixelSize)*g.pixelSize,
	}
}

// Contains сообщает, лежит ли пиксель coord на сетке чипа (cx, cy)
func (g *Grid) Contains(cx, cy int64, coord models.PixelCoord) bool {
	extent := g.ChipExtent()
	dx, dy := coord.X-cx, cy-coord.Y
	return dx >= 0 && dx < extent && dy >= 0 && dy < extent &&
		dx%g.pixelSize == 0 && dy%g.pixelSize == 0
}

// Pixels перечисляет пиксели чипа (cx, cy) по строкам сверху вниз
func (g *Grid) Pixels(cx, cy int64) []models.PixelCoord {
	return models.ChipPixels(cx, cy, g.chipSize, g.pixelSize)
}

// floorDiv целочисленное деление с округлением вниз
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
