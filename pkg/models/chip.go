package models

// ChipPixels перечисляет координаты всех пикселей чипа (cx, cy).
// Пиксель (i, j) имеет координаты cx + i*step, cy - j*step.
func ChipPixels(cx, cy int64, size int, step int64) []PixelCoord {
	if size <= 0 {
		return []PixelCoord{}
	}

	coords := make([]PixelCoord, 0, size*size)
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			coords = append(coords, PixelCoord{
				X: cx + int64(i)*step,
				Y: cy - int64(j)*step,
			})
		}
	}
	return coords
}

// Chip идентифицирует чип и тайл, которому он принадлежит
type Chip struct {
	Cx   int64  `json:"cx"`
	Cy   int64  `json:"cy"`
	Tile string `json:"tile"`
}
