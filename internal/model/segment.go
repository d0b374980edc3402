package model

import (
	"time"

	"ccdc-products-go/pkg/models"
)

// SegmentRecord сегмент модели CCDC одного пикселя в базе данных
type SegmentRecord struct {
	ID   uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	Cx   int64 `gorm:"not null;index:idx_segment_chip" json:"cx"`
	Cy   int64 `gorm:"not null;index:idx_segment_chip" json:"cy"`
	Px   int64 `gorm:"not null" json:"px"`
	Py   int64 `gorm:"not null" json:"py"`
	Sday int   `gorm:"not null" json:"sday"`
	Eday int   `gorm:"not null" json:"eday"`
	Bday int   `gorm:"not null" json:"bday"`

	Chprob float64 `gorm:"not null" json:"chprob"`
	Curqa  float64 `gorm:"not null" json:"curqa"`

	// Коэффициенты спектральных каналов хранятся как JSON
	Blue    models.Band `gorm:"serializer:json" json:"blue"`
	Green   models.Band `gorm:"serializer:json" json:"green"`
	Red     models.Band `gorm:"serializer:json" json:"red"`
	NIR     models.Band `gorm:"serializer:json" json:"nir"`
	SWIR1   models.Band `gorm:"serializer:json" json:"swir1"`
	SWIR2   models.Band `gorm:"serializer:json" json:"swir2"`
	Thermal models.Band `gorm:"serializer:json" json:"thermal"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PredictionRecord вероятности классов для сегмента пикселя
type PredictionRecord struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Cx   int64     `gorm:"not null;index:idx_prediction_chip" json:"cx"`
	Cy   int64     `gorm:"not null;index:idx_prediction_chip" json:"cy"`
	Px   int64     `gorm:"not null" json:"px"`
	Py   int64     `gorm:"not null" json:"py"`
	Sday int       `gorm:"not null" json:"sday"`
	Pday int       `gorm:"not null" json:"pday"`
	Prob []float64 `gorm:"serializer:json" json:"prob"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName указывает имя таблицы для SegmentRecord
func (SegmentRecord) TableName() string {
	return "segments"
}

// TableName указывает имя таблицы для PredictionRecord
func (PredictionRecord) TableName() string {
	return "predictions"
}

// NewSegmentRecord создает запись сегмента пикселя coord в чипе (cx, cy)
func NewSegmentRecord(cx, cy int64, coord models.PixelCoord, s models.Segment) SegmentRecord {
	return SegmentRecord{
		Cx:      cx,
		Cy:      cy,
		Px:      coord.X,
		Py:      coord.Y,
		Sday:    s.Sday,
		Eday:    s.Eday,
		Bday:    s.Bday,
		Chprob:  s.Chprob,
		Curqa:   s.Curqa,
		Blue:    s.Blue,
		Green:   s.Green,
		Red:     s.Red,
		NIR:     s.NIR,
		SWIR1:   s.SWIR1,
		SWIR2:   s.SWIR2,
		Thermal: s.Thermal,
	}
}

// Segment преобразует запись в сегмент движка
func (r SegmentRecord) Segment() models.Segment {
	return models.Segment{
		Sday:    r.Sday,
		Eday:    r.Eday,
		Bday:    r.Bday,
		Chprob:  r.Chprob,
		Curqa:   r.Curqa,
		Blue:    r.Blue,
		Green:   r.Green,
		Red:     r.Red,
		NIR:     r.NIR,
		SWIR1:   r.SWIR1,
		SWIR2:   r.SWIR2,
		Thermal: r.Thermal,
	}
}

// Coord возвращает координаты пикселя записи
func (r SegmentRecord) Coord() models.PixelCoord {
	return models.PixelCoord{X: r.Px, Y: r.Py}
}

// NewPredictionRecord создает запись предсказания пикселя coord в чипе (cx, cy)
func NewPredictionRecord(cx, cy int64, coord models.PixelCoord, p models.Prediction) PredictionRecord {
	return PredictionRecord{
		Cx:   cx,
		Cy:   cy,
		Px:   coord.X,
		Py:   coord.Y,
		Sday: p.Sday,
		Pday: p.Pday,
		Prob: p.Prob,
	}
}

// Prediction преобразует запись в предсказание движка
func (r PredictionRecord) Prediction() models.Prediction {
	return models.Prediction{Sday: r.Sday, Pday: r.Pday, Prob: r.Prob}
}

// Coord возвращает координаты пикселя записи
func (r PredictionRecord) Coord() models.PixelCoord {
	return models.PixelCoord{X: r.Px, Y: r.Py}
}
