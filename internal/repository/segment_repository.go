package repository

import (
	"context"
	"fmt"
	"sort"

	"ccdc-products-go/internal/database"
	"ccdc-products-go/internal/model"
	"ccdc-products-go/pkg/models"

	"gorm.io/gorm"
)

// SegmentRepository интерфейс для работы с сегментами и предсказаниями чипа
type SegmentRepository interface {
	GroupedSegments(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Segment, error)
	GroupedPredictions(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Prediction, error)
	SaveChip(ctx context.Context, cx, cy int64, pixels []models.Pixel) error
	CheckHealth(ctx context.Context) error
}

// segmentRepository реализация SegmentRepository
type segmentRepository struct {
	db *gorm.DB
}

// NewSegmentRepository создает новый instance SegmentRepository
func NewSegmentRepository(db *gorm.DB) SegmentRepository {
	return &segmentRepository{
		db: db,
	}
}

// GroupedSegments возвращает сегменты чипа, сгруппированные по пикселю
// и упорядоченные по дате начала
func (r *segmentRepository) GroupedSegments(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Segment, error) {
	var records []model.SegmentRecord
	err := r.db.WithContext(ctx).
		Where("cx = ? AND cy = ?", cx, cy).
		Order("px, py, sday, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get segments: %w", err)
	}

	grouped := make(map[models.PixelCoord][]models.Segment)
	for _, rec := range records {
		grouped[rec.Coord()] = append(grouped[rec.Coord()], rec.Segment())
	}
	return grouped, nil
}

// GroupedPredictions возвращает предсказания чипа, сгруппированные по пикселю
func (r *segmentRepository) GroupedPredictions(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Prediction, error) {
	var records []model.PredictionRecord
	err := r.db.WithContext(ctx).
		Where("cx = ? AND cy = ?", cx, cy).
		Order("px, py, sday, pday, id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}

	grouped := make(map[models.PixelCoord][]models.Prediction)
	for _, rec := range records {
		grouped[rec.Coord()] = append(grouped[rec.Coord()], rec.Prediction())
	}
	return grouped, nil
}

// SaveChip заменяет сегменты и предсказания чипа в одной транзакции
func (r *segmentRepository) SaveChip(ctx context.Context, cx, cy int64, pixels []models.Pixel) error {
	var segments []model.SegmentRecord
	var predictions []model.PredictionRecord
	for _, p := range pixels {
		ordered := make([]models.Segment, len(p.Segments))
		copy(ordered, p.Segments)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sday < ordered[j].Sday })

		for _, s := range ordered {
			segments = append(segments, model.NewSegmentRecord(cx, cy, p.Coord, s))
		}
		for _, pr := range p.Predictions {
			predictions = append(predictions, model.NewPredictionRecord(cx, cy, p.Coord, pr))
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Сначала удаляем старые данные чипа
		if err := tx.Where("cx = ? AND cy = ?", cx, cy).Delete(&model.SegmentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete old segments: %w", err)
		}
		if err := tx.Where("cx = ? AND cy = ?", cx, cy).Delete(&model.PredictionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete old predictions: %w", err)
		}

		// Затем создаем новые записи
		if len(segments) > 0 {
			if err := tx.CreateInBatches(segments, 500).Error; err != nil {
				return fmt.Errorf("failed to create segments: %w", err)
			}
		}
		if len(predictions) > 0 {
			if err := tx.CreateInBatches(predictions, 500).Error; err != nil {
				return fmt.Errorf("failed to create predictions: %w", err)
			}
		}
		return nil
	})
}

// CheckHealth проверяет доступность базы данных
func (r *segmentRepository) CheckHealth(ctx context.Context) error {
	return database.HealthCheck(r.db.WithContext(ctx))
}
