package repository

import (
	"context"
	"errors"
	"fmt"

	"ccdc-products-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")

// GenerationRepository интерфейс для работы с журналом генераций
type GenerationRepository interface {
	Create(ctx context.Context, gen *model.Generation) error
	GetByID(ctx context.Context, id string) (*model.Generation, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Generation, int64, error)
	Update(ctx context.Context, gen *model.Generation) error
}

// generationRepository реализация GenerationRepository
type generationRepository struct {
	db *gorm.DB
}

// NewGenerationRepository создает новый instance GenerationRepository
func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{
		db: db,
	}
}

// Create создает запись о генерации
func (r *generationRepository) Create(ctx context.Context, gen *model.Generation) error {
	if err := r.db.WithContext(ctx).Create(gen).Error; err != nil {
		return fmt.Errorf("failed to create generation: %w", err)
	}
	return nil
}

// GetByID получает генерацию по ID
func (r *generationRepository) GetByID(ctx context.Context, id string) (*model.Generation, error) {
	var gen model.Generation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&gen).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("generation with id %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return &gen, nil
}

// List получает список генераций с пагинацией
func (r *generationRepository) List(ctx context.Context, page, pageSize int) ([]*model.Generation, int64, error) {
	var gens []*model.Generation
	var total int64

	// Подсчитываем общее количество
	if err := r.db.WithContext(ctx).Model(&model.Generation{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count generations: %w", err)
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC, id").
		Find(&gens).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list generations: %w", err)
	}

	return gens, total, nil
}

// Update сохраняет изменения генерации
func (r *generationRepository) Update(ctx context.Context, gen *model.Generation) error {
	result := r.db.WithContext(ctx).Save(gen)
	if result.Error != nil {
		return fmt.Errorf("failed to update generation: %w", result.Error)
	}
	return nil
}
