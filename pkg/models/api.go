package models

import "time"

// GenerateRequest запрос на генерацию продукта для чипа
type GenerateRequest struct {
	Product string   `json:"product" binding:"required"`
	Cx      int64    `json:"cx"`
	Cy      int64    `json:"cy"`
	Tile    string   `json:"tile" binding:"required"`
	Dates   []string `json:"dates" binding:"required,min=1"`
}

// GenerationResponse ответ с информацией о генерации
type GenerationResponse struct {
	ID         string     `json:"id"`
	Product    string     `json:"product"`
	Tile       string     `json:"tile"`
	Cx         int64      `json:"cx"`
	Cy         int64      `json:"cy"`
	Dates      []string   `json:"dates"`
	Status     string     `json:"status"`
	Pixels     int        `json:"pixels"`
	Values     int        `json:"values"`
	Failures   int        `json:"failures"`
	Error      string     `json:"error,omitempty"`
	Paths      []string   `json:"paths"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ListGenerationsResponse ответ со списком генераций
type ListGenerationsResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	Size        int                  `json:"size"`
}

// IngestRequest сегменты и предсказания пикселей одного чипа
type IngestRequest struct {
	Cx     int64   `json:"cx"`
	Cy     int64   `json:"cy"`
	Pixels []Pixel `json:"pixels" binding:"required"`
}

// IngestResponse результат загрузки чипа
type IngestResponse struct {
	Cx          int64 `json:"cx"`
	Cy          int64 `json:"cy"`
	Pixels      int   `json:"pixels"`
	Segments    int   `json:"segments"`
	Predictions int   `json:"predictions"`
}

// HealthResponse состояние сервиса и его зависимостей
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Products []string          `json:"products"`
}
