package handler

import (
	"errors"
	"net/http"
	"strconv"

	"ccdc-products-go/internal/repository"
	"ccdc-products-go/internal/service"
	"ccdc-products-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProductHandler обрабатывает HTTP запросы генерации продуктов
type ProductHandler struct {
	productService *service.ProductService
	logger         *logrus.Logger
}

// NewProductHandler создает новый экземпляр ProductHandler
func NewProductHandler(productService *service.ProductService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes регистрирует маршруты API
func (h *ProductHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/products", h.GenerateProduct)
		api.GET("/products", h.ListGenerations)
		api.GET("/products/:id", h.GetGeneration)
		api.GET("/formulas/:name", h.EvaluateFormula)
		api.POST("/segments", h.IngestSegments)
		api.GET("/health", h.CheckHealth)
	}
}

// GenerateProduct запускает генерацию продукта для чипа
func (h *ProductHandler) GenerateProduct(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Ошибка разбора запроса генерации: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса: " + err.Error()})
		return
	}

	h.logger.Infof("Получен запрос на генерацию %s для чипа (%d, %d), дат: %d", req.Product, req.Cx, req.Cy, len(req.Dates))

	resp, err := h.productService.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Ошибка генерации продукта: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "generation": resp})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListGenerations возвращает список генераций с пагинацией
func (h *ProductHandler) ListGenerations(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}

	resp, err := h.productService.ListGenerations(c.Request.Context(), page, size)
	if err != nil {
		h.logger.Errorf("Ошибка получения списка генераций: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения списка генераций"})
		return
	}

	h.logger.Infof("Возвращено %d генераций из %d", len(resp.Generations), resp.Total)
	c.JSON(http.StatusOK, resp)
}

// GetGeneration возвращает генерацию по ID
func (h *ProductHandler) GetGeneration(c *gin.Context) {
	id := c.Param("id")

	resp, err := h.productService.GetGeneration(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Генерация не найдена"})
			return
		}
		h.logger.Errorf("Ошибка получения генерации %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка получения генерации"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// EvaluateFormula вычисляет одну формулу изменений для всех пикселей чипа
func (h *ProductHandler) EvaluateFormula(c *gin.Context) {
	name := c.Param("name")
	cxStr, cyStr, date := c.Query("cx"), c.Query("cy"), c.Query("date")

	if cxStr == "" || cyStr == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Отсутствуют обязательные параметры: cx, cy, date"})
		return
	}

	cx, err := strconv.ParseInt(cxStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат cx"})
		return
	}

	cy, err := strconv.ParseInt(cyStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат cy"})
		return
	}

	values, err := h.productService.EvaluateFormula(c.Request.Context(), name, cx, cy, date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Ошибка вычисления формулы %s: %v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, values)
}

// IngestSegments загружает сегменты и предсказания чипа
func (h *ProductHandler) IngestSegments(c *gin.Context) {
	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат запроса: " + err.Error()})
		return
	}

	resp, err := h.productService.Ingest(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrIngestUnsupported):
			c.JSON(http.StatusConflict, gin.H{"error": "Источник данных не поддерживает загрузку сегментов"})
		default:
			h.logger.Errorf("Ошибка загрузки сегментов: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка загрузки сегментов"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CheckHealth проверяет состояние сервиса
func (h *ProductHandler) CheckHealth(c *gin.Context) {
	resp, err := h.productService.CheckHealth(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Сервис недоступен: %v", err)
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}
