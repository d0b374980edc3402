package main

import (
	"context"
	"fmt"
	"net/http"

	"ccdc-products-go/internal/app"
	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/handler"

	"github.com/gin-gonic/gin"
)

func main() {
	// Получаем конфигурацию из переменных окружения
	cfg := config.LoadConfig()

	// Инициализируем логгер
	logger := app.NewLogger(cfg.Logging.Level)
	logger.Info("Запуск CCDC Products API Server")

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Ошибка инициализации сервиса: %v", err)
	}
	defer a.Close()

	// Инициализируем обработчики
	productHandler := handler.NewProductHandler(a.Service, logger)

	// Настраиваем Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Документы файлового хранилища отдаются как статика
	if a.ProductsDir != "" {
		router.Static("/products", a.ProductsDir)
	}

	// Регистрируем маршруты
	productHandler.RegisterRoutes(router)

	// Добавляем базовый маршрут для проверки
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "CCDC Products API Server",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	// Запускаем сервер
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Сервер запущен на %s", serverAddr)
	logger.Infof("API доступно по адресу: http://localhost:%d/api/v1", cfg.Server.Port)

	if err := router.Run(serverAddr); err != nil {
		logger.Fatalf("Ошибка запуска сервера: %v", err)
	}
}

// corsMiddleware добавляет заголовки CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
