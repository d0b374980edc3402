package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"ccdc-products-go/internal/client"
	"ccdc-products-go/internal/config"
	"ccdc-products-go/internal/database"
	"ccdc-products-go/internal/repository"
	"ccdc-products-go/internal/service"
	"ccdc-products-go/internal/storage"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Источники сегментов и бэкенды хранилища
const (
	SourceDB    = "db"
	SourceAPI   = "api"
	BackendFile = "file"
	BackendGCS  = "gcs"
)

// App собранные зависимости сервиса
type App struct {
	Config        *config.Config
	ProductConfig *config.ProductConfig
	DB            *gorm.DB
	Store         storage.Store
	Service       *service.ProductService
	// ProductsDir директория файлового хранилища, пусто для GCS
	ProductsDir string

	closers []func() error
}

// NewLogger создает JSON-логгер с уровнем из конфигурации
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
		logger.Warnf("Неизвестный уровень логирования %q, используется info", level)
	}
	logger.SetLevel(parsed)
	return logger
}

// Build подключает базу данных, источник и хранилище и создает сервис
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	productCfg, err := config.LoadProductConfig(cfg.ProductConfigPath)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, ProductConfig: productCfg}

	logger.Info("Подключение к базе данных...")
	a.DB, err = database.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return database.Close(a.DB) })

	if err := database.Migrate(a.DB, logger); err != nil {
		a.Close()
		return nil, err
	}

	source, err := newSource(cfg, a.DB, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openStore(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	generations := repository.NewGenerationRepository(a.DB)
	a.Service = service.NewProductService(productCfg, source, generations, a.Store, logger)
	if cfg.Source.Kind != SourceDB {
		a.Service.AddHealthCheck("database", func(ctx context.Context) error {
			return database.HealthCheck(a.DB.WithContext(ctx))
		})
	}

	logger.WithFields(logrus.Fields{
		"source":  cfg.Source.Kind,
		"storage": cfg.Storage.Backend,
		"workers": productCfg.Workers,
	}).Info("Сервис генерации продуктов готов к работе")
	return a, nil
}

func newSource(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (service.Source, error) {
	switch cfg.Source.Kind {
	case SourceDB:
		return repository.NewSegmentRepository(db), nil
	case SourceAPI:
		timeout := time.Duration(cfg.Source.Timeout) * time.Second
		return client.NewUpstreamClient(cfg.Source.BaseURL, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q: want %s|%s", cfg.Source.Kind, SourceDB, SourceAPI)
	}
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	switch cfg.Storage.Backend {
	case BackendFile:
		store, err := storage.NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return err
		}
		a.Store = store
		a.ProductsDir = store.Dir()
	case BackendGCS:
		store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			return err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
		if cfg.Storage.CredentialsFile == "" {
			logger.Warn("STORAGE_CREDENTIALS_FILE не задан, клиент GCS использует учетные данные окружения")
		}
	default:
		return fmt.Errorf("unknown storage backend %q: want %s|%s", cfg.Storage.Backend, BackendFile, BackendGCS)
	}
	return nil
}

// Close освобождает ресурсы в обратном порядке
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
