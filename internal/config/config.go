package config

import (
	"os"
	"strconv"
)

// Config структура конфигурации приложения
type Config struct {
	Server struct {
		Port        int
		Host        string
		Environment string
	}
	Database struct {
		Driver   string // postgres или sqlite
		Host     string
		Port     string
		Name     string
		User     string
		Password string
		SSLMode  string
		Path     string // файл базы для sqlite
	}
	Source struct {
		Kind    string // db или api
		BaseURL string
		Timeout int // в секундах
	}
	Storage struct {
		Backend         string // file или gcs
		Dir             string
		Bucket          string
		CredentialsFile string // сервисный аккаунт GCS, пусто означает ADC
	}
	Logging struct {
		Level string
	}
	ProductConfigPath string
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() *Config {
	cfg := &Config{}

	// Конфигурация сервера
	cfg.Server.Port = getEnvInt("SERVER_PORT", 8080)
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Environment = getEnv("ENVIRONMENT", "development")

	// Конфигурация базы данных
	cfg.Database.Driver = getEnv("DB_DRIVER", "postgres")
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.Name = getEnv("DB_NAME", "ccdc_products")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")
	cfg.Database.Path = getEnv("DB_PATH", "ccdc_products.db")

	// Источник сегментов и предсказаний
	cfg.Source.Kind = getEnv("SOURCE", "db")
	cfg.Source.BaseURL = getEnv("UPSTREAM_API_BASE_URL", "http://localhost:5656")
	cfg.Source.Timeout = getEnvInt("UPSTREAM_API_TIMEOUT_SECONDS", 120)

	// Хранилище продуктов
	cfg.Storage.Backend = getEnv("STORAGE_BACKEND", "file")
	cfg.Storage.Dir = getEnv("STORAGE_DIR", "./products")
	cfg.Storage.Bucket = getEnv("STORAGE_BUCKET", "")
	cfg.Storage.CredentialsFile = getEnv("STORAGE_CREDENTIALS_FILE", "")

	// Конфигурация логирования
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")

	cfg.ProductConfigPath = getEnv("PRODUCT_CONFIG", "")

	return cfg
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает int значение переменной окружения или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
