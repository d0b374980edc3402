package config

import (
	"fmt"
	"os"
	"time"

	"ccdc-products-go/pkg/models"

	"gopkg.in/yaml.v3"
)

// Политики обработки ошибок отдельных пикселей
const (
	FailurePolicyAbort  = "abort"
	FailurePolicyRecord = "record"
)

// Default values for the product configuration.
const (
	DefaultStabilityBegin     = "1982-01-01"
	DefaultWorkers            = 8
	DefaultPersistConcurrency = 4
	DefaultChipSize           = 100
	DefaultPixelSize          = 30
	DefaultGridOriginX        = -2565585
	DefaultGridOriginY        = 3314805
)

// ConfidenceCodes коды уверенности, которыми помечаются заполненные значения
type ConfidenceCodes struct {
	BackFill       int `yaml:"back_fill"`
	AfterBreak     int `yaml:"after_break"`
	ForwardFill    int `yaml:"forward_fill"`
	Growth         int `yaml:"growth"`
	Decline        int `yaml:"decline"`
	SameClass      int `yaml:"same_class"`
	DifferentClass int `yaml:"different_class"`
	NoModel        int `yaml:"no_model"`
}

// ProductConfig holds everything the compute engine and the pipeline need.
// It is read once and never mutated afterwards.
type ProductConfig struct {
	// Classes is the ordered class-code list; index i corresponds to the i-th
	// probability of every prediction.
	Classes []int `yaml:"classes"`

	// ClassNames maps class names to codes. Must contain none, tree and grass.
	ClassNames map[string]int `yaml:"class_names"`

	Confidence ConfidenceCodes `yaml:"confidence"`

	// ConfidenceRange is the [min, max] interval probabilities are rescaled into.
	ConfidenceRange [2]float64 `yaml:"confidence_range"`

	// StabilityBegin is the YYYY-MM-DD date segment length is measured from
	// when no segment limits it.
	StabilityBegin string `yaml:"stability_begin"`

	Workers            int             `yaml:"workers"`
	PersistConcurrency int             `yaml:"persist_concurrency"`
	RetryBackoff       []time.Duration `yaml:"retry_backoff"`

	FillSameLC bool `yaml:"fill_samelc"`
	FillDiffLC bool `yaml:"fill_difflc"`

	ChipSize  int   `yaml:"chip_size"`
	PixelSize int64 `yaml:"pixel_size"`

	// GridOrigin is the projected upper-left corner (x, y) of the chip grid.
	GridOrigin [2]int64 `yaml:"grid_origin"`

	// FailurePolicy is one of: abort | record.
	FailurePolicy string `yaml:"failure_policy"`

	stabilityBegin int
}

// ClassCode возвращает код класса по имени
func (c *ProductConfig) ClassCode(name string) int {
	return c.ClassNames[name]
}

// NoneClass код отсутствующего класса
func (c *ProductConfig) NoneClass() int { return c.ClassNames["none"] }

// TreeClass код класса леса
func (c *ProductConfig) TreeClass() int { return c.ClassNames["tree"] }

// GrassClass код класса травянистой растительности
func (c *ProductConfig) GrassClass() int { return c.ClassNames["grass"] }

// StabilityBeginOrdinal возвращает StabilityBegin как ординальный день
func (c *ProductConfig) StabilityBeginOrdinal() int {
	return c.stabilityBegin
}

// LoadProductConfig reads the product YAML at path. An empty path yields the
// defaults.
func LoadProductConfig(path string) (*ProductConfig, error) {
	if path == "" {
		return DefaultProductConfig(), nil
	}

	cfg := defaults()
	// yaml.v3 сливает отображения, таблица классов из файла заменяет умолчания целиком
	cfg.ClassNames = nil

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("product config: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("product config: parse yaml: %w", err)
	}
	if cfg.ClassNames == nil {
		cfg.ClassNames = defaultClassNames()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("product config: %w", err)
	}

	return cfg, nil
}

// DefaultProductConfig returns the validated LCMAP-style class table and codes.
func DefaultProductConfig() *ProductConfig {
	cfg := defaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("product config defaults: %v", err))
	}
	return cfg
}

func defaultClassNames() map[string]int {
	return map[string]int{
		"none":      0,
		"developed": 1,
		"cropland":  2,
		"grass":     3,
		"tree":      4,
		"water":     5,
		"wetland":   6,
		"snow":      7,
		"barren":    8,
	}
}

// defaults returns a ProductConfig pre-populated with default values.
func defaults() *ProductConfig {
	return &ProductConfig{
		Classes: []int{1, 2, 3, 4, 5, 6, 7, 8},
		ClassNames: defaultClassNames(),
		Confidence: ConfidenceCodes{
			BackFill:       212,
			AfterBreak:     213,
			ForwardFill:    211,
			Growth:         151,
			Decline:        152,
			SameClass:      201,
			DifferentClass: 202,
			NoModel:        0,
		},
		ConfidenceRange:    [2]float64{0, 100},
		StabilityBegin:     DefaultStabilityBegin,
		Workers:            DefaultWorkers,
		PersistConcurrency: DefaultPersistConcurrency,
		RetryBackoff:       []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		FillSameLC:         true,
		FillDiffLC:         true,
		ChipSize:           DefaultChipSize,
		PixelSize:          DefaultPixelSize,
		GridOrigin:         [2]int64{DefaultGridOriginX, DefaultGridOriginY},
		FailurePolicy:      FailurePolicyAbort,
	}
}

// Validate checks structural constraints and resolves derived values.
// Call it once after building a ProductConfig by hand.
func (c *ProductConfig) Validate() error {
	if len(c.Classes) == 0 {
		return fmt.Errorf("classes must not be empty")
	}
	for _, name := range []string{"none", "tree", "grass"} {
		if _, ok := c.ClassNames[name]; !ok {
			return fmt.Errorf("class_names must define %q", name)
		}
	}
	if c.ConfidenceRange[0] >= c.ConfidenceRange[1] {
		return fmt.Errorf("confidence_range %v must be increasing", c.ConfidenceRange)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.PersistConcurrency <= 0 {
		return fmt.Errorf("persist_concurrency must be positive, got %d", c.PersistConcurrency)
	}
	for i, d := range c.RetryBackoff {
		if d < 0 {
			return fmt.Errorf("retry_backoff[%d] must not be negative", i)
		}
	}
	if c.ChipSize <= 0 {
		return fmt.Errorf("chip_size must be positive, got %d", c.ChipSize)
	}
	if c.PixelSize <= 0 {
		return fmt.Errorf("pixel_size must be positive, got %d", c.PixelSize)
	}
	switch c.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyRecord:
	case "":
		c.FailurePolicy = FailurePolicyAbort
	default:
		return fmt.Errorf("failure_policy %q unknown: want abort|record", c.FailurePolicy)
	}

	begin, err := models.ParseOrdinal(c.StabilityBegin)
	if err != nil {
		return fmt.Errorf("stability_begin: %w", err)
	}
	c.stabilityBegin = begin

	return nil
}
