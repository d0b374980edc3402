package engine

import (
	"fmt"
	"math"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/pkg/models"

	"gonum.org/v1/gonum/floats"
)

// Formula имя одной формулы движка изменений
type Formula string

// Формулы движка изменений
const (
	TimeOfChange      Formula = "time-of-change"
	TimeSinceChange   Formula = "time-since-change"
	MagnitudeOfChange Formula = "magnitude-of-change"
	LengthOfSegment   Formula = "length-of-segment"
	CurveFit          Formula = "curve-fit"
)

// Formulas перечисляет формулы в порядке вывода
var Formulas = []Formula{TimeOfChange, TimeSinceChange, MagnitudeOfChange, LengthOfSegment, CurveFit}

// Ключи значений продукта change
const (
	KeySCLast = "sclast"
	KeySCTime = "sctime"
	KeySCMag  = "scmag"
	KeySCStab = "scstab"
	KeySCMQA  = "scmqa"
)

// formulaRule описывает правило уровня модели, свертку по сегментам и
// значение по умолчанию для некорректных сегментов
type formulaRule struct {
	key string
	// model возвращает значение для одного сегмента; ok=false означает
	// отсутствие значения
	model func(s models.Segment, date, begin int) (v float64, ok bool, err error)
	// better сообщает, заменяет ли v текущее значение свертки
	better func(v, current float64) bool
	// fallback используется, если сегменты некорректны или ни один сегмент
	// не дал значения
	fallback func(date, begin int) float64
}

var formulaRules = map[Formula]formulaRule{
	TimeOfChange: {
		key:      KeySCLast,
		model:    timeOfChange,
		better:   greater,
		fallback: zero,
	},
	TimeSinceChange: {
		key:      KeySCTime,
		model:    timeSinceChange,
		better:   less,
		fallback: zero,
	},
	MagnitudeOfChange: {
		key:      KeySCMag,
		model:    magnitudeOfChange,
		better:   greater,
		fallback: zero,
	},
	LengthOfSegment: {
		key:      KeySCStab,
		model:    lengthOfSegment,
		better:   less,
		fallback: stabilityFill,
	},
	CurveFit: {
		key:      KeySCMQA,
		model:    curveFit,
		better:   greater,
		fallback: zero,
	},
}

// ParseFormula проверяет имя формулы
func ParseFormula(name string) (Formula, error) {
	f := Formula(name)
	if _, ok := formulaRules[f]; !ok {
		return "", fmt.Errorf("unknown formula %q", name)
	}
	return f, nil
}

// ChangeEngine вычисляет показатели изменений по сегментам пикселя
type ChangeEngine struct {
	cfg *config.ProductConfig
}

// NewChangeEngine создает движок изменений
func NewChangeEngine(cfg *config.ProductConfig) *ChangeEngine {
	return &ChangeEngine{cfg: cfg}
}

// Evaluate вычисляет значение формулы f для списка сегментов пикселя на дату date
func (e *ChangeEngine) Evaluate(f Formula, segments []models.Segment, date int) (result float64, err error) {
	rule, ok := formulaRules[f]
	if !ok {
		return 0, fmt.Errorf("unknown formula %q", f)
	}
	begin := e.cfg.StabilityBeginOrdinal()

	if !ValidSegments(segments) {
		return rule.fallback(date, begin), nil
	}
	if date <= 0 {
		return 0, &ComputationError{Formula: string(f), Err: fmt.Errorf("query date ordinal %d is not positive", date)}
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = 0, &ComputationError{Formula: string(f), Err: fmt.Errorf("%v", r)}
		}
	}()

	seen := false
	for _, s := range segments {
		v, ok, err := rule.model(s, date, begin)
		if err != nil {
			return 0, &ComputationError{Formula: string(f), Err: err}
		}
		if !ok {
			continue
		}
		if !seen || rule.better(v, result) {
			result = v
			seen = true
		}
	}

	if !seen {
		return rule.fallback(date, begin), nil
	}
	return result, nil
}

// Compute вычисляет все формулы продукта change для пикселя
func (e *ChangeEngine) Compute(pixel models.Pixel, date int) (map[string]float64, error) {
	values := make(map[string]float64, len(Formulas))
	for _, f := range Formulas {
		v, err := e.Evaluate(f, pixel.Segments, date)
		if err != nil {
			return nil, err
		}
		values[formulaRules[f].key] = v
	}
	return values, nil
}

// Fallback значения продукта change для пикселя без корректных сегментов
func (e *ChangeEngine) Fallback(date int) map[string]float64 {
	begin := e.cfg.StabilityBeginOrdinal()
	values := make(map[string]float64, len(Formulas))
	for _, f := range Formulas {
		rule := formulaRules[f]
		values[rule.key] = rule.fallback(date, begin)
	}
	return values
}

// EvaluateFormula вычисляет одну формулу для каждого пикселя
func (e *ChangeEngine) EvaluateFormula(f Formula, pixels []models.Pixel, date int) ([]models.FormulaValue, error) {
	out := make([]models.FormulaValue, 0, len(pixels))
	for _, p := range pixels {
		v, err := e.Evaluate(f, p.Segments, date)
		if err != nil {
			return nil, fmt.Errorf("pixel (%d, %d): %w", p.Coord.X, p.Coord.Y, err)
		}
		out = append(out, models.FormulaValue{PixelX: p.Coord.X, PixelY: p.Coord.Y, Val: v})
	}
	return out, nil
}

// breakInYearOf сообщает, что у сегмента есть разрыв в году даты date
func breakInYearOf(s models.Segment, date int) bool {
	return s.Changed() && models.YearOf(s.Bday) == models.YearOf(date)
}

func timeOfChange(s models.Segment, date, _ int) (float64, bool, error) {
	if breakInYearOf(s, date) {
		return float64(models.DayOfYear(s.Bday)), true, nil
	}
	return 0, true, nil
}

func timeSinceChange(s models.Segment, date, _ int) (float64, bool, error) {
	if s.Changed() && date-s.Bday >= 0 {
		return float64(date - s.Bday), true, nil
	}
	return 0, false, nil
}

func magnitudeOfChange(s models.Segment, date, _ int) (float64, bool, error) {
	if !breakInYearOf(s, date) {
		return 0, true, nil
	}
	norm := floats.Norm(s.Magnitudes(), 2)
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return 0, false, fmt.Errorf("magnitude is not finite")
	}
	return norm, true, nil
}

func lengthOfSegment(s models.Segment, date, begin int) (float64, bool, error) {
	fill := date - begin
	diff := date - s.Sday
	if date > s.Eday {
		diff = date - s.Eday
	}
	if diff >= 0 && diff < fill {
		return float64(diff), true, nil
	}
	return float64(fill), true, nil
}

func curveFit(s models.Segment, date, _ int) (float64, bool, error) {
	if s.Sday <= date && date <= s.Eday {
		return s.Curqa, true, nil
	}
	return 0, true, nil
}

func greater(v, current float64) bool { return v > current }

func less(v, current float64) bool { return v < current }

func zero(int, int) float64 { return 0 }

func stabilityFill(date, begin int) float64 { return float64(date - begin) }
