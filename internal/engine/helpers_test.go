package engine

import (
	"testing"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/pkg/models"
)

// Векторы вероятностей для списка классов по умолчанию [1..8]:
// индекс 2 - grass (3), индекс 3 - tree (4)
var (
	grassProb = []float64{0, 0, 0.8, 0.1, 0.1, 0, 0, 0}
	treeProb  = []float64{0, 0, 0.1, 0.8, 0.1, 0, 0, 0}
	waterProb = []float64{0, 0, 0.05, 0.05, 0.9, 0, 0, 0}
)

func day(t *testing.T, value string) int {
	t.Helper()
	o, err := models.ParseOrdinal(value)
	if err != nil {
		t.Fatalf("ParseOrdinal(%q): %v", value, err)
	}
	return o
}

func testConfig(t *testing.T) *config.ProductConfig {
	t.Helper()
	return config.DefaultProductConfig()
}

// segment строит корректный сегмент с постоянным NBR
func segment(sday, eday, bday int, chprob float64) models.Segment {
	return models.Segment{
		Sday:   sday,
		Eday:   eday,
		Bday:   bday,
		Chprob: chprob,
		Curqa:  8,
		NIR:    models.Band{Intercept: 0.3, Coefficients: []float64{0}},
		SWIR1:  models.Band{Intercept: 0.1, Coefficients: []float64{0}},
	}
}

// greening строит сегмент, у которого NBR растет от 0.5 до 0.667
func greening(sday, eday, bday int) models.Segment {
	s := segment(sday, eday, bday, 0)
	slope := 0.2 / float64(eday-sday)
	s.NIR = models.Band{Intercept: 0.3 - slope*float64(sday), Coefficients: []float64{slope}}
	return s
}

// browning строит сегмент, у которого NBR падает от 0.667 до 0.5
func browning(sday, eday, bday int) models.Segment {
	s := segment(sday, eday, bday, 0)
	slope := -0.2 / float64(eday-sday)
	s.NIR = models.Band{Intercept: 0.5 - slope*float64(sday), Coefficients: []float64{slope}}
	return s
}

func prediction(sday, pday int, prob []float64) models.Prediction {
	return models.Prediction{Sday: sday, Pday: pday, Prob: prob}
}
