package engine

import (
	"math"
	"testing"

	"ccdc-products-go/pkg/models"
)

func TestValidSegments(t *testing.T) {
	a := day(t, "2000-01-01")
	b := day(t, "2005-01-01")
	c := day(t, "2006-01-01")
	d := day(t, "2010-01-01")

	nan := segment(a, b, b, 0)
	nan.Chprob = math.NaN()

	noCoef := segment(a, b, b, 0)
	noCoef.NIR.Coefficients = nil

	tests := []struct {
		name     string
		segments []models.Segment
		want     bool
	}{
		{"empty", nil, false},
		{"single", []models.Segment{segment(a, b, b, 0)}, true},
		{"ordered", []models.Segment{segment(a, b, b, 1), segment(c, d, d, 0)}, true},
		{"unordered", []models.Segment{segment(c, d, d, 0), segment(a, b, b, 1)}, false},
		{"start after end", []models.Segment{segment(b, a, b, 0)}, false},
		{"missing day", []models.Segment{segment(0, b, b, 0)}, false},
		{"nan chprob", []models.Segment{nan}, false},
		{"missing coefficients", []models.Segment{noCoef}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidSegments(tt.segments); got != tt.want {
				t.Errorf("ValidSegments: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidPredictions(t *testing.T) {
	a := day(t, "2000-01-01")

	tests := []struct {
		name        string
		predictions []models.Prediction
		want        bool
	}{
		{"empty", nil, true},
		{"well formed", []models.Prediction{prediction(a, a+10, treeProb)}, true},
		{"short vector", []models.Prediction{prediction(a, a+10, []float64{1})}, false},
		{"missing pday", []models.Prediction{prediction(a, 0, treeProb)}, false},
		{"nan probability", []models.Prediction{prediction(a, a+10, []float64{math.NaN(), 0, 0, 0, 0, 0, 0, 0})}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPredictions(tt.predictions, 8); got != tt.want {
				t.Errorf("ValidPredictions: got %v, want %v", got, tt.want)
			}
		})
	}
}
