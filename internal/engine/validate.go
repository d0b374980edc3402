package engine

import (
	"math"

	"ccdc-products-go/pkg/models"
)

// ValidSegments проверяет структурную корректность списка сегментов пикселя:
// список не пуст, обязательные поля заполнены, сегменты упорядочены по sday
func ValidSegments(segments []models.Segment) bool {
	if len(segments) == 0 {
		return false
	}

	for i, s := range segments {
		if !validSegment(s) {
			return false
		}
		if i > 0 && s.Sday < segments[i-1].Sday {
			return false
		}
	}
	return true
}

func validSegment(s models.Segment) bool {
	if s.Sday <= 0 || s.Eday <= 0 || s.Bday <= 0 || s.Sday > s.Eday {
		return false
	}
	if len(s.NIR.Coefficients) == 0 || len(s.SWIR1.Coefficients) == 0 {
		return false
	}

	required := append([]float64{
		s.Chprob,
		s.Curqa,
		s.NIR.Intercept,
		s.SWIR1.Intercept,
		s.NIR.Slope(),
		s.SWIR1.Slope(),
	}, s.Magnitudes()...)
	return allFinite(required)
}

// ValidPredictions проверяет список предсказаний пикселя. Пустой список
// допустим: у сегмента может не быть предсказаний.
func ValidPredictions(predictions []models.Prediction, classCount int) bool {
	for _, p := range predictions {
		if p.Sday <= 0 || p.Pday <= 0 {
			return false
		}
		if len(p.Prob) != classCount || !allFinite(p.Prob) {
			return false
		}
	}
	return true
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
