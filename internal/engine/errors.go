package engine

import (
	"fmt"

	"ccdc-products-go/pkg/models"
)

// ComputationError оборачивает сбой при вычислении одной формулы
type ComputationError struct {
	Formula string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Formula, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// ClassificationError возвращается, когда ни одно правило классификации не подошло
type ClassificationError struct {
	Coord models.PixelCoord
	Date  int
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unclassifiable pixel (%d, %d) at %s",
		e.Coord.X, e.Coord.Y, models.FormatOrdinal(e.Date))
}

// ConfidenceError возвращается, когда ни одно правило уверенности не подошло
type ConfidenceError struct {
	Coord models.PixelCoord
	Date  int
}

func (e *ConfidenceError) Error() string {
	return fmt.Sprintf("confidence calculation problem for pixel (%d, %d) at %s",
		e.Coord.X, e.Coord.Y, models.FormatOrdinal(e.Date))
}
