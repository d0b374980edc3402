package engine

import (
	"errors"
	"testing"

	"ccdc-products-go/pkg/models"
)

// twoSegments: первый сегмент заканчивается разрывом 2005-06-01,
// второй начинается 2005-07-01 и заканчивается без разрыва
func twoSegments(t *testing.T) []models.Segment {
	t.Helper()
	first := segment(day(t, "2000-01-01"), day(t, "2005-06-01"), day(t, "2005-06-01"), 1)
	first.Green.Magnitude = 3
	first.Red.Magnitude = 4
	first.Curqa = 8

	second := segment(day(t, "2005-07-01"), day(t, "2010-01-01"), day(t, "2010-01-01"), 0)
	second.NIR.Magnitude = 100
	second.Curqa = 14

	return []models.Segment{first, second}
}

func TestEvaluate_ChangeFormulas(t *testing.T) {
	e := NewChangeEngine(testConfig(t))
	segments := twoSegments(t)

	tests := []struct {
		name    string
		formula Formula
		date    string
		want    float64
	}{
		{"time of change in break year", TimeOfChange, "2005-08-01", 152},
		{"time of change other year", TimeOfChange, "2006-08-01", 0},
		{"time since change", TimeSinceChange, "2005-08-01", 61},
		{"time since change before break", TimeSinceChange, "2005-01-01", 0},
		{"magnitude in break year", MagnitudeOfChange, "2005-08-01", 5},
		{"magnitude other year", MagnitudeOfChange, "2007-08-01", 0},
		{"length of intersecting segment", LengthOfSegment, "2006-01-01", 184},
		{"curve fit second segment", CurveFit, "2007-01-01", 14},
		{"curve fit first segment", CurveFit, "2001-01-01", 8},
		{"curve fit in gap", CurveFit, "2005-06-15", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.formula, segments, day(t, tt.date))
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Reductions(t *testing.T) {
	e := NewChangeEngine(testConfig(t))
	segments := twoSegments(t)
	begin := e.cfg.StabilityBeginOrdinal()

	for _, date := range []int{day(t, "2005-08-01"), day(t, "2006-03-01"), day(t, "2012-01-01")} {
		var wantMax, wantMin float64
		for i, s := range segments {
			toc, _, _ := timeOfChange(s, date, begin)
			los, _, _ := lengthOfSegment(s, date, begin)
			if i == 0 || toc > wantMax {
				wantMax = toc
			}
			if i == 0 || los < wantMin {
				wantMin = los
			}
		}

		gotMax, err := e.Evaluate(TimeOfChange, segments, date)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if gotMax != wantMax {
			t.Errorf("time-of-change at %s: got %v, want max %v", models.FormatOrdinal(date), gotMax, wantMax)
		}

		gotMin, err := e.Evaluate(LengthOfSegment, segments, date)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if gotMin != wantMin {
			t.Errorf("length-of-segment at %s: got %v, want min %v", models.FormatOrdinal(date), gotMin, wantMin)
		}
	}
}

func TestEvaluate_InvalidSegmentsFallBack(t *testing.T) {
	e := NewChangeEngine(testConfig(t))
	date := day(t, "2005-08-01")
	fill := float64(date - day(t, "1982-01-01"))

	segments := twoSegments(t)
	unordered := []models.Segment{segments[1], segments[0]}

	for _, input := range [][]models.Segment{nil, unordered} {
		for _, f := range Formulas {
			got, err := e.Evaluate(f, input, date)
			if err != nil {
				t.Fatalf("%s: %v", f, err)
			}
			want := 0.0
			if f == LengthOfSegment {
				want = fill
			}
			if got != want {
				t.Errorf("%s fallback: got %v, want %v", f, got, want)
			}
		}
	}
}

func TestEvaluate_ComputationError(t *testing.T) {
	e := NewChangeEngine(testConfig(t))

	_, err := e.Evaluate(CurveFit, twoSegments(t), 0)
	var compErr *ComputationError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected ComputationError, got %v", err)
	}
	if compErr.Formula != string(CurveFit) {
		t.Errorf("formula: got %q, want %q", compErr.Formula, CurveFit)
	}
}

func TestCompute_ChangeKeys(t *testing.T) {
	e := NewChangeEngine(testConfig(t))
	values, err := e.Compute(models.Pixel{Segments: twoSegments(t)}, day(t, "2005-08-01"))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := map[string]float64{
		KeySCLast: 152,
		KeySCTime: 61,
		KeySCMag:  5,
		KeySCStab: 31,
		KeySCMQA:  14,
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("%s: got %v, want %v", k, values[k], v)
		}
	}
	if len(values) != len(want) {
		t.Errorf("keys: got %d, want %d", len(values), len(want))
	}
}

func TestEvaluateFormula(t *testing.T) {
	e := NewChangeEngine(testConfig(t))
	pixels := []models.Pixel{
		{Coord: models.PixelCoord{X: 100, Y: 200}, Segments: twoSegments(t)},
		{Coord: models.PixelCoord{X: 130, Y: 200}},
	}

	got, err := e.EvaluateFormula(TimeOfChange, pixels, day(t, "2005-08-01"))
	if err != nil {
		t.Fatalf("EvaluateFormula: %v", err)
	}
	want := []models.FormulaValue{
		{PixelX: 100, PixelY: 200, Val: 152},
		{PixelX: 130, PixelY: 200, Val: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseFormula(t *testing.T) {
	for _, f := range Formulas {
		if _, err := ParseFormula(string(f)); err != nil {
			t.Errorf("ParseFormula(%q): %v", f, err)
		}
	}
	if _, err := ParseFormula("nope"); err == nil {
		t.Error("expected error for unknown formula")
	}
}
