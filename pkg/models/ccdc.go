package models

// Band описывает модель одного спектрального канала внутри сегмента
type Band struct {
	Intercept    float64   `json:"intercept"`    // Свободный член модели
	Coefficients []float64 `json:"coefficients"` // Коэффициенты модели, первый - наклон по времени
	Magnitude    float64   `json:"magnitude"`    // Величина изменения на точке разрыва
}

// Slope возвращает наклон модели по времени
func (b Band) Slope() float64 {
	if len(b.Coefficients) == 0 {
		return 0
	}
	return b.Coefficients[0]
}

// At экстраполирует отражение канала на ординальный день day
func (b Band) At(day int) float64 {
	return b.Intercept + b.Slope()*float64(day)
}

// Segment представляет одну подобранную модель временного ряда пикселя
type Segment struct {
	Sday   int     `json:"sday"`   // Ординальный день начала
	Eday   int     `json:"eday"`   // Ординальный день окончания
	Bday   int     `json:"bday"`   // Ординальный день разрыва
	Chprob float64 `json:"chprob"` // Вероятность изменения на bday (0 или 1)
	Curqa  float64 `json:"curqa"`  // Флаг качества подбора кривой

	Blue    Band `json:"blue"`
	Green   Band `json:"green"`
	Red     Band `json:"red"`
	NIR     Band `json:"nir"`
	SWIR1   Band `json:"swir1"`
	SWIR2   Band `json:"swir2"`
	Thermal Band `json:"thermal"`
}

// Changed сообщает, зафиксирован ли разрыв в конце сегмента
func (s Segment) Changed() bool {
	return s.Chprob == 1
}

// Magnitudes возвращает величины изменения пяти каналов,
// участвующих в расчете магнитуды
func (s Segment) Magnitudes() []float64 {
	return []float64{
		s.Green.Magnitude,
		s.Red.Magnitude,
		s.NIR.Magnitude,
		s.SWIR1.Magnitude,
		s.SWIR2.Magnitude,
	}
}

// Prediction вектор вероятностей классов на один день
type Prediction struct {
	Sday int       `json:"sday"` // sday сегмента, к которому относится предсказание
	Pday int       `json:"pday"` // Ординальный день предсказания
	Prob []float64 `json:"prob"` // Вероятности в порядке списка классов
}

// PixelCoord координаты пикселя в проекции чипа
type PixelCoord struct {
	X int64 `json:"px"`
	Y int64 `json:"py"`
}

// Pixel объединяет координаты пикселя с его сегментами и предсказаниями.
// После загрузки данные пикселя только читаются.
type Pixel struct {
	Coord       PixelCoord   `json:"coord"`
	Segments    []Segment    `json:"segments"`
	Predictions []Prediction `json:"predictions"`
}

// ProductValue результат вычисления продукта для одного пикселя и даты
type ProductValue struct {
	Px     int64              `json:"px"`
	Py     int64              `json:"py"`
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

// FormulaValue результат одной формулы для одного пикселя
type FormulaValue struct {
	PixelX int64   `json:"pixelx"`
	PixelY int64   `json:"pixely"`
	Val    float64 `json:"val"`
}
