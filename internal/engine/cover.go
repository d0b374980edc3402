package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"ccdc-products-go/internal/config"
	"ccdc-products-go/pkg/models"

	"gonum.org/v1/gonum/floats"
)

// Ключи значений продукта cover
const (
	KeyLCPri     = "lcpri"
	KeyLCSec     = "lcsec"
	KeyLCPriConf = "lcpriconf"
	KeyLCSecConf = "lcsecconf"
	KeyLCAChg    = "lcachg"
)

// Порог изменения NBR, после которого сегмент считается ростом или деградацией леса
const burnRatioThreshold = 0.05

// Classes основной и вторичный классы покрова
type Classes struct {
	Primary   int
	Secondary int
}

// Confidence уверенность основного и вторичного классов
type Confidence struct {
	Primary   float64
	Secondary float64
}

// characterized описывает сегмент относительно даты запроса
type characterized struct {
	sday, eday, bday int
	chprob           float64

	intersects      bool
	precedesSday    bool
	followsEday     bool
	followsBday     bool
	betweenEdayBday bool

	burnRatio   float64
	growth      bool
	decline     bool
	predictions []models.Prediction

	primary   int
	secondary int
}

func (c *characterized) classes() Classes {
	return Classes{Primary: c.primary, Secondary: c.secondary}
}

// classDetails сводка предсказаний одного сегмента
type classDetails struct {
	firstClass, lastClass int
	firstForest           int // 0, если лес не предсказывался
	firstGrass            int // 0, если травы не предсказывались
	growth, decline       bool
	class                 int
}

// CoverEngine классифицирует покров и оценивает уверенность
type CoverEngine struct {
	cfg *config.ProductConfig
}

// NewCoverEngine создает движок покрова
func NewCoverEngine(cfg *config.ProductConfig) *CoverEngine {
	return &CoverEngine{cfg: cfg}
}

// normalizedBurnRatio возвращает разницу NBR между концом и началом отрезка
func normalizedBurnRatio(s models.Segment, sday, eday int) (float64, error) {
	start, err := nbrAt(s, sday)
	if err != nil {
		return 0, err
	}
	end, err := nbrAt(s, eday)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

func nbrAt(s models.Segment, day int) (float64, error) {
	nir := s.NIR.At(day)
	swir := s.SWIR1.At(day)
	if nir+swir == 0 {
		return 0, fmt.Errorf("nir and swir1 reflectance sum to zero on day %d", day)
	}
	return (nir - swir) / (nir + swir), nil
}

// rankIndex возвращает исходный индекс rank-й по величине вероятности
func rankIndex(probabilities []float64, rank int) (int, bool) {
	if len(probabilities) == 0 || rank < 0 || rank >= len(probabilities) {
		return 0, false
	}
	order := make([]int, len(probabilities))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(probabilities[b], probabilities[a])
	})
	return order[rank], true
}

// getClass возвращает класс rank-й по величине вероятности
func (e *CoverEngine) getClass(probabilities []float64, rank int) int {
	idx, ok := rankIndex(probabilities, rank)
	if !ok || idx >= len(e.cfg.Classes) {
		return e.cfg.NoneClass()
	}
	return e.cfg.Classes[idx]
}

// meanProbabilities поэлементное среднее векторов вероятностей
func meanProbabilities(predictions []models.Prediction) []float64 {
	if len(predictions) == 0 {
		return nil
	}
	mean := make([]float64, len(predictions[0].Prob))
	for _, p := range predictions {
		floats.Add(mean, p.Prob)
	}
	floats.Scale(1/float64(len(predictions)), mean)
	return mean
}

// scaledProbability переводит rank-ю по величине среднюю вероятность
// в диапазон кодов уверенности
func (e *CoverEngine) scaledProbability(predictions []models.Prediction, rank int) float64 {
	mean := meanProbabilities(predictions)
	if rank < 0 || rank >= len(mean) {
		return float64(e.cfg.Confidence.NoModel)
	}
	sorted := slices.Clone(mean)
	slices.SortFunc(sorted, func(a, b float64) int {
		return cmp.Compare(b, a)
	})
	lo, hi := e.cfg.ConfidenceRange[0], e.cfg.ConfidenceRange[1]
	return math.Round(lo + sorted[rank]*(hi-lo))
}

// details считает классы первого и последнего предсказаний, даты первого
// появления леса и травы и признаки роста или деградации.
// predictions отсортированы по pday.
func (e *CoverEngine) details(predictions []models.Prediction, rank int, burnRatio float64) classDetails {
	d := classDetails{
		firstClass: e.cfg.NoneClass(),
		lastClass:  e.cfg.NoneClass(),
	}
	tree, grass := e.cfg.TreeClass(), e.cfg.GrassClass()

	if len(predictions) > 0 {
		d.firstClass = e.getClass(predictions[0].Prob, 0)
		d.lastClass = e.getClass(predictions[len(predictions)-1].Prob, 0)
	}
	for _, p := range predictions {
		top := e.getClass(p.Prob, 0)
		if top == tree && d.firstForest == 0 {
			d.firstForest = p.Pday
		}
		if top == grass && d.firstGrass == 0 {
			d.firstGrass = p.Pday
		}
	}

	d.growth = burnRatio > burnRatioThreshold && d.firstClass == grass && d.lastClass == tree
	d.decline = burnRatio < -burnRatioThreshold && d.firstClass == tree && d.lastClass == grass
	d.class = e.getClass(meanProbabilities(predictions), rank)
	return d
}

// classify возвращает класс ранга rank на дату date с учетом роста и деградации
func (e *CoverEngine) classify(predictions []models.Prediction, date, rank int, burnRatio float64) classDetails {
	d := e.details(predictions, rank, burnRatio)
	tree, grass := e.cfg.TreeClass(), e.cfg.GrassClass()

	switch {
	case d.growth:
		after := date >= d.firstForest
		d.class = pick(rank, after, tree, grass)
	case d.decline:
		after := date >= d.firstGrass
		d.class = pick(rank, after, grass, tree)
	}
	return d
}

// pick выбирает класс для ранга: после перехода основной класс - to,
// до перехода - from; вторичный класс всегда противоположный
func pick(rank int, after bool, to, from int) int {
	if after == (rank == 0) {
		return to
	}
	return from
}

// characterize описывает сегмент относительно даты запроса
func (e *CoverEngine) characterize(s models.Segment, date int, predictions []models.Prediction) (characterized, error) {
	burnRatio, err := normalizedBurnRatio(s, s.Sday, s.Eday)
	if err != nil {
		return characterized{}, &ComputationError{Formula: "normalized-burn-ratio", Err: err}
	}

	c := characterized{
		sday:            s.Sday,
		eday:            s.Eday,
		bday:            s.Bday,
		chprob:          s.Chprob,
		intersects:      s.Sday <= date && date <= s.Eday,
		precedesSday:    date < s.Sday,
		followsEday:     date > s.Eday,
		followsBday:     date >= s.Bday,
		betweenEdayBday: s.Eday <= date && date <= s.Bday,
		burnRatio:       burnRatio,
	}

	for _, p := range predictions {
		if p.Sday == s.Sday {
			c.predictions = append(c.predictions, p)
		}
	}
	slices.SortStableFunc(c.predictions, func(a, b models.Prediction) int {
		return a.Pday - b.Pday
	})

	primary := e.classify(c.predictions, date, 0, burnRatio)
	secondary := e.classify(c.predictions, date, 1, burnRatio)
	c.primary = primary.class
	c.secondary = secondary.class
	c.growth = primary.growth
	c.decline = primary.decline
	return c, nil
}

// characterizeAll описывает все сегменты пикселя на дату date
func (e *CoverEngine) characterizeAll(pixel models.Pixel, date int) ([]characterized, error) {
	out := make([]characterized, 0, len(pixel.Segments))
	for _, s := range pixel.Segments {
		c, err := e.characterize(s, date, pixel.Predictions)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// pairScan результат поиска пары соседних сегментов
type pairScan struct {
	found bool
	pair  [2]*characterized // заполнено, если found
	last  *characterized    // последний просмотренный сегмент, если пара не найдена
}

// findAdjacent ищет первую пару соседних сегментов (a, b), где follows(a)
// и b.precedesSday. Если пары нет, возвращает последний сегмент.
func findAdjacent(segments []characterized, follows func(*characterized) bool) pairScan {
	for i := 1; i < len(segments); i++ {
		a, b := &segments[i-1], &segments[i]
		if follows(a) && b.precedesSday {
			return pairScan{found: true, pair: [2]*characterized{a, b}}
		}
	}
	if len(segments) == 0 {
		return pairScan{}
	}
	return pairScan{last: &segments[len(segments)-1]}
}

func followsEday(c *characterized) bool { return c.followsEday }

func followsBday(c *characterized) bool { return c.followsBday }

func firstWhere(segments []characterized, match func(*characterized) bool) *characterized {
	for i := range segments {
		if match(&segments[i]) {
			return &segments[i]
		}
	}
	return nil
}

// landcover выбирает классы покрова по описанным сегментам.
// Срабатывает первое подходящее правило.
func (e *CoverEngine) landcover(coord models.PixelCoord, segments []characterized, date int) (Classes, error) {
	if len(segments) == 0 {
		return Classes{Primary: e.cfg.NoneClass(), Secondary: e.cfg.NoneClass()}, nil
	}
	first, last := &segments[0], &segments[len(segments)-1]

	if date < first.sday {
		return first.classes(), nil
	}
	if date > last.eday {
		return last.classes(), nil
	}
	if s := firstWhere(segments, func(c *characterized) bool { return c.intersects }); s != nil {
		return s.classes(), nil
	}

	if e.cfg.FillSameLC {
		// Одинаковой классификацией считается совпадение основного класса
		if gap := findAdjacent(segments, followsEday); gap.found && gap.pair[0].primary == gap.pair[1].primary {
			return gap.pair[1].classes(), nil
		}
	}

	if e.cfg.FillDiffLC {
		if gap := findAdjacent(segments, followsBday); gap.found {
			return gap.pair[1].classes(), nil
		}
		if s := firstWhere(segments, func(c *characterized) bool { return c.betweenEdayBday }); s != nil {
			return s.classes(), nil
		}
	}

	return Classes{}, &ClassificationError{Coord: coord, Date: date}
}

// confidence оценивает уверенность классификации пикселя на дату date
func (e *CoverEngine) confidence(coord models.PixelCoord, segments []characterized, date int) (Confidence, error) {
	codes := e.cfg.Confidence
	both := func(code int) Confidence {
		return Confidence{Primary: float64(code), Secondary: float64(code)}
	}

	if len(segments) == 0 {
		return both(codes.NoModel), nil
	}
	first, last := &segments[0], &segments[len(segments)-1]
	gap := findAdjacent(segments, followsEday)

	switch {
	case gap.found && len(gap.pair[0].predictions) == 0:
		return both(codes.BackFill), nil
	case gap.found && len(gap.pair[1].predictions) == 0:
		return both(codes.AfterBreak), nil
	case date < first.sday:
		return both(codes.BackFill), nil
	case date > last.eday && last.chprob == 1:
		return both(codes.AfterBreak), nil
	case date > last.eday && len(last.predictions) == 0:
		return both(codes.AfterBreak), nil
	case date > last.eday:
		return both(codes.ForwardFill), nil
	}

	if s := firstWhere(segments, func(c *characterized) bool { return c.intersects }); s != nil {
		switch {
		case s.growth:
			return both(codes.Growth), nil
		case s.decline:
			return both(codes.Decline), nil
		case len(s.predictions) > 0:
			return Confidence{
				Primary:   e.scaledProbability(s.predictions, 0),
				Secondary: e.scaledProbability(s.predictions, 1),
			}, nil
		}
	}

	if gap.found {
		agree := func(same bool) float64 {
			if same {
				return float64(codes.SameClass)
			}
			return float64(codes.DifferentClass)
		}
		return Confidence{
			Primary:   agree(gap.pair[0].primary == gap.pair[1].primary),
			Secondary: agree(gap.pair[0].secondary == gap.pair[1].secondary),
		}, nil
	}

	return Confidence{}, &ConfidenceError{Coord: coord, Date: date}
}

// Change кодирует годовой переход между классами: при совпадении возвращает
// текущий класс, иначе конкатенацию кодов предыдущего и текущего (3, 4 -> 34)
func Change(current, previous int) int {
	if current == previous {
		return current
	}
	shift := 10
	for v := current; v >= 10; v /= 10 {
		shift *= 10
	}
	return previous*shift + current
}

// Landcover классифицирует пиксель на дату date
func (e *CoverEngine) Landcover(pixel models.Pixel, date int) (Classes, error) {
	segments, err := e.characterizeAll(pixel, date)
	if err != nil {
		return Classes{}, err
	}
	return e.landcover(pixel.Coord, segments, date)
}

// Confidence оценивает уверенность классификации пикселя на дату date
func (e *CoverEngine) Confidence(pixel models.Pixel, date int) (Confidence, error) {
	segments, err := e.characterizeAll(pixel, date)
	if err != nil {
		return Confidence{}, err
	}
	return e.confidence(pixel.Coord, segments, date)
}

// Compute вычисляет значения продукта cover для пикселя на дату date.
// Предыдущая классификация берется на тот же день годом ранее.
func (e *CoverEngine) Compute(pixel models.Pixel, date int) (map[string]float64, error) {
	if !ValidSegments(pixel.Segments) || !ValidPredictions(pixel.Predictions, len(e.cfg.Classes)) {
		return e.Fallback(date), nil
	}

	current, err := e.characterizeAll(pixel, date)
	if err != nil {
		return nil, err
	}
	classes, err := e.landcover(pixel.Coord, current, date)
	if err != nil {
		return nil, err
	}
	conf, err := e.confidence(pixel.Coord, current, date)
	if err != nil {
		return nil, err
	}

	previousDate := models.YearBefore(date)
	previous, err := e.characterizeAll(pixel, previousDate)
	if err != nil {
		return nil, err
	}
	previousClasses, err := e.landcover(pixel.Coord, previous, previousDate)
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		KeyLCPri:     float64(classes.Primary),
		KeyLCSec:     float64(classes.Secondary),
		KeyLCPriConf: conf.Primary,
		KeyLCSecConf: conf.Secondary,
		KeyLCAChg:    float64(Change(classes.Primary, previousClasses.Primary)),
	}, nil
}

// Fallback значения продукта cover для пикселя без корректных данных
func (e *CoverEngine) Fallback(int) map[string]float64 {
	none := float64(e.cfg.NoneClass())
	noModel := float64(e.cfg.Confidence.NoModel)
	return map[string]float64{
		KeyLCPri:     none,
		KeyLCSec:     none,
		KeyLCPriConf: noModel,
		KeyLCSecConf: noModel,
		KeyLCAChg:    none,
	}
}
