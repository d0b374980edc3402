package client

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"ccdc-products-go/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// bandPrefixes префиксы полей спектральных каналов в ответе сервиса
var bandPrefixes = [...]string{"bl", "gr", "re", "ni", "s1", "s2", "th"}

// UpstreamClient клиент сервиса результатов CCDC
type UpstreamClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewUpstreamClient создает новый клиент сервиса результатов
func NewUpstreamClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *UpstreamClient {
	return &UpstreamClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GroupedSegments загружает сегменты чипа и группирует их по пикселю
func (c *UpstreamClient) GroupedSegments(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Segment, error) {
	body, err := c.get(ctx, "/segments", chipQuery(cx, cy))
	if err != nil {
		return nil, err
	}

	grouped := make(map[models.PixelCoord][]models.Segment)
	var parseErr error
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		s, err := parseSegment(item)
		if err != nil {
			parseErr = err
			return false
		}
		coord := pixelCoord(item)
		grouped[coord] = append(grouped[coord], s)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	for coord, segments := range grouped {
		sort.SliceStable(segments, func(i, j int) bool { return segments[i].Sday < segments[j].Sday })
		grouped[coord] = segments
	}

	c.logger.Debugf("Получены сегменты чипа (%d, %d): %d пикселей", cx, cy, len(grouped))
	return grouped, nil
}

// GroupedPredictions загружает предсказания чипа и группирует их по пикселю
func (c *UpstreamClient) GroupedPredictions(ctx context.Context, cx, cy int64) (map[models.PixelCoord][]models.Prediction, error) {
	body, err := c.get(ctx, "/predictions", chipQuery(cx, cy))
	if err != nil {
		return nil, err
	}

	grouped := make(map[models.PixelCoord][]models.Prediction)
	var parseErr error
	gjson.ParseBytes(body).ForEach(func(_, item gjson.Result) bool {
		p := models.Prediction{}
		if p.Sday, parseErr = dayOf(item.Get("sday")); parseErr != nil {
			return false
		}
		if p.Pday, parseErr = dayOf(item.Get("pday")); parseErr != nil {
			return false
		}
		for _, v := range item.Get("prob").Array() {
			p.Prob = append(p.Prob, numberOf(v))
		}
		coord := pixelCoord(item)
		grouped[coord] = append(grouped[coord], p)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	c.logger.Debugf("Получены предсказания чипа (%d, %d): %d пикселей", cx, cy, len(grouped))
	return grouped, nil
}

// CheckHealth проверяет состояние сервиса результатов
func (c *UpstreamClient) CheckHealth(ctx context.Context) error {
	c.logger.Debug("Проверка здоровья сервиса результатов")

	body, err := c.get(ctx, "/health", nil)
	if err != nil {
		return err
	}
	if status := gjson.GetBytes(body, "status"); status.Exists() && status.String() != "healthy" && status.String() != "ok" {
		return fmt.Errorf("сервис результатов нездоров: статус %s", status.String())
	}
	return nil
}

func (c *UpstreamClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания HTTP запроса: %w", err)
	}

	c.logger.Debugf("Отправка GET запроса на %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка отправки HTTP запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервис результатов вернул ошибку: статус %d, тело: %s", resp.StatusCode, string(body))
	}
	if path != "/health" && !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("некорректный JSON в ответе %s", path)
	}
	return body, nil
}

func chipQuery(cx, cy int64) url.Values {
	return url.Values{
		"cx": {strconv.FormatInt(cx, 10)},
		"cy": {strconv.FormatInt(cy, 10)},
	}
}

func pixelCoord(item gjson.Result) models.PixelCoord {
	return models.PixelCoord{X: item.Get("px").Int(), Y: item.Get("py").Int()}
}

func parseSegment(item gjson.Result) (models.Segment, error) {
	var s models.Segment
	var err error
	if s.Sday, err = dayOf(item.Get("sday")); err != nil {
		return s, err
	}
	if s.Eday, err = dayOf(item.Get("eday")); err != nil {
		return s, err
	}
	if s.Bday, err = dayOf(item.Get("bday")); err != nil {
		return s, err
	}
	s.Chprob = numberOf(item.Get("chprob"))
	s.Curqa = numberOf(item.Get("curqa"))

	bands := [...]*models.Band{&s.Blue, &s.Green, &s.Red, &s.NIR, &s.SWIR1, &s.SWIR2, &s.Thermal}
	for i, prefix := range bandPrefixes {
		b := bands[i]
		b.Intercept = numberOf(item.Get(prefix + "int"))
		b.Magnitude = numberOf(item.Get(prefix + "mag"))
		for _, v := range item.Get(prefix + "coef").Array() {
			b.Coefficients = append(b.Coefficients, numberOf(v))
		}
	}
	return s, nil
}

// dayOf принимает ординальный день или дату YYYY-MM-DD.
// Отсутствующее поле дает 0, такой сегмент отклоняется валидатором.
func dayOf(r gjson.Result) (int, error) {
	switch r.Type {
	case gjson.Number:
		return int(r.Int()), nil
	case gjson.String:
		day, err := models.ParseOrdinal(r.String())
		if err != nil {
			return 0, fmt.Errorf("некорректная дата %q: %w", r.String(), err)
		}
		return day, nil
	default:
		return 0, nil
	}
}

// numberOf возвращает NaN для отсутствующего или нечислового поля
func numberOf(r gjson.Result) float64 {
	if r.Type != gjson.Number {
		return math.NaN()
	}
	return r.Float()
}
