package models

import (
	"fmt"
	"time"
)

// DateLayout формат дат запросов и путей хранилища
const DateLayout = "2006-01-02"

// ordinalUnixEpoch ординальный номер дня 1970-01-01 (0001-01-01 имеет номер 1)
const ordinalUnixEpoch = 719163

const secondsPerDay = 24 * 60 * 60

// Ordinal возвращает ординальный номер календарного дня t
func Ordinal(t time.Time) int {
	y, m, d := t.Date()
	unix := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	return int(unix/secondsPerDay) + ordinalUnixEpoch
}

// FromOrdinal возвращает дату (UTC) по ординальному номеру дня
func FromOrdinal(ordinal int) time.Time {
	return time.Unix(int64(ordinal-ordinalUnixEpoch)*secondsPerDay, 0).UTC()
}

// ParseOrdinal разбирает дату в формате YYYY-MM-DD в ординальный номер
func ParseOrdinal(value string) (int, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return Ordinal(t), nil
}

// FormatOrdinal форматирует ординальный номер дня как YYYY-MM-DD
func FormatOrdinal(ordinal int) string {
	return FromOrdinal(ordinal).Format(DateLayout)
}

// YearOf возвращает календарный год ординального дня
func YearOf(ordinal int) int {
	return FromOrdinal(ordinal).Year()
}

// DayOfYear возвращает номер дня в году для ординального дня
func DayOfYear(ordinal int) int {
	return FromOrdinal(ordinal).YearDay()
}

// YearBefore возвращает тот же календарный день годом ранее
func YearBefore(ordinal int) int {
	return Ordinal(FromOrdinal(ordinal).AddDate(-1, 0, 0))
}
