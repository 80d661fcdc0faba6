package timecodec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout канонический текстовый формат метки времени: DD-MM-YY HH:mm:ss
const Layout = "02-01-06 15:04:05"

const (
	isoLayout       = "2006-01-02T15:04:05"
	isoMinuteLayout = "2006-01-02T15:04"
)

// ErrInvalidTimestamp строка не распознана ни одним из поддерживаемых форматов
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// nativeLayouts ISO-подобные форматы, которые пробуются первыми при терпимом разборе
var nativeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	isoLayout,
	isoMinuteLayout,
	"2006-01-02",
}

// Codec форматирует и разбирает метки времени в заданной временной зоне
type Codec struct {
	loc *time.Location
}

// New создает кодек; nil означает time.Local
func New(loc *time.Location) *Codec {
	if loc == nil {
		loc = time.Local
	}
	return &Codec{loc: loc}
}

// Location возвращает зону, по календарю которой форматируются метки
func (c *Codec) Location() *time.Location {
	return c.loc
}

// Format форматирует момент времени в DD-MM-YY HH:mm:ss
func (c *Codec) Format(t time.Time) string {
	return t.In(c.loc).Format(Layout)
}

// ParseStrict разбирает строку, полученную из Format, а также DD-MM-YY HH:mm.
// Двузначный год дополняется до 20YY.
func (c *Codec) ParseStrict(s string) (time.Time, error) {
	datePart, timePart, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || datePart == "" || timePart == "" {
		return time.Time{}, fmt.Errorf("%w: %q: expected date and time separated by space", ErrInvalidTimestamp, s)
	}

	parts := strings.Split(datePart, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q: expected DD-MM-YY date", ErrInvalidTimestamp, s)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: day: %v", ErrInvalidTimestamp, s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: month: %v", ErrInvalidTimestamp, s, err)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: year: %v", ErrInvalidTimestamp, s, err)
	}
	if year < 100 {
		year += 2000
	}

	iso := fmt.Sprintf("%04d-%02d-%02dT%s", year, month, day, strings.TrimSpace(timePart))
	t, err := time.ParseInLocation(isoLayout, iso, c.loc)
	if err != nil {
		// секунды необязательны: HH:mm
		if short, errShort := time.ParseInLocation(isoMinuteLayout, iso, c.loc); errShort == nil {
			return short, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTimestamp, s, err)
	}
	return t, nil
}

// ParseTolerant пробует по очереди: ISO-форматы, строгий формат DD-MM-YY HH:mm:ss,
// замену пробела на 'T' с повторной попыткой ISO. false означает нераспознанную строку.
func (c *Codec) ParseTolerant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := c.parseNative(s); ok {
		return t, true
	}

	if strings.Contains(s, " ") && strings.Contains(s, "-") {
		if t, err := c.ParseStrict(s); err == nil {
			return t, true
		}
	}

	if t, ok := c.parseNative(strings.Replace(s, " ", "T", 1)); ok {
		return t, true
	}

	return time.Time{}, false
}

// ParseValue терпимо разбирает значение поля timestamp из слабо типизированной записи
func (c *Codec) ParseValue(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case string:
		return c.ParseTolerant(ts)
	case time.Time:
		return ts, !ts.IsZero()
	default:
		return time.Time{}, false
	}
}

func (c *Codec) parseNative(s string) (time.Time, bool) {
	for _, layout := range nativeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
