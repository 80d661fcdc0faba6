package models

import (
	"encoding/json"
	"errors"
)

// Станции: первая получает записи истории как есть, вторая через разброс
const (
	StationPrimary   = "station1"
	StationSecondary = "station2"
)

// ErrUnknownStation неизвестное имя станции
var ErrUnknownStation = errors.New("unknown station")

// ValidStation известна ли станция
func ValidStation(station string) bool {
	return station == StationPrimary || station == StationSecondary
}

// Stations все станции в порядке вывода
func Stations() []string {
	return []string{StationPrimary, StationSecondary}
}

// Имена полей записи в JSON и в строках экспорта
const (
	FieldTimestamp            = "timestamp"
	FieldHumidity             = "humidity"
	FieldTemperature          = "temperature"
	FieldAirPressure          = "airPressure"
	FieldWindSpeed            = "windSpeed"
	FieldWindAngle            = "windAngle"
	FieldRainfall             = "rainfall"
	FieldWaterTemperature     = "waterTemperature"
	FieldIrradiation          = "irradiation"
	FieldSecondaryTemperature = "secondaryTemperature"
)

// NumericFields все числовые поля записи в порядке экспорта
var NumericFields = []string{
	FieldHumidity,
	FieldTemperature,
	FieldAirPressure,
	FieldWindSpeed,
	FieldWindAngle,
	FieldRainfall,
	FieldWaterTemperature,
	FieldIrradiation,
	FieldSecondaryTemperature,
}

// Record одно синтетическое измерение микроклимата.
// Записи не изменяются после создания.
type Record struct {
	Timestamp            string  `json:"timestamp"`
	Humidity             float64 `json:"humidity"`
	Temperature          float64 `json:"temperature"`
	AirPressure          float64 `json:"airPressure"`
	WindSpeed            float64 `json:"windSpeed"`
	WindAngle            float64 `json:"windAngle"`
	Rainfall             float64 `json:"rainfall"`
	WaterTemperature     float64 `json:"waterTemperature"`
	Irradiation          float64 `json:"irradiation"`
	SecondaryTemperature float64 `json:"secondaryTemperature"`
}

// Row слабо типизированная запись: результат ресемплинга или данные из внешнего хранилища
type Row map[string]any

// Row преобразует запись в строку с теми же ключами, что и JSON
func (r Record) Row() Row {
	return Row{
		FieldTimestamp:            r.Timestamp,
		FieldHumidity:             r.Humidity,
		FieldTemperature:          r.Temperature,
		FieldAirPressure:          r.AirPressure,
		FieldWindSpeed:            r.WindSpeed,
		FieldWindAngle:            r.WindAngle,
		FieldRainfall:             r.Rainfall,
		FieldWaterTemperature:     r.WaterTemperature,
		FieldIrradiation:          r.Irradiation,
		FieldSecondaryTemperature: r.SecondaryTemperature,
	}
}

// Rows преобразует последовательность записей
func Rows(records []Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows
}

// Number возвращает числовое значение поля, если оно есть и является числом
func (r Row) Number(field string) (float64, bool) {
	v, ok := r[field]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// ToFloat приводит значение из JSON или Go-кода к float64.
// Строки не считаются числами.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Status состояние движка для внешних потребителей
type Status struct {
	RunID          string `json:"run_id"`
	Mode           string `json:"mode"`
	Streaming      bool   `json:"streaming"`
	DataPoints     int    `json:"data_points"`
	MaxHistorySize int    `json:"max_history_size"`
	Oldest         string `json:"oldest,omitempty"`
	Newest         string `json:"newest,omitempty"`
}
