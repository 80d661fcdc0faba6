package generator

import (
	"math"

	"microclimate-engine/internal/models"
)

const (
	minWaterTemperature = 15.0
	maxWaterTemperature = 35.0
)

// VaryStation возвращает показания соседней станции: та же запись с дополнительным
// ограниченным разбросом. Исходная запись не изменяется.
func VaryStation(r models.Record, src Source) models.Record {
	jitter := func(span float64) float64 {
		return (src.Float64() - 0.5) * span
	}

	out := r
	out.Humidity = round1(clamp(r.Humidity+jitter(5), MinHumidity, MaxHumidity))
	out.Temperature = round1(clamp(r.Temperature+jitter(2), MinTemperature, MaxTemperature))
	out.AirPressure = round1(clamp(r.AirPressure+jitter(10), MinPressure, MaxPressure))
	out.WindSpeed = round1(clamp(r.WindSpeed+jitter(3), MinWindSpeed, MaxWindSpeed))
	out.Rainfall = round1(math.Max(0, r.Rainfall+jitter(2)))
	out.WindAngle = math.Mod(r.WindAngle+math.Floor(src.Float64()*60-30)+360, 360)
	out.WaterTemperature = round1(clamp(r.WaterTemperature+jitter(1.5), minWaterTemperature, maxWaterTemperature))
	out.Irradiation = round1(math.Max(0, r.Irradiation+jitter(100)))
	out.SecondaryTemperature = round1(clamp(r.SecondaryTemperature+jitter(1.5), MinTemperature, MaxTemperature))
	return out
}

// VaryStations применяет VaryStation к последовательности
func VaryStations(records []models.Record, src Source) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		out = append(out, VaryStation(r, src))
	}
	return out
}
