package generator

import (
	"time"

	"microclimate-engine/internal/models"
	"microclimate-engine/internal/timecodec"
)

// Synthesizer собирает готовую запись из значений модели
type Synthesizer struct {
	model *Model
	codec *timecodec.Codec
}

// NewSynthesizer создает синтезатор записей
func NewSynthesizer(src Source, codec *timecodec.Codec) *Synthesizer {
	return &Synthesizer{
		model: NewModel(src),
		codec: codec,
	}
}

// Synthesize создает запись для момента t
func (s *Synthesizer) Synthesize(t time.Time) models.Record {
	v := s.model.Sample(t.In(s.codec.Location()))

	return models.Record{
		Timestamp:            s.codec.Format(t),
		Humidity:             v.Humidity,
		Temperature:          v.Temperature,
		AirPressure:          v.AirPressure,
		WindSpeed:            v.WindSpeed,
		WindAngle:            v.WindAngle,
		Rainfall:             v.Rainfall,
		WaterTemperature:     v.WaterTemperature,
		Irradiation:          v.Irradiation,
		SecondaryTemperature: v.SecondaryTemperature,
	}
}
