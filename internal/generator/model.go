package generator

import (
	"math"
	"time"
)

// Физические границы параметров
const (
	MinTemperature = 15.0
	MaxTemperature = 40.0
	MinHumidity    = 30.0
	MaxHumidity    = 95.0
	MinPressure    = 990.0
	MaxPressure    = 1030.0
	MinWindSpeed   = 0.0
	MaxWindSpeed   = 50.0

	basePressure  = 1013.0
	baseWindSpeed = 5.0
)

// Values сырые значения параметров в один момент времени
type Values struct {
	Humidity             float64
	Temperature          float64
	AirPressure          float64
	WindSpeed            float64
	WindAngle            float64
	Rainfall             float64
	WaterTemperature     float64
	Irradiation          float64
	SecondaryTemperature float64
}

// Model модель сезонных и суточных колебаний с ограниченным шумом
type Model struct {
	src Source
}

// NewModel создает модель с заданным источником шума
func NewModel(src Source) *Model {
	return &Model{src: src}
}

// noise равномерный шум в [-span/2, span/2)
func (m *Model) noise(span float64) float64 {
	return (m.src.Float64() - 0.5) * span
}

// Sample вычисляет значения параметров для момента t.
// Порядок обращений к источнику фиксирован, что позволяет подменять его в тестах.
func (m *Model) Sample(t time.Time) Values {
	hour := float64(t.Hour())
	dayOfYear := float64(t.YearDay())

	seasonalTemp := 25 + 5*math.Sin(2*math.Pi*dayOfYear/365)
	seasonalHumidity := 70 + 15*math.Sin(2*math.Pi*dayOfYear/365+math.Pi)

	// пик температуры в 14:00, влажность в противофазе
	phase := math.Sin(math.Pi * (hour - 6) / 12)
	diurnalTemp := 8 * phase
	diurnalHumidity := 10 * math.Sin(math.Pi*(hour-6)/12+math.Pi)

	tempNoise := m.noise(4)
	humidityNoise := m.noise(8)
	pressureNoise := m.noise(20)
	windNoise := m.noise(10)
	rainChance := m.src.Float64()

	temperature := clamp(seasonalTemp+diurnalTemp+tempNoise, MinTemperature, MaxTemperature)
	humidity := clamp(seasonalHumidity+diurnalHumidity+humidityNoise, MinHumidity, MaxHumidity)
	pressure := clamp(basePressure+pressureNoise, MinPressure, MaxPressure)
	windSpeed := clamp(baseWindSpeed+math.Abs(windNoise), MinWindSpeed, MaxWindSpeed)
	windAngle := math.Floor(m.src.Float64() * 360)

	rainfall := 0.0
	switch {
	case humidity > 90 && rainChance > 0.5:
		rainfall = m.src.Float64() * 50
	case humidity > 80 && rainChance > 0.7:
		rainfall = m.src.Float64() * 20
	}
	rainfall = math.Max(0, rainfall)

	waterTemperature := temperature - 2 + m.noise(3)

	irradiationNoise := m.noise(200)
	irradiation := 0.0
	if phase > 0 {
		irradiation = math.Max(0, phase*1000+200+irradiationNoise)
	}

	secondaryTemperature := temperature + m.noise(2)

	return Values{
		Humidity:             round1(humidity),
		Temperature:          round1(temperature),
		AirPressure:          round1(pressure),
		WindSpeed:            round1(windSpeed),
		WindAngle:            windAngle,
		Rainfall:             round1(rainfall),
		WaterTemperature:     round1(waterTemperature),
		Irradiation:          round1(irradiation),
		SecondaryTemperature: round1(secondaryTemperature),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
