package generator

import (
	"math/rand/v2"
	"sync"
)

// Source источник равномерно распределенных чисел в [0,1)
type Source interface {
	Float64() float64
}

// lockedSource потокобезопасная обертка над math/rand/v2
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSource создает источник шума с заданным seed
func NewRandSource(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 возвращает следующее значение
func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
