package core

import (
	"sync"
	"sync/atomic"
	"time"
)

const AVG_COUNT uint8 = 30

/** @brief Counters describing the activity of the resource pipeline. */
type Metrics struct {
	loads       atomic.Uint64
	saves       atomic.Uint64
	conversions atomic.Uint64
	failures    atomic.Uint64
	reloads     atomic.Uint64

	mutex           sync.Mutex
	tickAVGCounter  uint8
	tickTimes       [AVG_COUNT]float64
	tickAVG         float64
	initializations map[string]time.Duration
}

/** @brief A point in time copy of the pipeline counters. */
type MetricsSnapshot struct {
	Loads           uint64            `json:"loads"`
	Saves           uint64            `json:"saves"`
	Conversions     uint64            `json:"conversions"`
	Failures        uint64            `json:"failures"`
	Reloads         uint64            `json:"reloads"`
	TickMS          float64           `json:"tick_ms"`
	Initializations map[string]string `json:"initializations"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		initializations: make(map[string]time.Duration),
	}
}

func (m *Metrics) AddLoad()       { m.loads.Add(1) }
func (m *Metrics) AddSave()       { m.saves.Add(1) }
func (m *Metrics) AddConversion() { m.conversions.Add(1) }
func (m *Metrics) AddFailure()    { m.failures.Add(1) }
func (m *Metrics) AddReload()     { m.reloads.Add(1) }

func (m *Metrics) Loads() uint64   { return m.loads.Load() }
func (m *Metrics) Saves() uint64   { return m.saves.Load() }
func (m *Metrics) Reloads() uint64 { return m.reloads.Load() }

// RecordInitialization stores how long the named loader took to scan its directories.
func (m *Metrics) RecordInitialization(name string, elapsed time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.initializations[name] = elapsed
}

// Update feeds the duration of one engine tick into the running average.
func (m *Metrics) Update(tickElapsedTime float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tickMS := tickElapsedTime * 1000.0
	m.tickTimes[m.tickAVGCounter] = tickMS
	if m.tickAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.tickTimes[i]
		}
		m.tickAVG = sum / float64(AVG_COUNT)
	}
	m.tickAVGCounter++
	m.tickAVGCounter %= AVG_COUNT
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	inits := make(map[string]string, len(m.initializations))
	for k, v := range m.initializations {
		inits[k] = v.String()
	}
	return MetricsSnapshot{
		Loads:           m.loads.Load(),
		Saves:           m.saves.Load(),
		Conversions:     m.conversions.Load(),
		Failures:        m.failures.Load(),
		Reloads:         m.reloads.Load(),
		TickMS:          m.tickAVG,
		Initializations: inits,
	}
}
