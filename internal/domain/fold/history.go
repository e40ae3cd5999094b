package fold

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// AngleStats summarises recent hinge readings
type AngleStats struct {
	Samples int     `json:"samples"`
	Latest  float64 `json:"latest"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// AngleHistory is a fixed-size ring of recent angles
type AngleHistory struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewAngleHistory creates a ring holding size samples
func NewAngleHistory(size int) *AngleHistory {
	if size < 1 {
		size = 1
	}
	return &AngleHistory{samples: make([]float64, size)}
}

// Add records a reading
func (h *AngleHistory) Add(angle float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples[h.next] = angle
	h.next = (h.next + 1) % len(h.samples)
	if h.next == 0 {
		h.full = true
	}
}

// Stats returns summary statistics over the ring
func (h *AngleHistory) Stats() AngleStats {
	h.mu.Lock()
	n := h.next
	if h.full {
		n = len(h.samples)
	}
	data := make([]float64, n)
	copy(data, h.samples[:n])
	var latest float64
	if n > 0 {
		latest = h.samples[(h.next-1+len(h.samples))%len(h.samples)]
	}
	h.mu.Unlock()

	if n == 0 {
		return AngleStats{}
	}

	out := AngleStats{Samples: n, Latest: latest, Min: data[0], Max: data[0]}
	out.Mean = stat.Mean(data, nil)
	if n > 1 {
		out.StdDev = stat.StdDev(data, nil)
	}
	for _, v := range data[1:] {
		if v < out.Min {
			out.Min = v
		}
		if v > out.Max {
			out.Max = v
		}
	}
	return out
}
