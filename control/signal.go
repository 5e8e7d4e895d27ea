package control

import "sync"

// Signal is one named, possibly multi-dimensional value flowing between
// blocks in a Loop, timestamped per sample so a block can compute a
// derivative/integral against real elapsed time rather than assumed ticks.
type Signal struct {
	name      string
	signal    []float64
	time      []int
	dimension int
	mu        *sync.Mutex
}

// NewSignal constructs a zero-valued Signal, exported for callers outside
// this package that drive a Block directly (e.g. localctrl's stopping
// profile) rather than through a configured Loop.
func NewSignal(name string, dimension int) Signal {
	return makeSignal(name, dimension)
}

func makeSignal(name string, dimension int) Signal {
	return Signal{
		name:      name,
		signal:    make([]float64, dimension),
		time:      make([]int, dimension),
		dimension: dimension,
		mu:        &sync.Mutex{},
	}
}

// Name returns the signal's name, matching the DependsOn entry that feeds it.
func (s Signal) Name() string { return s.name }

// GetSignalValueAt returns dimension i's current value.
func (s Signal) GetSignalValueAt(i int) float64 {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.signal[i]
}

// SetSignalValueAt sets dimension i's current value.
func (s *Signal) SetSignalValueAt(i int, v float64) {
	if s.mu != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	s.signal[i] = v
}
