package resample

import "fmt"

type Stats struct {
	Original  int
	Resampled int
}

func NewStats(original, resampled int) Stats {
	return Stats{Original: original, Resampled: resampled}
}

// Reduction is the percentage of rows removed.
func (s Stats) Reduction() int {
	if s.Original == 0 {
		return 0
	}
	return int(float64(s.Original-s.Resampled) / float64(s.Original) * 100)
}

func (s Stats) Ratio() float64 {
	if s.Resampled == 0 {
		return 0
	}
	return float64(s.Original) / float64(s.Resampled)
}

func (s Stats) String() string {
	return fmt.Sprintf("resample: %d -> %d points (-%d%%, %.2f:1)",
		s.Original, s.Resampled, s.Reduction(), s.Ratio())
}
