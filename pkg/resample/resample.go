// Package resample turns variable-length trajectories into fixed-length
// feature arrays for fixed-shape consumers such as a neural decoder.
package resample

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
)

type Mode int

const (
	// Discard keeps the first and last rows and samples the interior with
	// extra weight on the start and end zones.
	Discard Mode = iota
	// Truncate keeps the first rows and drops the tail.
	Truncate
	// Merge averages contiguous windows of source rows.
	Merge
)

var ErrInvalidTrajectory = errors.New("invalid trajectory")

func (m Mode) String() string {
	switch m {
	case Discard:
		return "discard"
	case Truncate:
		return "truncate"
	case Merge:
		return "merge"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps a config string to a Mode. An empty string yields the
// default (Discard); an unknown name yields Truncate.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Discard
	case "discard":
		return Discard
	case "merge":
		return Merge
	case "truncate":
		return Truncate
	default:
		log.Warnf("Unknown resampling mode %q, defaulting to truncate", s)
		return Truncate
	}
}

// Validate checks that data is non-empty, rectangular and targetLen positive.
func Validate(data [][]float32, targetLen int) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrInvalidTrajectory)
	}
	if targetLen <= 0 {
		return fmt.Errorf("%w: target length %d", ErrInvalidTrajectory, targetLen)
	}
	width := len(data[0])
	if width == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidTrajectory)
	}
	for i, row := range data {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrInvalidTrajectory, i, len(row), width)
		}
	}
	return nil
}

// Resample returns exactly targetLen rows when len(data) > targetLen, and a
// copy of data otherwise. Returned rows never alias the input.
func Resample(data [][]float32, targetLen int, mode Mode) ([][]float32, error) {
	if err := Validate(data, targetLen); err != nil {
		return nil, err
	}
	if len(data) <= targetLen {
		return copyRows(data), nil
	}

	switch mode {
	case Truncate:
		return copyRows(data[:targetLen]), nil
	case Merge:
		return merge(data, targetLen), nil
	default:
		return discard(data, targetLen), nil
	}
}

func copyRows(data [][]float32) [][]float32 {
	out := make([][]float32, len(data))
	for i, row := range data {
		out[i] = append([]float32(nil), row...)
	}
	return out
}

func discard(data [][]float32, targetLen int) [][]float32 {
	n := len(data)
	out := make([][]float32, 0, targetLen)
	out = append(out, append([]float32(nil), data[0]...))
	if targetLen == 1 {
		return out
	}
	if targetLen > 2 {
		for _, idx := range middleIndices(n, targetLen-2) {
			out = append(out, append([]float32(nil), data[idx]...))
		}
	}
	return append(out, append([]float32(nil), data[n-1]...))
}

// middleIndices picks numMiddle interior indices. The interior is split into
// start/middle/end zones of 30/40/30 percent and receives 35/30/35 percent of
// the budget.
func middleIndices(n, numMiddle int) []int {
	interior := n - 2
	idx := make([]int, 0, numMiddle)
	if interior <= numMiddle {
		for i := 1; i < n-1; i++ {
			idx = append(idx, i)
		}
		return idx
	}

	edge := int(float64(interior) * 0.3)
	startEnd := 1 + edge
	endStart := n - 1 - edge

	inStart := int(float64(numMiddle) * 0.35)
	inEnd := inStart
	inMiddle := numMiddle - inStart - inEnd

	for i := 0; i < inStart; i++ {
		idx = append(idx, 1+i*(startEnd-1)/inStart)
	}
	midSize := endStart - startEnd
	for i := 0; i < inMiddle; i++ {
		idx = append(idx, startEnd+i*midSize/inMiddle)
	}
	endSize := (n - 1) - endStart
	for i := 0; i < inEnd; i++ {
		idx = append(idx, endStart+i*endSize/inEnd)
	}
	return idx
}

func merge(data [][]float32, targetLen int) [][]float32 {
	n := len(data)
	width := len(data[0])
	factor := float64(n) / float64(targetLen)
	out := make([][]float32, targetLen)

	for t := range out {
		start := int(float64(t) * factor)
		end := int(math.Ceil(float64(t+1) * factor))
		if end > n {
			end = n
		}
		sum := make([]float64, width)
		for _, row := range data[start:end] {
			for f, v := range row {
				sum[f] += float64(v)
			}
		}
		row := make([]float32, width)
		cnt := float64(end - start)
		for f := range row {
			row[f] = float32(sum[f] / cnt)
		}
		out[t] = row
	}
	return out
}
