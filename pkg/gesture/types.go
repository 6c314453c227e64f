package gesture

import (
	"math"
	"strings"
	"unicode"
)

type Point struct {
	X, Y float32
}

// TouchPoint is one sampled touch location. T is a monotonic timestamp in milliseconds.
type TouchPoint struct {
	X, Y float32
	T    int64
}

func (p TouchPoint) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// KeySpec identifies a key by its character and screen-space center.
type KeySpec struct {
	Char   rune
	Center Point
}

func (k KeySpec) IsAlpha() bool {
	return unicode.IsLetter(k.Char)
}

type KeySequence []rune

func (s KeySequence) String() string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(r)
	}
	return b.String()
}

func Distance(a, b Point) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}
