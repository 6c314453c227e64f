// Package layout provides keyboard geometry: key centers keyed by character
// and hit testing, plus synthetic swipe traces used by the debug CLI.
package layout

import (
	"math"

	"github.com/bastiangx/swipeserve/pkg/gesture"
)

var qwertyRows = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}

// rowOffsets are the horizontal row indents in key widths.
var qwertyOffsets = []float32{0, 0.5, 1.5}

// Layout maps characters to key centers. It is immutable after construction.
type Layout struct {
	keys      map[rune]gesture.Point
	keyWidth  float32
	keyHeight float32
}

// New builds a layout from explicit key centers.
func New(positions map[rune]gesture.Point, keyWidth, keyHeight float32) *Layout {
	keys := make(map[rune]gesture.Point, len(positions))
	for r, p := range positions {
		keys[r] = p
	}
	return &Layout{keys: keys, keyWidth: keyWidth, keyHeight: keyHeight}
}

// QWERTY builds the three letter rows of a QWERTY keyboard with the given key size.
func QWERTY(keyWidth, keyHeight float32) *Layout {
	keys := make(map[rune]gesture.Point, 26)
	for row, letters := range qwertyRows {
		for col, r := range letters {
			keys[r] = gesture.Point{
				X: (qwertyOffsets[row] + float32(col) + 0.5) * keyWidth,
				Y: (float32(row) + 0.5) * keyHeight,
			}
		}
	}
	return &Layout{keys: keys, keyWidth: keyWidth, keyHeight: keyHeight}
}

func (l *Layout) KeyWidth() float32  { return l.keyWidth }
func (l *Layout) KeyHeight() float32 { return l.keyHeight }
func (l *Layout) Len() int           { return len(l.keys) }

// Positions returns a copy of the character to center mapping.
func (l *Layout) Positions() map[rune]gesture.Point {
	out := make(map[rune]gesture.Point, len(l.keys))
	for r, p := range l.keys {
		out[r] = p
	}
	return out
}

func (l *Layout) Center(r rune) (gesture.Point, bool) {
	p, ok := l.keys[r]
	return p, ok
}

// KeyAt returns the key whose hit box contains p, or nil.
func (l *Layout) KeyAt(p gesture.Point) *gesture.KeySpec {
	halfW, halfH := l.keyWidth/2, l.keyHeight/2
	var best *gesture.KeySpec
	bestDist := float32(math.MaxFloat32)
	for r, c := range l.keys {
		if abs(p.X-c.X) > halfW || abs(p.Y-c.Y) > halfH {
			continue
		}
		if d := gesture.Distance(p, c); d < bestDist || (d == bestDist && best != nil && r < best.Char) {
			bestDist = d
			best = &gesture.KeySpec{Char: r, Center: c}
		}
	}
	return best
}

// Trace synthesizes a swipe over word's letters: straight segments between
// consecutive key centers sampled every step pixels, dt milliseconds apart,
// starting at t=0. Letters missing from the layout are skipped and repeated
// letters collapse into one visit.
func (l *Layout) Trace(word string, step float32, dt int64) []gesture.TouchPoint {
	if step <= 0 {
		step = l.keyWidth / 4
	}
	var centers []gesture.Point
	for _, r := range word {
		c, ok := l.keys[r]
		if !ok {
			continue
		}
		if n := len(centers); n > 0 && centers[n-1] == c {
			continue
		}
		centers = append(centers, c)
	}
	if len(centers) == 0 {
		return nil
	}

	var t int64
	points := []gesture.TouchPoint{{X: centers[0].X, Y: centers[0].Y, T: t}}
	for i := 1; i < len(centers); i++ {
		a, b := centers[i-1], centers[i]
		d := gesture.Distance(a, b)
		n := max(1, int(math.Ceil(float64(d/step))))
		for j := 1; j <= n; j++ {
			f := float32(j) / float32(n)
			t += dt
			points = append(points, gesture.TouchPoint{
				X: a.X + (b.X-a.X)*f,
				Y: a.Y + (b.Y-a.Y)*f,
				T: t,
			})
		}
	}
	return points
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
