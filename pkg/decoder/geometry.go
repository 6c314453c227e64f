package decoder

import (
	"math"
	"unicode"

	"github.com/bastiangx/swipeserve/pkg/gesture"
)

// PathLength is the summed distance between consecutive points.
func PathLength(path []gesture.Point) float32 {
	var length float32
	for i := 1; i < len(path); i++ {
		length += gesture.Distance(path[i-1], path[i])
	}
	return length
}

// Smooth applies a centered moving average of the given window width.
// Paths no longer than the window are returned as a copy.
func Smooth(path []gesture.Point, window int) []gesture.Point {
	out := make([]gesture.Point, len(path))
	if len(path) <= window || window <= 1 {
		copy(out, path)
		return out
	}
	half := window / 2
	for i := range path {
		start := max(0, i-half)
		end := min(len(path), i+half+1)
		var sx, sy float64
		for _, p := range path[start:end] {
			sx += float64(p.X)
			sy += float64(p.Y)
		}
		n := float64(end - start)
		out[i] = gesture.Point{X: float32(sx / n), Y: float32(sy / n)}
	}
	return out
}

// AverageCurvature is the mean absolute turning angle in radians over the
// interior points.
func AverageCurvature(path []gesture.Point) float32 {
	if len(path) < 3 {
		return 0
	}
	var total float64
	for i := 1; i < len(path)-1; i++ {
		prev, cur, next := path[i-1], path[i], path[i+1]
		a1 := math.Atan2(float64(cur.Y-prev.Y), float64(cur.X-prev.X))
		a2 := math.Atan2(float64(next.Y-cur.Y), float64(next.X-cur.X))
		diff := math.Abs(a2 - a1)
		if diff > math.Pi {
			diff = 2*math.Pi - diff
		}
		total += diff
	}
	return float32(total / float64(len(path)-2))
}

// pathLikelihood scores how well path fits word: the path is split into
// len(word) equal segments and each segment is scored against its letter's
// key with a Gaussian kernel. Letters without a key contribute zero.
func pathLikelihood(word []rune, path []gesture.Point, keys map[rune]gesture.Point, sigma float32) float32 {
	if len(word) == 0 || len(path) == 0 {
		return 0
	}
	n, l := len(path), len(word)
	twoSigmaSq := 2 * float64(sigma) * float64(sigma)

	var total float64
	for i, r := range word {
		center, ok := keys[unicode.ToLower(r)]
		if !ok {
			continue
		}
		start := i * n / l
		end := (i + 1) * n / l
		if end <= start {
			end = start + 1
		}
		var seg float64
		for _, p := range path[start:end] {
			d := float64(gesture.Distance(p, center))
			seg += math.Exp(-d * d / twoSigmaSq)
		}
		total += seg / float64(end-start)
	}
	return float32(total / float64(l))
}

// ExtractKeySequence walks the path and records the nearest key within radius
// at each point, dropping consecutive repeats.
func ExtractKeySequence(path []gesture.Point, keys map[rune]gesture.Point, radius float32) gesture.KeySequence {
	var seq gesture.KeySequence
	last := rune(-1)
	for _, p := range path {
		r, ok := nearestKey(p, keys, radius)
		if ok && r != last {
			seq = append(seq, r)
			last = r
		}
	}
	return seq
}

func nearestKey(p gesture.Point, keys map[rune]gesture.Point, radius float32) (rune, bool) {
	best := rune(-1)
	bestDist := float32(math.MaxFloat32)
	for r, c := range keys {
		d := gesture.Distance(p, c)
		if d > radius {
			continue
		}
		if d < bestDist || (d == bestDist && r < best) {
			best, bestDist = r, d
		}
	}
	return best, best >= 0
}
