package gesture

import "math"

// Loop is a closed sub-path that circles a single key, which is how a
// repeated letter such as the "ll" in "hello" gets drawn.
type Loop struct {
	Start, End int // indices into the path
	Center     Point
	KeyIndex   int // index into the touched keys
}

const minLoopPath = 10

// EnhancedSequence returns the key sequence with letters duplicated where a
// loop was drawn over their key.
func (s *Session) EnhancedSequence() KeySequence {
	base := s.Keys()
	if len(base) == 0 || len(s.points) < minLoopPath {
		return base
	}
	loops := s.DetectLoops()
	if len(loops) == 0 {
		return base
	}

	dup := make(map[int]bool, len(loops))
	for _, l := range loops {
		dup[l.KeyIndex] = true
	}
	out := make(KeySequence, 0, len(base)+len(dup))
	for i, r := range base {
		out = append(out, r)
		if dup[i] {
			out = append(out, r)
		}
	}
	return out
}

func (s *Session) DetectLoops() []Loop {
	var loops []Loop
	pts := s.points
	n := len(pts)
	for i := 0; i+1 < n; i++ {
		maxJ := i + s.loopSpan
		if maxJ > n-2 {
			maxJ = n - 2
		}
		for j := i + 2; j <= maxJ; j++ {
			hit, ok := intersect(pts[i].Point(), pts[i+1].Point(), pts[j].Point(), pts[j+1].Point())
			if !ok {
				continue
			}
			l, ok := s.loopAt(i, j, hit)
			if !ok {
				continue
			}
			loops = append(loops, l)
			i = j
			break
		}
	}
	return loops
}

func (s *Session) loopAt(i, j int, hit Point) (Loop, bool) {
	minX, minY := hit.X, hit.Y
	maxX, maxY := hit.X, hit.Y
	sumX, sumY := hit.X, hit.Y
	for _, p := range s.points[i+1 : j+1] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
		sumX += p.X
		sumY += p.Y
	}
	if maxX-minX > 1.5*s.keyW || maxY-minY > 1.5*s.keyH {
		return Loop{}, false
	}
	cnt := float32(j-i) + 1
	center := Point{X: sumX / cnt, Y: sumY / cnt}

	reach := max(s.keyW, s.keyH)
	best, bestD := -1, float32(math.MaxFloat32)
	for k, key := range s.touched {
		d := Distance(center, key.Center)
		if d < bestD && d <= reach {
			best, bestD = k, d
		}
	}
	if best < 0 {
		return Loop{}, false
	}
	return Loop{Start: i + 1, End: j, Center: center, KeyIndex: best}, true
}

// intersect reports a proper crossing of segments ab and cd.
func intersect(a, b, c, d Point) (Point, bool) {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	if !((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) {
		return Point{}, false
	}
	if !((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return Point{}, false
	}
	t := d1 / (d1 - d2)
	return Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}, true
}

func orient(a, b, c Point) float32 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
