package gesture

import (
	"github.com/charmbracelet/log"
)

type Config struct {
	DebounceMs     int64
	MediumWindowMs int64
	FullDistance   float32
	MediumDistance float32
	PointSpacing   float32
	KeyTravel      float32
	MaxVelocity    float32 // px/ms
	MinDwellMs     int64
	RecentKeys     int
	DeviceScale    float32
	LoopRepair     bool
}

func DefaultConfig() Config {
	return Config{
		DebounceMs:     150,
		MediumWindowMs: 200,
		FullDistance:   50,
		MediumDistance: 35,
		PointSpacing:   25,
		KeyTravel:      35,
		MaxVelocity:    0.15,
		MinDwellMs:     30,
		RecentKeys:     3,
		DeviceScale:    1,
		LoopRepair:     true,
	}
}

// Session accumulates one touch-down to touch-up cycle.
// It is not safe for concurrent use.
type Session struct {
	cfg Config

	points     []TouchPoint
	touched    []KeySpec
	total      float32
	sinceKey   float32
	lastKey    *KeySpec
	isSwipe    bool
	isMedium   bool
	active     bool
	keyW, keyH float32
	loopSpan   int
}

func NewSession(cfg Config) *Session {
	if cfg.DeviceScale <= 0 {
		cfg.DeviceScale = 1
	}
	if cfg.RecentKeys <= 0 {
		cfg.RecentKeys = 3
	}
	return &Session{
		cfg:      cfg,
		keyW:     100,
		keyH:     80,
		loopSpan: 12,
	}
}

// SetKeyDimensions sets the key footprint used by loop repair.
func (s *Session) SetKeyDimensions(width, height float32) {
	if width > 0 {
		s.keyW = width
	}
	if height > 0 {
		s.keyH = height
	}
}

func (s *Session) scaled(v float32) float32 {
	return v * s.cfg.DeviceScale
}

func (s *Session) Begin(p TouchPoint, key *KeySpec) {
	s.Reset()
	s.active = true
	s.points = append(s.points, p)
	if key != nil && key.IsAlpha() {
		k := *key
		s.touched = append(s.touched, k)
		s.lastKey = &k
	}
}

// AddPoint feeds one touch-move sample. It reports whether the point was admitted.
func (s *Session) AddPoint(p TouchPoint, key *KeySpec) bool {
	if !s.active || len(s.points) == 0 {
		return false
	}

	last := s.points[len(s.points)-1]
	d := Distance(last.Point(), p.Point())
	if d < s.scaled(s.cfg.PointSpacing) && len(s.points) > 1 {
		return false
	}

	s.total += d
	s.sinceKey += d
	s.points = append(s.points, p)

	dt := p.T - last.T
	var velocity float32
	if dt > 0 {
		velocity = d / float32(dt)
	}

	if key != nil && s.admitKey(*key, velocity, dt) {
		k := *key
		s.touched = append(s.touched, k)
		s.lastKey = &k
		s.sinceKey = 0
	}

	s.classify(p.T-s.points[0].T, s.cfg.MediumWindowMs)
	return true
}

func (s *Session) admitKey(key KeySpec, velocity float32, dt int64) bool {
	if !key.IsAlpha() {
		return false
	}
	if s.lastKey != nil && s.lastKey.Char == key.Char {
		return false
	}
	if velocity > s.cfg.MaxVelocity && dt < s.cfg.MinDwellMs {
		return false
	}
	start := len(s.touched) - s.cfg.RecentKeys
	if start < 0 {
		start = 0
	}
	for _, k := range s.touched[start:] {
		if k.Char == key.Char {
			return false
		}
	}
	return len(s.touched) == 0 || s.sinceKey > s.scaled(s.cfg.KeyTravel)
}

// classify only ever promotes: non-swipe to medium, medium to full.
func (s *Session) classify(elapsed, mediumWindow int64) {
	if s.isSwipe || elapsed <= s.cfg.DebounceMs {
		return
	}
	if s.total > s.scaled(s.cfg.FullDistance) {
		if len(s.touched) >= 2 {
			s.isSwipe = true
			s.isMedium = false
		}
		return
	}
	if !s.isMedium && elapsed > mediumWindow &&
		s.total > s.scaled(s.cfg.MediumDistance) && len(s.touched) == 2 {
		s.isMedium = true
	}
}

// End closes the session and returns the key sequence when the gesture
// qualified as a swipe. A final classification pass runs at touch-up so a
// medium swipe released after the debounce window still counts.
func (s *Session) End() (KeySequence, bool) {
	if !s.active {
		return nil, false
	}
	s.active = false
	last := s.points[len(s.points)-1]
	s.classify(last.T-s.points[0].T, s.cfg.DebounceMs)

	log.Debugf("gesture end: points=%d keys=%q dist=%.1f swipe=%t medium=%t",
		len(s.points), s.Keys().String(), s.total, s.isSwipe, s.isMedium)

	switch {
	case s.isSwipe && len(s.touched) >= 2:
	case s.isMedium && len(s.touched) == 2:
	default:
		return nil, false
	}
	if s.cfg.LoopRepair {
		return s.EnhancedSequence(), true
	}
	return s.Keys(), true
}

func (s *Session) Reset() {
	s.points = s.points[:0]
	s.touched = s.touched[:0]
	s.total = 0
	s.sinceKey = 0
	s.lastKey = nil
	s.isSwipe = false
	s.isMedium = false
	s.active = false
}

func (s *Session) Keys() KeySequence {
	seq := make(KeySequence, 0, len(s.touched))
	for _, k := range s.touched {
		seq = append(seq, k.Char)
	}
	return seq
}

func (s *Session) TouchedKeys() []KeySpec {
	out := make([]KeySpec, len(s.touched))
	copy(out, s.touched)
	return out
}

func (s *Session) Path() []TouchPoint {
	out := make([]TouchPoint, len(s.points))
	copy(out, s.points)
	return out
}

func (s *Session) Len() int               { return len(s.points) }
func (s *Session) TotalDistance() float32 { return s.total }
func (s *Session) IsSwipe() bool          { return s.isSwipe }
func (s *Session) IsMediumSwipe() bool    { return s.isMedium }
func (s *Session) Active() bool           { return s.active }
