package resample

import (
	"errors"
	"math"
	"testing"
)

func trajectory(n, width int) [][]float32 {
	data := make([][]float32, n)
	for i := range data {
		row := make([]float32, width)
		for f := range row {
			row[f] = float32(i*10 + f)
		}
		data[i] = row
	}
	return data
}

func equalRow(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiscardKeepsEndpoints(t *testing.T) {
	data := trajectory(100, 2)
	out, err := Resample(data, 10, Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(out))
	}
	if !equalRow(out[0], data[0]) {
		t.Errorf("row 0 = %v, want %v", out[0], data[0])
	}
	if !equalRow(out[9], data[99]) {
		t.Errorf("row 9 = %v, want %v", out[9], data[99])
	}
	for i := 1; i < len(out); i++ {
		if out[i][0] <= out[i-1][0] {
			t.Errorf("rows out of order at %d: %v after %v", i, out[i], out[i-1])
		}
	}
}

func TestLengthInvariant(t *testing.T) {
	modes := []Mode{Discard, Truncate, Merge}
	for _, mode := range modes {
		for _, n := range []int{3, 17, 64, 250} {
			for _, target := range []int{1, 2, 3, 7, n} {
				if target > n {
					continue
				}
				out, err := Resample(trajectory(n, 3), target, mode)
				if err != nil {
					t.Fatalf("%s n=%d target=%d: %v", mode, n, target, err)
				}
				if len(out) != target {
					t.Errorf("%s n=%d target=%d: got %d rows", mode, n, target, len(out))
				}
				for _, row := range out {
					if len(row) != 3 {
						t.Fatalf("%s: row width %d", mode, len(row))
					}
				}
			}
		}
	}
}

func TestIdempotent(t *testing.T) {
	data := trajectory(20, 4)
	for _, mode := range []Mode{Discard, Truncate, Merge} {
		out, err := Resample(data, 20, mode)
		if err != nil {
			t.Fatal(err)
		}
		for i := range data {
			if !equalRow(out[i], data[i]) {
				t.Errorf("%s: row %d changed", mode, i)
			}
		}
		out[0][0] = -1
		if data[0][0] == -1 {
			t.Errorf("%s: output aliases input", mode)
		}
	}
}

func TestTruncate(t *testing.T) {
	data := trajectory(10, 1)
	out, _ := Resample(data, 4, Truncate)
	for i := range out {
		if !equalRow(out[i], data[i]) {
			t.Errorf("row %d = %v, want %v", i, out[i], data[i])
		}
	}
}

func TestMergeAverages(t *testing.T) {
	data := [][]float32{{0}, {2}, {4}, {6}}
	out, err := Resample(data, 2, Merge)
	if err != nil {
		t.Fatal(err)
	}
	if out[0][0] != 1 || out[1][0] != 5 {
		t.Errorf("expected [1 5], got %v", out)
	}

	out, _ = Resample(trajectory(10, 1), 3, Merge)
	// windows [0,4) [3,7) [6,10)
	want := []float64{15, 45, 75}
	for i, w := range want {
		if math.Abs(float64(out[i][0])-w) > 1e-4 {
			t.Errorf("window %d = %v, want %v", i, out[i][0], w)
		}
	}
}

func TestInvalidTrajectory(t *testing.T) {
	tests := []struct {
		name   string
		data   [][]float32
		target int
	}{
		{"empty", nil, 5},
		{"zero target", trajectory(5, 2), 0},
		{"negative target", trajectory(5, 2), -3},
		{"no features", [][]float32{{}, {}}, 1},
		{"ragged", [][]float32{{1, 2}, {3}, {4, 5}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resample(tt.data, tt.target, Discard)
			if !errors.Is(err, ErrInvalidTrajectory) {
				t.Errorf("expected ErrInvalidTrajectory, got %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":         Discard,
		"discard":  Discard,
		"MERGE":    Merge,
		"truncate": Truncate,
		"bogus":    Truncate,
	}
	for in, want := range tests {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestStats(t *testing.T) {
	s := NewStats(200, 50)
	if s.Reduction() != 75 {
		t.Errorf("expected 75%% reduction, got %d", s.Reduction())
	}
	if s.Ratio() != 4 {
		t.Errorf("expected ratio 4, got %v", s.Ratio())
	}
	if s.String() == "" {
		t.Error("empty stats string")
	}
}
