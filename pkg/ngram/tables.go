package ngram

// Tables holds character n-gram probabilities. Keys are lowercase.
type Tables struct {
	Unigram map[string]float32
	Bigram  map[string]float32
	Trigram map[string]float32
	Start   map[rune]float32
	End     map[rune]float32
}

func NewTables() *Tables {
	return &Tables{
		Unigram: make(map[string]float32),
		Bigram:  make(map[string]float32),
		Trigram: make(map[string]float32),
		Start:   make(map[rune]float32),
		End:     make(map[rune]float32),
	}
}

// EnglishTables returns the built-in English character statistics.
func EnglishTables() *Tables {
	t := NewTables()
	t.Bigram = map[string]float32{
		"th": 0.037, "he": 0.030, "in": 0.020, "er": 0.019, "an": 0.018,
		"re": 0.017, "ed": 0.016, "on": 0.015, "es": 0.014, "st": 0.013,
		"en": 0.013, "at": 0.012, "to": 0.012, "nt": 0.011, "ha": 0.011,
		"nd": 0.010, "ou": 0.010, "ea": 0.010, "ng": 0.010, "as": 0.009,
		"or": 0.009, "ti": 0.009, "is": 0.009, "et": 0.008, "it": 0.008,
		"ar": 0.008, "te": 0.008, "se": 0.008, "hi": 0.007, "of": 0.007,
	}
	t.Trigram = map[string]float32{
		"the": 0.030, "and": 0.016, "tha": 0.012, "ent": 0.010, "ion": 0.009,
		"tio": 0.008, "for": 0.008, "nde": 0.007, "has": 0.007, "nce": 0.006,
		"edt": 0.006, "tis": 0.006, "oft": 0.006, "sth": 0.005, "men": 0.005,
		"ing": 0.018, "her": 0.007, "hat": 0.006, "his": 0.005, "ere": 0.005,
		"ter": 0.004, "was": 0.004, "you": 0.004, "ith": 0.004, "ver": 0.004,
		"all": 0.004, "wit": 0.003,
	}
	t.Start = map[rune]float32{
		't': 0.16, 'a': 0.11, 's': 0.09, 'h': 0.08, 'w': 0.08,
		'i': 0.07, 'o': 0.07, 'b': 0.06, 'm': 0.05, 'f': 0.05,
		'c': 0.05, 'l': 0.04, 'd': 0.04, 'p': 0.03, 'n': 0.02,
	}
	t.End = map[rune]float32{
		'e': 0.19, 's': 0.14, 't': 0.13, 'd': 0.10, 'n': 0.09,
		'r': 0.08, 'y': 0.07, 'f': 0.05, 'l': 0.05, 'o': 0.04,
		'w': 0.03, 'a': 0.02, 'k': 0.01,
	}
	return t
}
