package langmodel

// Seed tables. Bigram values are conditional probabilities P(word | prev).

type pair = [2]string

func seedTables() map[string]*Table {
	return map[string]*Table{
		"en": {
			Bigram: map[pair]float32{
				{"the", "end"}: 0.040, {"the", "first"}: 0.060, {"the", "last"}: 0.048, {"the", "best"}: 0.040,
				{"the", "world"}: 0.032, {"the", "time"}: 0.028, {"the", "day"}: 0.024, {"the", "way"}: 0.020,

				{"a", "lot"}: 0.080, {"a", "little"}: 0.060, {"a", "few"}: 0.048, {"a", "good"}: 0.040,
				{"a", "great"}: 0.032, {"a", "new"}: 0.028, {"a", "long"}: 0.024,

				{"to", "be"}: 0.120, {"to", "have"}: 0.080, {"to", "do"}: 0.060, {"to", "go"}: 0.048,
				{"to", "get"}: 0.040, {"to", "make"}: 0.032, {"to", "see"}: 0.028,

				{"of", "the"}: 0.200, {"of", "course"}: 0.080, {"of", "all"}: 0.060, {"of", "this"}: 0.048,
				{"of", "his"}: 0.040, {"of", "her"}: 0.032,

				{"in", "the"}: 0.160, {"in", "a"}: 0.080, {"in", "this"}: 0.060, {"in", "order"}: 0.048,
				{"in", "fact"}: 0.040, {"in", "case"}: 0.032,

				{"i", "am"}: 0.120, {"i", "have"}: 0.100, {"i", "will"}: 0.080, {"i", "was"}: 0.072,
				{"i", "can"}: 0.060, {"i", "would"}: 0.048, {"i", "think"}: 0.040, {"i", "know"}: 0.032,
				{"i", "want"}: 0.028,

				{"you", "are"}: 0.100, {"you", "can"}: 0.080, {"you", "have"}: 0.072, {"you", "will"}: 0.060,
				{"you", "want"}: 0.048, {"you", "know"}: 0.040, {"you", "need"}: 0.032,

				{"it", "is"}: 0.160, {"it", "was"}: 0.100, {"it", "will"}: 0.060, {"it", "would"}: 0.048,
				{"it", "has"}: 0.040, {"it", "can"}: 0.032,

				{"that", "is"}: 0.100, {"that", "was"}: 0.080, {"that", "the"}: 0.060, {"that", "it"}: 0.048,
				{"that", "you"}: 0.040, {"that", "he"}: 0.032,

				{"with", "the"}: 0.120, {"with", "a"}: 0.080, {"with", "his"}: 0.060, {"with", "her"}: 0.048,
				{"with", "my"}: 0.040, {"with", "your"}: 0.032,
			},
			Unigram: map[string]float32{
				"the": 0.07, "be": 0.04, "to": 0.035, "of": 0.03, "and": 0.028,
				"a": 0.025, "in": 0.022, "that": 0.02, "have": 0.018, "i": 0.017,
				"it": 0.015, "for": 0.014, "not": 0.013, "on": 0.012, "with": 0.011,
				"he": 0.010, "as": 0.009, "you": 0.009, "do": 0.008, "at": 0.008,
			},
		},
		"es": {
			Bigram: map[pair]float32{
				{"de", "la"}: 0.160, {"de", "los"}: 0.100, {"en", "el"}: 0.140, {"en", "la"}: 0.120,
				{"el", "mundo"}: 0.048, {"la", "vida"}: 0.060, {"que", "es"}: 0.080, {"que", "se"}: 0.072,
				{"no", "es"}: 0.060, {"se", "puede"}: 0.048, {"por", "favor"}: 0.100, {"muchas", "gracias"}: 0.120,
				{"muy", "bien"}: 0.080, {"todo", "el"}: 0.060,
			},
			Unigram: map[string]float32{
				"de": 0.05, "la": 0.04, "que": 0.035, "el": 0.03, "en": 0.025,
				"y": 0.022, "a": 0.02, "es": 0.018, "se": 0.015, "no": 0.014,
				"te": 0.012, "lo": 0.011, "le": 0.01, "da": 0.009, "su": 0.008,
			},
		},
		"fr": {
			Bigram: map[pair]float32{
				{"de", "la"}: 0.180, {"de", "le"}: 0.120, {"dans", "le"}: 0.100, {"sur", "le"}: 0.080,
				{"avec", "le"}: 0.072, {"pour", "le"}: 0.060, {"il", "y"}: 0.100, {"y", "a"}: 0.120,
				{"c'est", "le"}: 0.080, {"je", "suis"}: 0.100, {"tu", "es"}: 0.080, {"nous", "sommes"}: 0.060,
				{"très", "bien"}: 0.072, {"tout", "le"}: 0.088,
			},
			Unigram: map[string]float32{
				"de": 0.06, "le": 0.045, "et": 0.035, "à": 0.03, "un": 0.025,
				"il": 0.022, "être": 0.02, "en": 0.016, "avoir": 0.014, "que": 0.012,
				"pour": 0.011, "dans": 0.01, "ce": 0.009, "son": 0.008,
			},
		},
		"de": {
			Bigram: map[pair]float32{
				{"der", "die"}: 0.120, {"in", "der"}: 0.140, {"von", "der"}: 0.100, {"mit", "der"}: 0.080,
				{"auf", "der"}: 0.072, {"zu", "der"}: 0.060, {"ich", "bin"}: 0.100, {"du", "bist"}: 0.080,
				{"er", "ist"}: 0.088, {"wir", "sind"}: 0.072, {"das", "ist"}: 0.120, {"sehr", "gut"}: 0.080,
				{"vielen", "dank"}: 0.100, {"guten", "tag"}: 0.060,
			},
			Unigram: map[string]float32{
				"der": 0.055, "die": 0.045, "und": 0.035, "in": 0.03, "den": 0.025,
				"von": 0.022, "zu": 0.02, "das": 0.018, "mit": 0.016, "sich": 0.014,
				"auf": 0.012, "für": 0.011, "ist": 0.01, "im": 0.009, "dem": 0.008,
			},
		},
	}
}
