package lang

// Similarity returns the Dice coefficient over rune bigrams of two strings
// in [0,1]. Used for fuzzy mapping-key matching, where token sets are too
// coarse (single-word keys, unspaced Thai).
func Similarity(a, b string) float64 {
	a = Normalize(a)
	b = Normalize(b)

	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	ag := bigrams(a)
	bg := bigrams(b)
	if len(ag) == 0 || len(bg) == 0 {
		return 0
	}

	inter := 0
	total := 0
	for g, n := range ag {
		total += n
		if m, ok := bg[g]; ok {
			if m < n {
				inter += m
			} else {
				inter += n
			}
		}
	}
	for _, n := range bg {
		total += n
	}

	return 2 * float64(inter) / float64(total)
}

func bigrams(s string) map[string]int {
	rs := []rune(s)
	grams := make(map[string]int, len(rs))
	for i := 0; i+1 < len(rs); i++ {
		grams[string(rs[i:i+2])]++
	}
	return grams
}
