package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ordinals = map[string]int{
		"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
		"1st": 0, "2nd": 1, "3rd": 2, "4th": 3, "5th": 4,
	}
	bareNumberRE = regexp.MustCompile(`\b([1-9])\b`)
	clockRE      = regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d\b`)
)

// PickIndex resolves "first", "2nd", "3" and friends to a zero-based index
// into a list of n items.
func PickIndex(text string, n int) (int, bool) {
	lower := strings.ToLower(text)
	for word, idx := range ordinals {
		if strings.Contains(lower, word) && idx < n {
			return idx, true
		}
	}
	if m := bareNumberRE.FindStringSubmatch(lower); m != nil {
		idx, _ := strconv.Atoi(m[1])
		idx--
		if idx >= 0 && idx < n {
			return idx, true
		}
	}
	return 0, false
}

// ExtractClock pulls an HH:MM time out of text, or "".
func ExtractClock(text string) string {
	return clockRE.FindString(text)
}

// WantsEarliest and WantsLatest recognize slot shortcuts.
func WantsEarliest(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "earliest") || strings.Contains(lower, "first available")
}

func WantsLatest(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "latest") || containsWord(lower, "last")
}
