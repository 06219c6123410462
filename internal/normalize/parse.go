package normalize

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	countExpr    = regexp.MustCompile(`^(\d+(?:[.,]\d+)*)\s*([kmb])?(?:[^a-z]|$)`)
	relativeExpr = regexp.MustCompile(`^(\d+|an?|one)\s+(second|minute|hour|day|week|month|year)s?\s+ago$`)
	isoDurExpr   = regexp.MustCompile(`^p(?:(\d+)d)?t?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)
)

var absoluteLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 Jan 2006",
	"Mon, 2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var relativePrefixes = []string{"streamed ", "premiered ", "published ", "updated ", "uploaded "}

var unitDurations = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

var suffixMultipliers = map[string]float64{
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
}

var errUnparseableTime = errors.New("unparseable timestamp")

// ParseCount turns provider count strings ("1.2M views", "12,345", "3K")
// into integers. Anything it cannot read is zero.
func ParseCount(s string) int64 {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " ")))
	m := countExpr.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	number, suffix := m[1], m[2]
	if suffix != "" && strings.Contains(number, ",") && !strings.Contains(number, ".") && strings.Count(number, ",") == 1 {
		// "1,2K" uses a decimal comma.
		number = strings.Replace(number, ",", ".", 1)
	} else {
		number = strings.ReplaceAll(number, ",", "")
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 {
		return 0
	}
	if mul, ok := suffixMultipliers[suffix]; ok {
		value *= mul
	}
	return int64(math.Round(value))
}

// ParseDuration reads "MM:SS", "H:MM:SS" or ISO-8601 "PT#H#M#S" lengths.
func ParseDuration(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if m := isoDurExpr.FindStringSubmatch(s); m != nil && s != "p" && s != "pt" {
		var total time.Duration
		units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
		for i, part := range m[1:] {
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return 0, false
			}
			total += time.Duration(n) * units[i]
		}
		return total, true
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}

// ParseTimestamp resolves absolute and relative ("3 weeks ago") timestamps.
// Relative values are anchored at now. The result is always UTC.
func ParseTimestamp(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparseableTime
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	lower := strings.ToLower(s)
	for _, prefix := range relativePrefixes {
		lower = strings.TrimPrefix(lower, prefix)
	}

	switch lower {
	case "just now", "now", "today":
		return now.UTC(), nil
	case "yesterday":
		return now.Add(-24 * time.Hour).UTC(), nil
	}

	m := relativeExpr.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, errUnparseableTime
	}

	n := 1
	if m[1] != "a" && m[1] != "an" && m[1] != "one" {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, errUnparseableTime
		}
		n = v
	}
	return now.Add(-time.Duration(n) * unitDurations[m[2]]).UTC(), nil
}

// CollapseSpace joins runs of whitespace (arXiv wraps titles mid-line).
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
