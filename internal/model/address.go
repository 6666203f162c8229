package model

import (
	"strconv"
	"strings"
)

// suffix abbreviations applied during address normalization so that
// "123 Main Street" and "123 Main St." land on the same key.
var addressAbbrev = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"av":        "ave",
	"road":      "rd",
	"drive":     "dr",
	"boulevard": "blvd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"terrace":   "ter",
	"circle":    "cir",
	"highway":   "hwy",
	"parkway":   "pkwy",
	"square":    "sq",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"apartment": "apt",
	"unit":      "apt",
	"suite":     "apt",
}

// NormalizeAddress folds an address + city into the canonical dedup form:
// lower-cased, punctuation stripped, whitespace collapsed, common suffix
// words abbreviated.
func NormalizeAddress(address, city string) string {
	fields := strings.Fields(stripPunct(strings.ToLower(address)))
	for i, f := range fields {
		if abbrev, ok := addressAbbrev[f]; ok {
			fields[i] = abbrev
		}
	}
	normalized := strings.Join(fields, " ")
	c := normalizeToken(city)
	if c == "" {
		return normalized
	}
	return normalized + "|" + c
}

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(stripPunct(strings.ToLower(s))), " ")
}

func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == '-', r == '/':
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func bucketString(bucket int64) string {
	return strconv.FormatInt(bucket, 10)
}
