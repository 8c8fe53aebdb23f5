package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Field coercion for JSON sources. Agency APIs are loose about types:
// numbers arrive as strings with currency formatting, dates in half a dozen
// layouts, identifiers sometimes as bare numbers.

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func floatField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			if f, ok := parseMoney(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func dateField(m map[string]any, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if t, ok := parseLooseDate(s); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func parseLooseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
