package render

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultDateFormat = "YYYY-MM-DD"
	defaultTimeFormat = "HH:mm"
)

// dateDirectiveRe matches {{date}}, {{time}}, an optional offset such as +7d
// and an optional moment-style format after a colon.
var dateDirectiveRe = regexp.MustCompile(`\{\{\s*(date|time)(?:\s*([+-]\d+)([yqMwdhms]))?\s*(?::([^{}]*?))?\s*\}\}`)

// ExpandDates replaces date and time directives with now formatted as
// requested. Offsets shift now before formatting: {{date+1w}},
// {{time-30m:HH:mm}}. The output depends only on text and now.
func ExpandDates(text string, now time.Time) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return dateDirectiveRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := dateDirectiveRe.FindStringSubmatch(m)
		t := now
		if sub[2] != "" {
			n, err := strconv.Atoi(sub[2])
			if err != nil {
				return m
			}
			t = shift(t, n, sub[3])
		}
		layout := strings.TrimSpace(sub[4])
		if layout == "" {
			layout = defaultDateFormat
			if sub[1] == "time" {
				layout = defaultTimeFormat
			}
		}
		return formatMoment(t, layout)
	})
}

func shift(t time.Time, n int, unit string) time.Time {
	switch unit {
	case "y":
		return t.AddDate(n, 0, 0)
	case "q":
		return t.AddDate(0, 3*n, 0)
	case "M":
		return t.AddDate(0, n, 0)
	case "w":
		return t.AddDate(0, 0, 7*n)
	case "d":
		return t.AddDate(0, 0, n)
	case "h":
		return t.Add(time.Duration(n) * time.Hour)
	case "m":
		return t.Add(time.Duration(n) * time.Minute)
	case "s":
		return t.Add(time.Duration(n) * time.Second)
	}
	return t
}

// momentTokens is ordered so longer tokens win over their prefixes.
var momentTokens = []struct {
	token  string
	format func(time.Time) string
}{
	{"YYYY", func(t time.Time) string { return t.Format("2006") }},
	{"YY", func(t time.Time) string { return t.Format("06") }},
	{"MMMM", func(t time.Time) string { return t.Format("January") }},
	{"MMM", func(t time.Time) string { return t.Format("Jan") }},
	{"MM", func(t time.Time) string { return t.Format("01") }},
	{"M", func(t time.Time) string { return strconv.Itoa(int(t.Month())) }},
	{"dddd", func(t time.Time) string { return t.Format("Monday") }},
	{"ddd", func(t time.Time) string { return t.Format("Mon") }},
	{"DD", func(t time.Time) string { return t.Format("02") }},
	{"D", func(t time.Time) string { return strconv.Itoa(t.Day()) }},
	{"HH", func(t time.Time) string { return t.Format("15") }},
	{"H", func(t time.Time) string { return strconv.Itoa(t.Hour()) }},
	{"hh", func(t time.Time) string { return t.Format("03") }},
	{"h", func(t time.Time) string { return t.Format("3") }},
	{"mm", func(t time.Time) string { return t.Format("04") }},
	{"m", func(t time.Time) string { return strconv.Itoa(t.Minute()) }},
	{"ss", func(t time.Time) string { return t.Format("05") }},
	{"s", func(t time.Time) string { return strconv.Itoa(t.Second()) }},
	{"A", func(t time.Time) string { return t.Format("PM") }},
	{"a", func(t time.Time) string { return t.Format("pm") }},
	{"Z", func(t time.Time) string { return t.Format("-07:00") }},
}

// formatMoment formats t with a moment.js style layout. Text in square
// brackets is copied literally.
func formatMoment(t time.Time, layout string) string {
	var b strings.Builder
	for i := 0; i < len(layout); {
		if layout[i] == '[' {
			if end := strings.IndexByte(layout[i:], ']'); end > 0 {
				b.WriteString(layout[i+1 : i+end])
				i += end + 1
				continue
			}
		}
		matched := false
		for _, tk := range momentTokens {
			if strings.HasPrefix(layout[i:], tk.token) {
				b.WriteString(tk.format(t))
				i += len(tk.token)
				matched = true
				break
			}
		}
		if !matched {
			r, size := utf8.DecodeRuneInString(layout[i:])
			b.WriteRune(r)
			i += size
		}
	}
	return b.String()
}
