package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DatePattern is a compiled custom date pattern in the yyyy-MM-dd HH:mm:ss
// notation used by the configuration file. Supported specifiers:
//
//	yyyy yy y    year
//	MMMM MMM MM M month name, abbreviation, padded and plain number
//	dddd ddd dd d weekday name, abbreviation, padded and plain day
//	HH H hh h    24 and 12 hour clock
//	mm m ss s    minutes and seconds
//	f..fffffff   fraction of a second
//	tt t         AM/PM designator
//	zzz zz z K   UTC offset
//
// Text in single or double quotes and characters escaped with a backslash
// are copied literally, as is any other character.
type DatePattern struct {
	source   string
	segments []func(t time.Time) string
}

// CompileDatePattern compiles a pattern once so formatting is a simple walk
// over its segments.
func CompileDatePattern(pattern string) (*DatePattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("date pattern is empty")
	}

	p := &DatePattern{source: pattern}
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		c := runes[i]

		switch c {
		case '\'', '"':
			end := i + 1
			for end < len(runes) && runes[end] != c {
				end++
			}
			if end >= len(runes) {
				return nil, fmt.Errorf("unterminated quote in date pattern %q", pattern)
			}
			p.literal(string(runes[i+1 : end]))
			i = end + 1
			continue
		case '\\':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("trailing escape in date pattern %q", pattern)
			}
			p.literal(string(runes[i+1]))
			i += 2
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == c {
			n++
		}
		segment, ok := specifier(c, n)
		if !ok {
			p.literal(string(runes[i : i+n]))
		} else {
			p.segments = append(p.segments, segment)
		}
		i += n
	}
	return p, nil
}

// Format renders t with the pattern.
func (p *DatePattern) Format(t time.Time) string {
	var b strings.Builder
	for _, segment := range p.segments {
		b.WriteString(segment(t))
	}
	return b.String()
}

// String returns the source pattern.
func (p *DatePattern) String() string {
	return p.source
}

func (p *DatePattern) literal(s string) {
	p.segments = append(p.segments, func(time.Time) string { return s })
}

func specifier(c rune, n int) (func(time.Time) string, bool) {
	switch c {
	case 'y':
		switch n {
		case 1:
			return func(t time.Time) string { return strconv.Itoa(t.Year() % 100) }, true
		case 2:
			return func(t time.Time) string { return pad(t.Year()%100, 2) }, true
		default:
			return func(t time.Time) string { return pad(t.Year(), n) }, true
		}

	case 'M':
		switch n {
		case 1:
			return func(t time.Time) string { return strconv.Itoa(int(t.Month())) }, true
		case 2:
			return func(t time.Time) string { return pad(int(t.Month()), 2) }, true
		case 3:
			return func(t time.Time) string { return t.Format("Jan") }, true
		default:
			return func(t time.Time) string { return t.Format("January") }, true
		}

	case 'd':
		switch n {
		case 1:
			return func(t time.Time) string { return strconv.Itoa(t.Day()) }, true
		case 2:
			return func(t time.Time) string { return pad(t.Day(), 2) }, true
		case 3:
			return func(t time.Time) string { return t.Format("Mon") }, true
		default:
			return func(t time.Time) string { return t.Format("Monday") }, true
		}

	case 'H':
		return number(func(t time.Time) int { return t.Hour() }, n), true

	case 'h':
		return number(func(t time.Time) int {
			h := t.Hour() % 12
			if h == 0 {
				h = 12
			}
			return h
		}, n), true

	case 'm':
		return number(func(t time.Time) int { return t.Minute() }, n), true

	case 's':
		return number(func(t time.Time) int { return t.Second() }, n), true

	case 'f':
		if n > 7 {
			return nil, false
		}
		div := 1
		for i := 0; i < 9-n; i++ {
			div *= 10
		}
		return func(t time.Time) string { return pad(t.Nanosecond()/div, n) }, true

	case 't':
		return func(t time.Time) string {
			designator := "AM"
			if t.Hour() >= 12 {
				designator = "PM"
			}
			if n == 1 {
				return designator[:1]
			}
			return designator
		}, true

	case 'z':
		switch n {
		case 1:
			return func(t time.Time) string {
				_, offset := t.Zone()
				return signed(offset) + strconv.Itoa(abs(offset)/3600)
			}, true
		case 2:
			return func(t time.Time) string {
				_, offset := t.Zone()
				return signed(offset) + pad(abs(offset)/3600, 2)
			}, true
		default:
			return func(t time.Time) string { return t.Format("-07:00") }, true
		}

	case 'K':
		return func(t time.Time) string { return t.Format("Z07:00") }, true
	}
	return nil, false
}

func number(get func(time.Time) int, n int) func(time.Time) string {
	if n == 1 {
		return func(t time.Time) string { return strconv.Itoa(get(t)) }
	}
	return func(t time.Time) string { return pad(get(t), 2) }
}

func pad(v, width int) string {
	return fmt.Sprintf("%0*d", width, v)
}

func signed(offset int) string {
	if offset < 0 {
		return "-"
	}
	return "+"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
