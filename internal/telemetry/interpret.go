package telemetry

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	columnPattern   = regexp.MustCompile(`\$(\d+)`)
	functionPattern = regexp.MustCompile(`^\s*([a-zA-Z0-9]+)\((.*)\)\s*$`)
)

type conversion func(float64) float64

var numberFunctions = map[string]conversion{
	"percent2ratio":   func(v float64) float64 { return v / 100 },
	"megabit2bit":     func(v float64) float64 { return v * 1e6 },
	"megahertz2hertz": func(v float64) float64 { return v * 1e6 },
	"mebibyte2byte":   func(v float64) float64 { return v * 1024 * 1024 },
}

// Interpret evaluates a mapping template against a row. "$N" is replaced by
// column N (empty when the row is shorter), and a template that is a whole
// call to percent2Ratio, megaBit2Bit, megaHertz2Hertz, mebiByte2Byte or
// boolean applies that conversion to its evaluated argument. Conversions of
// unparseable values yield an empty string.
func Interpret(template string, row []string) string {
	if match := functionPattern.FindStringSubmatch(template); match != nil {
		name := strings.ToLower(match[1])
		if fn, ok := numberFunctions[name]; ok {
			return convertNumber(Interpret(match[2], row), fn)
		}
		if name == "boolean" {
			return toBoolean(Interpret(match[2], row))
		}
	}

	if !strings.Contains(template, "$") {
		return template
	}

	return columnPattern.ReplaceAllStringFunc(template, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(row) {
			return ""
		}
		return row[n-1]
	})
}

func convertNumber(value string, fn conversion) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return ""
	}

	return strconv.FormatFloat(fn(v), 'f', -1, 64)
}

func toBoolean(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return "1"
	case "0", "false", "no", "off":
		return "0"
	default:
		return ""
	}
}

// InterpretAll evaluates every template of a mapping
func InterpretAll(templates map[string]string, row []string) map[string]string {
	out := make(map[string]string, len(templates))
	for name, template := range templates {
		out[name] = Interpret(template, row)
	}

	return out
}
