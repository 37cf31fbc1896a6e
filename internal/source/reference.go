package source

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

// ParseReference recognizes the "%<source-path>%" copy syntax
func ParseReference(value string) (string, bool) {
	v := strings.TrimSpace(value)
	if len(v) < 3 || v[0] != '%' || v[len(v)-1] != '%' {
		return "", false
	}
	key := v[1 : len(v)-1]
	if strings.ContainsAny(key, "%\n;") {
		return "", false
	}

	return key, true
}

// ReferenceKey accepts both "%key%" and a bare key
func ReferenceKey(value string) string {
	if key, ok := ParseReference(value); ok {
		return key
	}

	return strings.TrimSpace(value)
}

var entryColumnPattern = regexp.MustCompile(`\$entry\.column\((\d+)\)\$`)

// EntryReplacer substitutes $entry.column(N)$ and $entry.raw$ with values
// of a driver table row. Columns beyond the row become empty.
func EntryReplacer(row []string) func(string) string {
	raw := table.Format([][]string{row}, table.ColumnSeparator, table.RowSeparator)

	return func(s string) string {
		if !strings.Contains(s, "$entry.") {
			return s
		}
		s = strings.ReplaceAll(s, "$entry.raw$", raw)

		return entryColumnPattern.ReplaceAllStringFunc(s, func(m string) string {
			n, err := strconv.Atoi(entryColumnPattern.FindStringSubmatch(m)[1])
			if err != nil || n < 1 || n > len(row) {
				return ""
			}
			return row[n-1]
		})
	}
}

var attributePattern = regexp.MustCompile(`\$\{attribute::([^}]+)\}`)

// AttributeReplacer substitutes ${attribute::<name>} with monitor attributes
func AttributeReplacer(attributes map[string]string) func(string) string {
	return func(s string) string {
		if !strings.Contains(s, "${attribute::") {
			return s
		}

		return attributePattern.ReplaceAllStringFunc(s, func(m string) string {
			return attributes[attributePattern.FindStringSubmatch(m)[1]]
		})
	}
}

func chain(fns ...func(string) string) func(string) string {
	return func(s string) string {
		for _, fn := range fns {
			if fn != nil {
				s = fn(s)
			}
		}
		return s
	}
}
