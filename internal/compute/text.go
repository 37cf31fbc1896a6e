package compute

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

func (p *Pipeline) duplicateColumn(t table.Table, op *DuplicateColumn) (table.Table, error) {
	return p.eachRow(t, KindDuplicateColumn, func(row []string) ([][]string, error) {
		if err := checkColumn(row, op.Column); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(row)+1)
		out = append(out, row[:op.Column]...)
		out = append(out, row[op.Column-1])
		out = append(out, row[op.Column:]...)

		return [][]string{out}, nil
	})
}

func (p *Pipeline) extract(t table.Table, op *Extract) (table.Table, error) {
	if op.SubColumn < 1 || op.SubSeparators == "" {
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, struct {
			Kind          Kind
			SubColumn     int
			SubSeparators string
		}{
			Kind:          KindExtract,
			SubColumn:     op.SubColumn,
			SubSeparators: op.SubSeparators,
		})
	}

	return p.mapCell(t, KindExtract, op.Column, func(cell string, _ []string) (string, error) {
		parts := strings.FieldsFunc(cell, func(r rune) bool {
			return strings.ContainsRune(op.SubSeparators, r)
		})
		if op.SubColumn > len(parts) {
			return "", skipRow("extract: %q has no sub-column %d", cell, op.SubColumn)
		}

		return parts[op.SubColumn-1], nil
	})
}

func (p *Pipeline) extractWbemProperty(t table.Table, op *ExtractPropertyFromWbemPath) (table.Table, error) {
	if op.PropertyName == "" {
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, KindExtractPropertyFromWbemPath)
	}

	return p.mapCell(t, KindExtractPropertyFromWbemPath, op.Column, func(cell string, _ []string) (string, error) {
		v, ok := wbemPathProperty(cell, op.PropertyName)
		if !ok {
			return "", skipRow("extractPropertyFromWbemPath: %q has no property %s", cell, op.PropertyName)
		}

		return v, nil
	})
}

// wbemPathProperty reads a key property out of an object path such as
// root/cimv2:CIM_Fan.CreationClassName="CIM_Fan",DeviceID="1.2"
func wbemPathProperty(path, name string) (string, bool) {
	start := 0
	if colon := strings.Index(path, ":"); colon >= 0 && colon < strings.Index(path, "=") {
		start = colon + 1
	}
	dot := strings.Index(path[start:], ".")
	if dot < 0 {
		return "", false
	}

	keys := path[start+dot+1:]
	for len(keys) > 0 {
		eq := strings.Index(keys, "=")
		if eq < 0 {
			return "", false
		}
		key := strings.TrimSpace(keys[:eq])
		rest := keys[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return "", false
			}
			value = strings.ReplaceAll(rest[1:end], `\"`, `"`)
			rest = rest[end+1:]
		} else {
			end := strings.Index(rest, ",")
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}
		if strings.EqualFold(key, name) {
			return value, true
		}
		keys = strings.TrimPrefix(rest, ",")
	}

	return "", false
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			return i
		}
	}

	return -1
}

func (p *Pipeline) substring(t table.Table, op *Substring) (table.Table, error) {
	return p.mapCell(t, KindSubstring, op.Column, func(cell string, row []string) (string, error) {
		rawStart, err := operand(row, op.Start)
		if err != nil {
			return "", err
		}
		rawLength, err := operand(row, op.Length)
		if err != nil {
			return "", err
		}
		start, err := strconv.Atoi(strings.TrimSpace(rawStart))
		if err != nil {
			return "", skipRow("substring: start %q is not an integer", rawStart)
		}
		length, err := strconv.Atoi(strings.TrimSpace(rawLength))
		if err != nil {
			return "", skipRow("substring: length %q is not an integer", rawLength)
		}

		runes := []rune(cell)
		if start < 1 || length < 0 || start-1+length > len(runes) {
			return "", skipRow("substring: [%d,+%d) outside %q (%d characters)", start, length, cell, utf8.RuneCountInString(cell))
		}

		return string(runes[start-1 : start-1+length]), nil
	})
}

func (p *Pipeline) concat(t table.Table, kind Kind, column int, value string, left bool) (table.Table, error) {
	return p.mapCell(t, kind, column, func(cell string, row []string) (string, error) {
		v, err := operand(row, value)
		if err != nil {
			return "", err
		}
		if left {
			return v + cell, nil
		}

		return cell + v, nil
	})
}

func (p *Pipeline) replace(t table.Table, op *Replace) (table.Table, error) {
	return p.mapCell(t, KindReplace, op.Column, func(cell string, row []string) (string, error) {
		existing, err := operand(row, op.ExistingValue)
		if err != nil {
			return "", err
		}
		replacement, err := operand(row, op.NewValue)
		if err != nil {
			return "", err
		}
		if existing == "" {
			return cell, nil
		}

		return strings.ReplaceAll(cell, existing, replacement), nil
	})
}
