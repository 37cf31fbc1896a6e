package table

import (
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
)

// KeyType selects how join keys are compared
type KeyType string

const (
	// KeyTypeString compares keys as exact strings
	KeyTypeString KeyType = "S"
	// KeyTypeNumeric compares keys as floating point numbers
	KeyTypeNumeric KeyType = "N"
	// KeyTypeWbem compares WBEM object paths case-insensitively
	KeyTypeWbem KeyType = "WBEM"
)

// IsValid reports whether k is a known key type; empty means string
func (k KeyType) IsValid() bool {
	switch k {
	case "", KeyTypeString, KeyTypeNumeric, KeyTypeWbem:
		return true
	default:
		return false
	}
}

// JoinSpec describes a join of two tables on one key column each
type JoinSpec struct {
	LeftKeyColumn  int
	RightKeyColumn int
	KeyType        KeyType
	// DefaultRightLine is appended to unmatched left rows. Nil means inner join.
	DefaultRightLine []string
}

// Join emits left+right for every matching pair, in left order then right
// order. Rows whose key cell is missing or not comparable are dropped.
func Join(left, right Table, spec JoinSpec) (Table, error) {
	errFactory := errors.New()

	if spec.LeftKeyColumn < 1 || spec.RightKeyColumn < 1 {
		return Empty(), errFactory.WithData(ErrColumnOutOfRange, struct {
			LeftKeyColumn  int
			RightKeyColumn int
		}{
			LeftKeyColumn:  spec.LeftKeyColumn,
			RightKeyColumn: spec.RightKeyColumn,
		})
	}
	if !spec.KeyType.IsValid() {
		return Empty(), errFactory.WithData(ErrInvalidKeyType, spec.KeyType)
	}

	index := make(map[string][]int, right.Len())
	for i, row := range right.Rows() {
		if spec.RightKeyColumn > len(row) {
			continue
		}
		key, ok := normalizeKey(row[spec.RightKeyColumn-1], spec.KeyType)
		if !ok {
			continue
		}
		index[key] = append(index[key], i)
	}

	rows := make([][]string, 0, left.Len())
	for _, leftRow := range left.Rows() {
		if spec.LeftKeyColumn > len(leftRow) {
			continue
		}
		key, ok := normalizeKey(leftRow[spec.LeftKeyColumn-1], spec.KeyType)
		matches := index[key]
		if ok && len(matches) > 0 {
			for _, m := range matches {
				rows = append(rows, concatRows(leftRow, right.Row(m)))
			}
			continue
		}
		if spec.DefaultRightLine != nil {
			rows = append(rows, concatRows(leftRow, spec.DefaultRightLine))
		}
	}

	return New(rows), nil
}

func concatRows(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)

	return append(out, b...)
}

func normalizeKey(cell string, keyType KeyType) (string, bool) {
	switch keyType {
	case KeyTypeNumeric:
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatFloat(f, 'g', -1, 64), true
	case KeyTypeWbem:
		return strings.ToLower(stripWbemNamespace(cell)), true
	default:
		return cell, true
	}
}

// stripWbemNamespace drops the "host/namespace:" prefix of an object path so
// paths coming from different namespaces still match
func stripWbemNamespace(path string) string {
	if i := strings.Index(path, ":"); i >= 0 && strings.Contains(path[:i], "/") {
		return path[i+1:]
	}

	return path
}
