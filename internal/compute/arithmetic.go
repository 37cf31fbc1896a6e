package compute

import (
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

func (p *Pipeline) arithmetic(t table.Table, kind Kind, column int, value string) (table.Table, error) {
	return p.mapCell(t, kind, column, func(cell string, row []string) (string, error) {
		raw, err := operand(row, value)
		if err != nil {
			return "", err
		}
		a, err := parseNumber(cell)
		if err != nil {
			return "", skipRow("%s: %q is not a number", kind, cell)
		}
		b, err := parseNumber(raw)
		if err != nil {
			return "", skipRow("%s: operand %q is not a number", kind, raw)
		}

		switch kind {
		case KindAdd:
			return formatNumber(a + b), nil
		case KindSubtract:
			return formatNumber(a - b), nil
		case KindMultiply:
			return formatNumber(a * b), nil
		default:
			if b == 0 {
				return "", skipRow("divide: division of %q by zero", cell)
			}
			return formatNumber(a / b), nil
		}
	})
}

func (p *Pipeline) and(t table.Table, op *And) (table.Table, error) {
	return p.mapCell(t, KindAnd, op.Column, func(cell string, row []string) (string, error) {
		raw, err := operand(row, op.Value)
		if err != nil {
			return "", err
		}
		a, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return "", skipRow("and: %q is not an integer", cell)
		}
		b, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return "", skipRow("and: operand %q is not an integer", raw)
		}

		return strconv.FormatInt(a&b, 10), nil
	})
}

func (p *Pipeline) convert(t table.Table, op *Convert) (table.Table, error) {
	switch op.ConversionType {
	case Hex2Dec:
		return p.mapCell(t, KindConvert, op.Column, func(cell string, _ []string) (string, error) {
			return hexToDecimal(cell)
		})
	case Array2SimpleStatus:
		return p.mapCell(t, KindConvert, op.Column, func(cell string, _ []string) (string, error) {
			return worstStatus(cell), nil
		})
	default:
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, struct {
			Kind           Kind
			ConversionType ConversionType
		}{
			Kind:           KindConvert,
			ConversionType: op.ConversionType,
		})
	}
}

func hexToDecimal(cell string) (string, error) {
	clean := strings.TrimSpace(cell)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	clean = strings.NewReplacer(":", "", " ", "", "-", "").Replace(clean)
	if clean == "" {
		return "", skipRow("convert: empty hexadecimal value")
	}
	n, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return "", skipRow("convert: %q is not hexadecimal", cell)
	}

	return strconv.FormatUint(n, 10), nil
}

var statusRank = map[string]int{
	"ok":       0,
	"degraded": 1,
	"failed":   2,
}

// worstStatus reduces a "|"-separated list of ok/degraded/failed to its
// worst element. Unknown elements are ignored; no known element yields "".
func worstStatus(cell string) string {
	worst, rank := "", -1
	for _, part := range strings.Split(cell, "|") {
		s := strings.ToLower(strings.TrimSpace(part))
		if r, ok := statusRank[s]; ok && r > rank {
			worst, rank = s, r
		}
	}

	return worst
}
