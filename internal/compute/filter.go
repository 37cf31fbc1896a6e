package compute

import (
	"regexp"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

func (p *Pipeline) keepColumns(t table.Table, op *KeepColumns) (table.Table, error) {
	if len(op.ColumnNumbers) == 0 {
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, KindKeepColumns)
	}

	return p.eachRow(t, KindKeepColumns, func(row []string) ([][]string, error) {
		out := make([]string, 0, len(op.ColumnNumbers))
		for _, c := range op.ColumnNumbers {
			if err := checkColumn(row, c); err != nil {
				return nil, err
			}
			out = append(out, row[c-1])
		}

		return [][]string{out}, nil
	})
}

// matchLines keeps (keep=true) rows matching every configured criterion, or
// drops (keep=false) rows matching any of them
func (p *Pipeline) matchLines(t table.Table, kind Kind, column int, valueList, expr string, keep bool) (table.Table, error) {
	var re *regexp.Regexp
	if expr != "" {
		var err error
		if re, err = regexp.Compile("(?i)" + expr); err != nil {
			return table.Empty(), errors.New().Wrap(ErrInvalidOperator, err)
		}
	}

	values := map[string]struct{}{}
	for _, v := range strings.Split(valueList, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values[strings.ToLower(v)] = struct{}{}
		}
	}

	return p.eachRow(t, kind, func(row []string) ([][]string, error) {
		if err := checkColumn(row, column); err != nil {
			return nil, err
		}
		cell := row[column-1]

		reMatch := re != nil && re.MatchString(cell)
		_, listMatch := values[strings.ToLower(strings.TrimSpace(cell))]
		listMatch = len(values) > 0 && listMatch

		var retain bool
		if keep {
			retain = (re == nil || reMatch) && (len(values) == 0 || listMatch)
		} else {
			retain = !reMatch && !listMatch
		}
		if !retain {
			return nil, nil
		}

		return [][]string{row}, nil
	})
}
