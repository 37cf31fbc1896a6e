package source

import (
	"regexp"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

// toTable shapes a protocol answer according to the query that produced it
func toTable(q Query, res Result) (table.Table, error) {
	switch s := q.(type) {
	case *SnmpGet, *HTTP:
		if res.IsTable {
			return res.Table, nil
		}
		return table.SingleCell(res.Text), nil
	case *SnmpTable:
		return selectColumns(asTable(res), s.SelectColumns)
	case *OsCommand:
		return s.TextProcessing.apply(res.Raw())
	case *SshInteractive:
		return s.TextProcessing.apply(res.Raw())
	default:
		return asTable(res), nil
	}
}

func asTable(res Result) table.Table {
	if res.IsTable {
		return res.Table
	}

	return table.FromText(res.Text)
}

func selectColumns(t table.Table, expr string) (table.Table, error) {
	if strings.TrimSpace(expr) == "" {
		return t, nil
	}
	sel, err := table.ParseSelectColumns(expr)
	if err != nil {
		return table.Empty(), err
	}

	return sel.Select(t)
}

// apply filters and splits command output lines
func (tp TextProcessing) apply(text string) (table.Table, error) {
	errFactory := errors.New()

	var keep, exclude *regexp.Regexp
	var err error
	if tp.KeepOnlyRegExp != "" {
		if keep, err = regexp.Compile(tp.KeepOnlyRegExp); err != nil {
			return table.Empty(), errFactory.Wrap(ErrInvalidSource, err)
		}
	}
	if tp.ExcludeRegExp != "" {
		if exclude, err = regexp.Compile(tp.ExcludeRegExp); err != nil {
			return table.Empty(), errFactory.Wrap(ErrInvalidSource, err)
		}
	}

	var rows [][]string
	for i, line := range strings.Split(text, "\n") {
		n := i + 1
		if tp.BeginAtLineNumber > 0 && n < tp.BeginAtLineNumber {
			continue
		}
		if tp.EndAtLineNumber > 0 && n > tp.EndAtLineNumber {
			break
		}
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if keep != nil && !keep.MatchString(line) {
			continue
		}
		if exclude != nil && exclude.MatchString(line) {
			continue
		}

		if tp.Separators == "" {
			rows = append(rows, []string{line})
			continue
		}
		rows = append(rows, strings.FieldsFunc(line, func(r rune) bool {
			return strings.ContainsRune(tp.Separators, r)
		}))
	}

	return selectColumns(table.New(rows), tp.SelectColumns)
}
