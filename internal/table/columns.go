package table

import (
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
)

// ColumnRange is an inclusive 1-based column range. To is zero for an
// open-ended range running to the last column.
type ColumnRange struct {
	From int
	To   int
}

// Selection is a parsed select-columns expression
type Selection []ColumnRange

// ParseSelectColumns parses a comma-separated list of "N", "N-M", "-M" and
// "N-" tokens. "-M" is only accepted as the first token and "N-" only as the
// last one.
func ParseSelectColumns(expr string) (Selection, error) {
	errFactory := errors.New()

	if strings.TrimSpace(expr) == "" {
		return nil, errFactory.WithData(ErrInvalidSelectColumns, "empty expression")
	}

	tokens := strings.Split(expr, ",")
	selection := make(Selection, 0, len(tokens))
	for i, raw := range tokens {
		token := strings.TrimSpace(raw)
		invalid := func(reason string) error {
			return errFactory.WithData(ErrInvalidSelectColumns, struct {
				Expression string
				Token      string
				Reason     string
			}{
				Expression: expr,
				Token:      token,
				Reason:     reason,
			})
		}

		if token == "" || token == "-" {
			return nil, invalid("empty token")
		}

		if !strings.Contains(token, "-") {
			n, err := parseColumn(token)
			if err != nil {
				return nil, invalid(err.Error())
			}
			selection = append(selection, ColumnRange{From: n, To: n})
			continue
		}

		from, to, _ := strings.Cut(token, "-")
		switch {
		case from == "":
			if i != 0 {
				return nil, invalid("'-M' is only allowed as the first token")
			}
			m, err := parseColumn(to)
			if err != nil {
				return nil, invalid(err.Error())
			}
			selection = append(selection, ColumnRange{From: 1, To: m})
		case to == "":
			if i != len(tokens)-1 {
				return nil, invalid("'N-' must be the last token")
			}
			n, err := parseColumn(from)
			if err != nil {
				return nil, invalid(err.Error())
			}
			selection = append(selection, ColumnRange{From: n})
		default:
			n, err := parseColumn(from)
			if err != nil {
				return nil, invalid(err.Error())
			}
			m, err := parseColumn(to)
			if err != nil {
				return nil, invalid(err.Error())
			}
			if m < n {
				return nil, invalid("range end before range start")
			}
			selection = append(selection, ColumnRange{From: n, To: m})
		}
	}

	return selection, nil
}

func parseColumn(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New().Newf(ErrInvalidSelectColumns, "column %d is not 1-based", n)
	}

	return n, nil
}

// String renders the canonical form of the selection
func (s Selection) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		switch {
		case r.To == 0:
			parts[i] = strconv.Itoa(r.From) + "-"
		case r.From == r.To:
			parts[i] = strconv.Itoa(r.From)
		default:
			parts[i] = strconv.Itoa(r.From) + "-" + strconv.Itoa(r.To)
		}
	}

	return strings.Join(parts, ",")
}

// Apply returns the selected cells of row, in selection order
func (s Selection) Apply(row []string) ([]string, error) {
	out := make([]string, 0, len(row))
	for _, r := range s {
		to := r.To
		if to == 0 {
			to = len(row)
		}
		if r.From > len(row) || to > len(row) {
			return nil, errors.New().WithData(ErrColumnOutOfRange, struct {
				Range string
				Width int
			}{
				Range: Selection{r}.String(),
				Width: len(row),
			})
		}
		out = append(out, row[r.From-1:to]...)
	}

	return out, nil
}

// Select applies the selection to every row of t
func (s Selection) Select(t Table) (Table, error) {
	rows := make([][]string, 0, t.Len())
	for _, row := range t.Rows() {
		selected, err := s.Apply(row)
		if err != nil {
			return Empty(), err
		}
		rows = append(rows, selected)
	}

	return New(rows), nil
}
