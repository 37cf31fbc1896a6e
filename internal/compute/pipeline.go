package compute

import (
	"context"
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

// Env gives operators access to shared connector data
type Env interface {
	// TranslationTable returns a translation table by name
	TranslationTable(name string) (*TranslationTable, bool)
	// SourceTable resolves another source of the same host and cycle
	SourceTable(ctx context.Context, ref string) (table.Table, error)
}

// RowErrorFunc is notified of every row dropped by a row-local error
type RowErrorFunc func(kind Kind, row int, err error)

// Pipeline applies computes in index order
type Pipeline struct {
	Env        Env
	Log        logger.Logger
	OnRowError RowErrorFunc
}

// Apply runs computes against t with a throwaway pipeline
func Apply(ctx context.Context, t table.Table, computes []Compute, env Env) (table.Table, error) {
	p := &Pipeline{Env: env}

	return p.Apply(ctx, t, computes)
}

// Apply runs computes in order, each receiving the previous result. The first
// pipeline-fatal error aborts the run and is returned with the compute index.
func (p *Pipeline) Apply(ctx context.Context, t table.Table, computes []Compute) (table.Table, error) {
	errFactory := errors.New()

	current := t
	for i, c := range computes {
		if err := ctx.Err(); err != nil {
			return table.Empty(), errFactory.Wrap(ErrCancelled, err)
		}

		next, err := p.applyOne(ctx, current, c)
		if err != nil {
			return table.Empty(), errFactory.Wrap(errors.CodeOf(err), err).
				WithMessage("compute " + strconv.Itoa(i+1) + " (" + string(c.Kind()) + ")")
		}

		p.logger().Debug().
			Int("compute", i+1).
			Str("kind", string(c.Kind())).
			Int("rows_in", current.Len()).
			Int("rows_out", next.Len()).
			Msg("Compute applied")
		current = next
	}

	return current, nil
}

func (p *Pipeline) logger() logger.Logger {
	if p.Log == nil {
		return logger.Nop()
	}

	return p.Log
}

func (p *Pipeline) applyOne(ctx context.Context, t table.Table, c Compute) (table.Table, error) {
	switch op := c.(type) {
	case *Add:
		return p.arithmetic(t, KindAdd, op.Column, op.Value)
	case *Subtract:
		return p.arithmetic(t, KindSubtract, op.Column, op.Value)
	case *Multiply:
		return p.arithmetic(t, KindMultiply, op.Column, op.Value)
	case *Divide:
		return p.arithmetic(t, KindDivide, op.Column, op.Value)
	case *And:
		return p.and(t, op)
	case *Convert:
		return p.convert(t, op)
	case *DuplicateColumn:
		return p.duplicateColumn(t, op)
	case *Extract:
		return p.extract(t, op)
	case *ExtractPropertyFromWbemPath:
		return p.extractWbemProperty(t, op)
	case *Substring:
		return p.substring(t, op)
	case *LeftConcat:
		return p.concat(t, KindLeftConcat, op.Column, op.Value, true)
	case *RightConcat:
		return p.concat(t, KindRightConcat, op.Column, op.Value, false)
	case *Replace:
		return p.replace(t, op)
	case *Translate:
		return p.translate(t, op)
	case *ArrayTranslate:
		return p.arrayTranslate(t, op)
	case *PerBitTranslation:
		return p.perBitTranslation(t, op)
	case *KeepColumns:
		return p.keepColumns(t, op)
	case *KeepOnlyMatchingLines:
		return p.matchLines(t, KindKeepOnlyMatchingLines, op.Column, op.ValueList, op.RegExp, true)
	case *ExcludeMatchingLines:
		return p.matchLines(t, KindExcludeMatchingLines, op.Column, op.ValueList, op.RegExp, false)
	case *JSON2CSV:
		return p.json2csv(t, op)
	case *XML2CSV:
		return p.xml2csv(t, op)
	case *TableUnion:
		return p.tableUnion(ctx, t, op)
	case *TableJoin:
		return p.tableJoin(ctx, t, op)
	default:
		return table.Empty(), errors.New().WithData(ErrUnknownCompute, c.Kind())
	}
}

// eachRow maps every row to zero or more rows. Row-local errors drop the
// row; any other error aborts.
func (p *Pipeline) eachRow(t table.Table, kind Kind, fn func(row []string) ([][]string, error)) (table.Table, error) {
	rows := make([][]string, 0, t.Len())
	for i, row := range t.Rows() {
		out, err := fn(row)
		if err != nil {
			var re *rowError
			if errors.As(err, &re) {
				p.rowError(kind, i+1, re.err)
				continue
			}
			return table.Empty(), err
		}
		rows = append(rows, out...)
	}

	return table.New(rows), nil
}

// mapCell replaces the cell at column with the result of fn
func (p *Pipeline) mapCell(t table.Table, kind Kind, column int, fn func(cell string, row []string) (string, error)) (table.Table, error) {
	return p.eachRow(t, kind, func(row []string) ([][]string, error) {
		if err := checkColumn(row, column); err != nil {
			return nil, err
		}
		value, err := fn(row[column-1], row)
		if err != nil {
			return nil, err
		}
		out := table.CopyRow(row)
		out[column-1] = value

		return [][]string{out}, nil
	})
}

func (p *Pipeline) rowError(kind Kind, row int, err error) {
	p.logger().Debug().
		Str("kind", string(kind)).
		Int("row", row).
		Err(err).
		Msg("Row dropped")
	if p.OnRowError != nil {
		p.OnRowError(kind, row, err)
	}
}

func checkColumn(row []string, column int) error {
	if column < 1 || column > len(row) {
		return errors.New().WithData(table.ErrColumnOutOfRange, struct {
			Column int
			Width  int
		}{
			Column: column,
			Width:  len(row),
		})
	}

	return nil
}

// operand resolves a literal or a "$N" column reference against row
func operand(row []string, value string) (string, error) {
	if n, ok := columnRef(value); ok {
		if err := checkColumn(row, n); err != nil {
			return "", err
		}
		return row[n-1], nil
	}

	return value, nil
}

func columnRef(value string) (int, bool) {
	if len(value) < 2 || value[0] != '$' {
		return 0, false
	}
	n, err := strconv.Atoi(value[1:])
	if err != nil {
		return 0, false
	}

	return n, true
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
