package compute

import (
	"context"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

func (p *Pipeline) sourceTable(ctx context.Context, kind Kind, ref string) (table.Table, error) {
	if p.Env == nil {
		return table.Empty(), errors.New().WithData(ErrReferenceFailed, struct {
			Kind Kind
			Ref  string
		}{
			Kind: kind,
			Ref:  ref,
		})
	}
	t, err := p.Env.SourceTable(ctx, ref)
	if err != nil {
		return table.Empty(), errors.New().Wrap(ErrReferenceFailed, err)
	}

	return t, nil
}

func (p *Pipeline) tableUnion(ctx context.Context, t table.Table, op *TableUnion) (table.Table, error) {
	tables := make([]table.Table, 0, len(op.Tables)+1)
	tables = append(tables, t)
	for _, ref := range op.Tables {
		other, err := p.sourceTable(ctx, KindTableUnion, ref)
		if err != nil {
			return table.Empty(), err
		}
		tables = append(tables, other)
	}

	return table.Union(tables...), nil
}

func (p *Pipeline) tableJoin(ctx context.Context, t table.Table, op *TableJoin) (table.Table, error) {
	right, err := p.sourceTable(ctx, KindTableJoin, op.RightTable)
	if err != nil {
		return table.Empty(), err
	}

	return table.Join(t, right, table.JoinSpec{
		LeftKeyColumn:    op.LeftKeyColumn,
		RightKeyColumn:   op.RightKeyColumn,
		KeyType:          table.KeyType(op.KeyType),
		DefaultRightLine: ParseLine(op.DefaultRightLine),
	})
}

// ParseLine splits a ";"-separated literal line, nil when empty
func ParseLine(line string) []string {
	if line == "" {
		return nil
	}
	parsed := table.FromText(line)
	if parsed.IsEmpty() {
		return nil
	}

	return parsed.Row(0)
}
