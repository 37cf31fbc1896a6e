package compute

import (
	"strconv"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

const (
	defaultArraySeparator  = ","
	defaultResultSeparator = "|"
	perBitSeparator        = " - "
)

func (p *Pipeline) translationTable(kind Kind, name string) (*TranslationTable, error) {
	if p.Env != nil {
		if tt, ok := p.Env.TranslationTable(name); ok && tt != nil {
			return tt, nil
		}
	}

	return nil, errors.New().WithData(ErrMissingTranslationTable, struct {
		Kind             Kind
		TranslationTable string
	}{
		Kind:             kind,
		TranslationTable: name,
	})
}

func (p *Pipeline) translate(t table.Table, op *Translate) (table.Table, error) {
	tt, err := p.translationTable(KindTranslate, op.TranslationTable)
	if err != nil {
		return table.Empty(), err
	}

	return p.mapCell(t, KindTranslate, op.Column, func(cell string, _ []string) (string, error) {
		if v, ok := tt.Lookup(cell); ok {
			return v, nil
		}

		return cell, nil
	})
}

func (p *Pipeline) arrayTranslate(t table.Table, op *ArrayTranslate) (table.Table, error) {
	tt, err := p.translationTable(KindArrayTranslate, op.TranslationTable)
	if err != nil {
		return table.Empty(), err
	}
	arraySep := op.ArraySeparator
	if arraySep == "" {
		arraySep = defaultArraySeparator
	}
	resultSep := op.ResultSeparator
	if resultSep == "" {
		resultSep = defaultResultSeparator
	}

	return p.mapCell(t, KindArrayTranslate, op.Column, func(cell string, _ []string) (string, error) {
		if cell == "" {
			return "", nil
		}
		elements := strings.Split(cell, arraySep)
		out := make([]string, 0, len(elements))
		for _, e := range elements {
			v, ok := tt.Lookup(strings.TrimSpace(e))
			if !ok {
				v = e
			}
			if v != "" {
				out = append(out, v)
			}
		}

		return strings.Join(out, resultSep), nil
	})
}

func (p *Pipeline) perBitTranslation(t table.Table, op *PerBitTranslation) (table.Table, error) {
	tt, err := p.translationTable(KindPerBitTranslation, op.TranslationTable)
	if err != nil {
		return table.Empty(), err
	}
	for _, bit := range op.BitList {
		if bit < 0 || bit > 63 {
			return table.Empty(), errors.New().WithData(ErrInvalidOperator, struct {
				Kind Kind
				Bit  int
			}{
				Kind: KindPerBitTranslation,
				Bit:  bit,
			})
		}
	}

	return p.mapCell(t, KindPerBitTranslation, op.Column, func(cell string, _ []string) (string, error) {
		mask, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		if err != nil {
			return "", skipRow("perBitTranslation: %q is not an integer", cell)
		}

		out := make([]string, 0, len(op.BitList))
		for _, bit := range op.BitList {
			state := "0"
			if mask&(1<<uint(bit)) != 0 {
				state = "1"
			}
			// Only literal "<bit>,<state>" entries apply, a default would repeat per bit
			if v, ok := tt.Exact(strconv.Itoa(bit) + "," + state); ok && v != "" {
				out = append(out, v)
			}
		}

		return strings.Join(out, perBitSeparator), nil
	})
}
