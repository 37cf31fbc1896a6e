package compute

import (
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"gopkg.in/yaml.v3"
)

// List is an ordered pipeline; a compute's index is its position plus one
type List []Compute

// UnmarshalYAML decodes a sequence of computes discriminated by "type"
func (l *List) UnmarshalYAML(node *yaml.Node) error {
	errFactory := errors.New()

	if node.Kind != yaml.SequenceNode {
		return errFactory.Newf(ErrInvalidOperator, "line %d: computes must be a sequence", node.Line)
	}

	out := make(List, 0, len(node.Content))
	for _, item := range node.Content {
		var header struct {
			Type Kind `yaml:"type"`
		}
		if err := item.Decode(&header); err != nil {
			return err
		}
		c, ok := newByKind(header.Type)
		if !ok {
			return errFactory.Newf(ErrUnknownCompute, "line %d: unknown compute type %q", item.Line, header.Type)
		}
		if err := item.Decode(c); err != nil {
			return err
		}
		out = append(out, c)
	}
	*l = out

	return nil
}
