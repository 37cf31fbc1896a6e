package source

import (
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"gopkg.in/yaml.v3"
)

// List is an ordered set of sources. It decodes from a sequence or from a
// mapping whose keys become source names.
type List []Source

// UnmarshalYAML decodes sources discriminated by "type"
func (l *List) UnmarshalYAML(node *yaml.Node) error {
	errFactory := errors.New()

	var out List
	switch node.Kind {
	case yaml.SequenceNode:
		out = make(List, 0, len(node.Content))
		for _, item := range node.Content {
			src, err := decodeSource(item)
			if err != nil {
				return err
			}
			out = append(out, src)
		}
	case yaml.MappingNode:
		out = make(List, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			src, err := decodeSource(node.Content[i+1])
			if err != nil {
				return err
			}
			if src.Base().Name == "" {
				src.Base().Name = node.Content[i].Value
			}
			out = append(out, src)
		}
	default:
		return errFactory.Newf(ErrInvalidSource, "line %d: sources must be a sequence or a mapping", node.Line)
	}
	*l = out

	return nil
}

func decodeSource(node *yaml.Node) (Source, error) {
	var header struct {
		Type Kind   `yaml:"type"`
		From string `yaml:"from"`
	}
	if err := node.Decode(&header); err != nil {
		return nil, err
	}
	src, ok := newByKind(header.Type)
	if !ok {
		return nil, errors.New().Newf(ErrUnknownSource, "line %d: unknown source type %q", node.Line, header.Type)
	}
	if err := node.Decode(src); err != nil {
		return nil, err
	}
	// a copy names its origin with "from"
	if ref, isRef := src.(*Reference); isRef && header.Type == "copy" && ref.Value == "" {
		ref.Value = "%" + ReferenceKey(header.From) + "%"
	}

	return src, nil
}
