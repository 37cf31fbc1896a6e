package compute

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

// expand replaces the cell at column with each record's values, one output
// row per record, in record order
func expand(row []string, column int, records [][]string) [][]string {
	out := make([][]string, 0, len(records))
	for _, values := range records {
		r := make([]string, 0, len(row)-1+len(values))
		r = append(r, row[:column-1]...)
		r = append(r, values...)
		r = append(r, row[column:]...)
		out = append(out, r)
	}

	return out
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return parts
}

func (p *Pipeline) json2csv(t table.Table, op *JSON2CSV) (table.Table, error) {
	if len(op.Properties) == 0 {
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, KindJSON2CSV)
	}
	column := op.Column
	if column == 0 {
		column = 1
	}
	entryPath := splitPath(op.EntryKey)

	return p.eachRow(t, KindJSON2CSV, func(row []string) ([][]string, error) {
		if err := checkColumn(row, column); err != nil {
			return nil, err
		}

		dec := json.NewDecoder(strings.NewReader(row[column-1]))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return nil, skipRow("json2Csv: %v", err)
		}

		var records [][]string
		for _, record := range jsonRecords(doc, entryPath) {
			values := make([]string, len(op.Properties))
			for i, prop := range op.Properties {
				values[i] = jsonString(jsonPath(record, splitPath(prop)))
			}
			records = append(records, values)
		}

		return expand(row, column, records), nil
	})
}

// jsonRecords walks path and returns the records found there. Arrays met on
// the way are traversed element by element.
func jsonRecords(node any, path []string) []any {
	if arr, ok := node.([]any); ok {
		var out []any
		for _, e := range arr {
			out = append(out, jsonRecords(e, path)...)
		}
		return out
	}
	if len(path) == 0 {
		if node == nil {
			return nil
		}
		return []any{node}
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	child, ok := obj[path[0]]
	if !ok {
		return nil
	}

	return jsonRecords(child, path[1:])
}

func jsonPath(node any, path []string) any {
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[key]
	}

	return node
}

func jsonString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

type xmlNode struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*xmlNode
}

func parseXML(doc string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = false

	root := &xmlNode{}
	stack := []*xmlNode{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		switch el := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: el.Name.Local, attrs: make(map[string]string, len(el.Attr))}
			for _, a := range el.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			top.text.Write(bytes.TrimSpace(el))
		}
	}
	if len(root.children) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	return root, nil
}

// find returns every descendant reached by following path from n
func (n *xmlNode) find(path []string) []*xmlNode {
	if len(path) == 0 {
		return []*xmlNode{n}
	}
	var out []*xmlNode
	for _, c := range n.children {
		if c.name == path[0] {
			out = append(out, c.find(path[1:])...)
		}
	}

	return out
}

// value reads "child/sub", "@attr" or "child/@attr" relative to n
func (n *xmlNode) value(path []string) string {
	if len(path) == 0 {
		return n.text.String()
	}
	if strings.HasPrefix(path[0], "@") {
		return n.attrs[path[0][1:]]
	}
	for _, c := range n.children {
		if c.name == path[0] {
			return c.value(path[1:])
		}
	}

	return ""
}

func (p *Pipeline) xml2csv(t table.Table, op *XML2CSV) (table.Table, error) {
	if len(op.Properties) == 0 || op.RecordTag == "" {
		return table.Empty(), errors.New().WithData(ErrInvalidOperator, KindXML2CSV)
	}
	column := op.Column
	if column == 0 {
		column = 1
	}
	recordPath := splitPath(op.RecordTag)

	return p.eachRow(t, KindXML2CSV, func(row []string) ([][]string, error) {
		if err := checkColumn(row, column); err != nil {
			return nil, err
		}

		root, err := parseXML(row[column-1])
		if err != nil {
			return nil, skipRow("xml2Csv: %v", err)
		}

		var records [][]string
		for _, record := range root.find(recordPath) {
			values := make([]string, len(op.Properties))
			for i, prop := range op.Properties {
				values[i] = record.value(splitPath(prop))
			}
			records = append(records, values)
		}

		return expand(row, column, records), nil
	})
}
