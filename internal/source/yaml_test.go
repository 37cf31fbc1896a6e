package source_test

import (
	"context"
	"testing"

	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeMapping(t *testing.T) {
	doc := `
source(1):
  type: snmpTable
  oid: 1.3.6.1.4.1.674
  selectColumns: "1,3"
  forceSerialization: true
source(2):
  type: copy
  from: "%enclosure.discovery.source(1)%"
  computes:
  - type: keepColumns
    columnNumbers: [1]
`
	var list source.List
	require.NoError(t, yaml.Unmarshal([]byte(doc), &list))
	require.Len(t, list, 2)

	walk, ok := list[0].(*source.SnmpTable)
	require.True(t, ok)
	assert.Equal(t, "source(1)", walk.Name)
	assert.Equal(t, "1.3.6.1.4.1.674", walk.OID)
	assert.True(t, walk.ForceSerialization)

	cp, ok := list[1].(*source.Reference)
	require.True(t, ok)
	assert.Equal(t, "%enclosure.discovery.source(1)%", cp.Value)
	require.Len(t, cp.Computes, 1)
	assert.Equal(t, compute.KindKeepColumns, cp.Computes[0].Kind())
	assert.Equal(t, []string{"enclosure.discovery.source(1)"}, source.References(cp))
}

func TestDecodeSequence(t *testing.T) {
	doc := `
- type: tableJoin
  leftTable: "%a%"
  rightTable: "%b%"
  leftKeyColumn: 1
  rightKeyColumn: 2
  keyType: WBEM
- type: static
  value: "x;y;"
`
	var list source.List
	require.NoError(t, yaml.Unmarshal([]byte(doc), &list))
	require.Len(t, list, 2)
	assert.Equal(t, source.KindTableJoin, list[0].Kind())
	assert.Equal(t, []string{"a", "b"}, source.References(list[0]))
	assert.Empty(t, source.References(list[1]))
}

func TestDecodeUnknownType(t *testing.T) {
	var list source.List
	err := yaml.Unmarshal([]byte("- type: telnet\n"), &list)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, source.ErrUnknownSource))
}

func TestOsCommandTextProcessing(t *testing.T) {
	output := "Header line\nfan0 : 1200 rpm\n\nfan1 : 900 rpm\n# comment\nfan2 : 0 rpm\ntrailer"
	clients := source.Clients{
		source.ProtocolOS: source.ClientFunc(func(context.Context, source.Host, source.Query) (source.Result, error) {
			return source.TextResult(output), nil
		}),
	}
	cmd := &source.OsCommand{
		Common: source.Common{Key: "fan.discovery.source(1)"},
		TextProcessing: source.TextProcessing{
			Separators:        ": ",
			SelectColumns:     "1,2",
			BeginAtLineNumber: 2,
			EndAtLineNumber:   6,
			ExcludeRegExp:     "^#",
		},
		CommandLine: "sensors",
	}
	r := source.NewResolver(host, newCatalog(cmd), clients)

	got, err := r.Resolve(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"fan0", "1200"}, {"fan1", "900"}, {"fan2", "0"}}, got.Rows())
}

func TestSnmpGetIsSingleCell(t *testing.T) {
	clients := source.Clients{
		source.ProtocolSNMP: source.ClientFunc(func(context.Context, source.Host, source.Query) (source.Result, error) {
			return source.TextResult("Dell;PowerEdge"), nil
		}),
	}
	get := &source.SnmpGet{Common: source.Common{Key: "pre.get"}, OID: "1.3.6.1.2.1.1.1.0"}
	r := source.NewResolver(host, newCatalog(get), clients)

	got, err := r.Resolve(context.Background(), get)
	require.NoError(t, err)
	assert.True(t, table.SingleCell("Dell;PowerEdge").Equal(got))
}
