package compute_test

import (
	"testing"

	"github.com/sentrysoftware/metricshub-sub023/internal/compute"
	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDecodeList(t *testing.T) {
	doc := `
- type: translate
  column: 2
  translationTable: StatusTable
- type: keepColumns
  columnNumbers: [1, 3]
- type: perBitTranslation
  column: 1
  bitList: [0, 2]
  translationTable: Bits
`
	var list compute.List
	require.NoError(t, yaml.Unmarshal([]byte(doc), &list))
	require.Len(t, list, 3)

	assert.Equal(t, &compute.Translate{Column: 2, TranslationTable: "StatusTable"}, list[0])
	assert.Equal(t, &compute.KeepColumns{ColumnNumbers: []int{1, 3}}, list[1])
	assert.Equal(t, compute.KindPerBitTranslation, list[2].Kind())
}

func TestDecodeListUnknownType(t *testing.T) {
	var list compute.List
	err := yaml.Unmarshal([]byte("- type: awk\n  script: x\n"), &list)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, compute.ErrUnknownCompute))
}

func TestDecodeTranslationTable(t *testing.T) {
	var tt compute.TranslationTable
	require.NoError(t, yaml.Unmarshal([]byte("OK: ok\nDefault: failed\n"), &tt))

	v, ok := tt.Lookup("ok")
	assert.True(t, ok)
	assert.Equal(t, "ok", v)

	v, ok = tt.Lookup("other")
	assert.True(t, ok)
	assert.Equal(t, "failed", v)
}
