package table_test

import (
	"testing"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInnerJoin(t *testing.T) {
	left := table.New([][]string{{"1", "x"}, {"2", "y"}})
	right := table.New([][]string{{"2", "Z"}})

	got, err := table.Join(left, right, table.JoinSpec{LeftKeyColumn: 1, RightKeyColumn: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2", "y", "2", "Z"}}, got.Rows())
}

func TestLeftJoinWithDefaultLine(t *testing.T) {
	left := table.New([][]string{{"1", "x"}, {"2", "y"}})
	right := table.New([][]string{{"Z", "2"}, {"W", "2"}})

	got, err := table.Join(left, right, table.JoinSpec{
		LeftKeyColumn:    1,
		RightKeyColumn:   2,
		DefaultRightLine: []string{"none", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"1", "x", "none", ""},
		{"2", "y", "Z", "2"},
		{"2", "y", "W", "2"},
	}, got.Rows())
}

func TestNumericJoin(t *testing.T) {
	left := table.New([][]string{{"1.0", "a"}, {"abc", "b"}, {"3"}})
	right := table.New([][]string{{"1", "one"}, {"03", "three"}})

	got, err := table.Join(left, right, table.JoinSpec{LeftKeyColumn: 1, RightKeyColumn: 1, KeyType: table.KeyTypeNumeric})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1.0", "a", "1", "one"}, {"3", "03", "three"}}, got.Rows())

	str, err := table.Join(left, right, table.JoinSpec{LeftKeyColumn: 1, RightKeyColumn: 1, KeyType: table.KeyTypeString})
	require.NoError(t, err)
	assert.True(t, str.IsEmpty())
}

func TestWbemJoin(t *testing.T) {
	left := table.New([][]string{{`root/cimv2:CIM_Fan.DeviceID="F1"`, "fan"}})
	right := table.New([][]string{{`cim_fan.deviceid="f1"`, "ok"}})

	got, err := table.Join(left, right, table.JoinSpec{LeftKeyColumn: 1, RightKeyColumn: 1, KeyType: table.KeyTypeWbem})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "ok", got.Row(0)[3])
}

func TestJoinShortRowsAreDropped(t *testing.T) {
	left := table.New([][]string{{"a"}, {"b", "k"}})
	right := table.New([][]string{{"k", "v"}, {}})

	got, err := table.Join(left, right, table.JoinSpec{LeftKeyColumn: 2, RightKeyColumn: 1})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"b", "k", "k", "v"}}, got.Rows())
}

func TestJoinRejectsBadSpec(t *testing.T) {
	_, err := table.Join(table.Empty(), table.Empty(), table.JoinSpec{LeftKeyColumn: 0, RightKeyColumn: 1})
	assert.True(t, errors.HasCode(err, table.ErrColumnOutOfRange))

	_, err = table.Join(table.Empty(), table.Empty(), table.JoinSpec{LeftKeyColumn: 1, RightKeyColumn: 1, KeyType: "X"})
	assert.True(t, errors.HasCode(err, table.ErrInvalidKeyType))
}
