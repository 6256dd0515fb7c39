package datasource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVSequential(t *testing.T) {
	path := writeTemp(t, "rows.csv", "user_id,name\n1,alice\n2,bob\n")
	table, err := Load(path, "csv", StrategySequential)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	r1, ok := table.Next()
	require.True(t, ok)
	assert.Equal(t, "1", r1["user_id"])

	r2, ok := table.Next()
	require.True(t, ok)
	assert.Equal(t, "2", r2["user_id"])

	_, ok = table.Next()
	assert.False(t, ok)
}

func TestLoadJSONCycle(t *testing.T) {
	path := writeTemp(t, "rows.json", `[{"id":"1"},{"id":"2"}]`)
	table, err := Load(path, "json", StrategyCycle)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 5; i++ {
		row, ok := table.Next()
		require.True(t, ok)
		ids = append(ids, row["id"])
	}
	assert.Equal(t, []string{"1", "2", "1", "2", "1"}, ids)
}

func TestLoadRandomNeverExhausts(t *testing.T) {
	path := writeTemp(t, "rows.csv", "id\n1\n2\n3\n")
	table, err := Load(path, "csv", StrategyRandom)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, ok := table.Next()
		require.True(t, ok)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "rows.txt", "irrelevant")
	_, err := Load(path, "xml", StrategySequential)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.csv", "csv", StrategySequential)
	assert.Error(t, err)
}
