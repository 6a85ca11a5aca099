package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egemenmermer/business-extractor/internal/model"
)

var items = []model.Business{
	{ID: "1", BusinessName: "Café, Bar", City: "Paris", Latitude: 48.8566, Longitude: 2.3522},
	{ID: "2", BusinessName: `The "Quote"`, Email: "a@b.c"},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, items))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Café, Bar", rows[1][1])
	assert.Equal(t, "48.856600", rows[1][12])
	assert.Equal(t, `The "Quote"`, rows[2][1])
	assert.Equal(t, "a@b.c", rows[2][10])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestWriteCSVFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteCSVFile(path, items))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Paris")

	require.NoError(t, WriteCSVFile(path, items[:1]))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Quote")
}
