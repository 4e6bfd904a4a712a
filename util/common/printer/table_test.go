package printer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func TestParseTableData(t *testing.T) {
	raw, err := json.Marshal([]map[string]any{
		{"name": "main", "type": "Local"},
		{"name": "backup"},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		mapping ColumnMapping
		header  []string
		rows    [][]string
	}{
		{
			name:    "mapped columns keep mapping order",
			mapping: ColumnMapping{{"type", "Type"}, {"name", "Storage"}},
			header:  []string{"Type", "Storage"},
			rows:    [][]string{{"Local", "main"}, {"-", "backup"}},
		},
		{
			name:   "unmapped columns are sorted",
			header: []string{"name", "type"},
			rows:   [][]string{{"main", "Local"}, {"backup", "-"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows, err := parseTableData(raw, tt.mapping)
			require.NoError(t, err)
			assert.Equal(t, tt.header, header)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestParseTableDataEmpty(t *testing.T) {
	header, rows, err := parseTableData([]byte(`[]`), nil)
	require.NoError(t, err)
	assert.Nil(t, header)
	assert.Nil(t, rows)

	_, _, err = parseTableData([]byte(`{"not":"a list"}`), nil)
	assert.Error(t, err)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatJSON, []row{{Name: "main", Type: "Local", Count: 2}}, nil))

	var decoded []row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []row{{Name: "main", Type: "Local", Count: 2}}, decoded)
}

func TestPrintTablePlain(t *testing.T) {
	style.Init(false)
	pterm.DisableColor()
	t.Cleanup(func() {
		style.Init(true)
		pterm.EnableColor()
	})

	var buf bytes.Buffer
	err := Print(&buf, FormatTable, []row{{Name: "main", Type: "Local", Count: 2}}, ColumnMapping{{"name", "Name"}, {"count", "Repositories"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Repositories")
	assert.Contains(t, buf.String(), "main")
	assert.NotContains(t, buf.String(), "Local")
}

func TestPrintEmptyAndUnknownFormat(t *testing.T) {
	style.Init(false)
	t.Cleanup(func() { style.Init(true) })

	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatTable, []row{}, nil))
	assert.Contains(t, buf.String(), "No results.")

	assert.Error(t, Print(&buf, "xml", []row{}, nil))
}
