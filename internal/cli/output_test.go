package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	ID    string `json:"id"`
}

func TestNewPrinter_Formats(t *testing.T) {
	for _, f := range []string{"", FormatTable, FormatJSON, FormatYAML} {
		_, err := NewPrinter(&bytes.Buffer{}, &bytes.Buffer{}, f, false)
		assert.NoError(t, err, f)
	}
	_, err := NewPrinter(&bytes.Buffer{}, &bytes.Buffer{}, "xml", false)
	assert.Error(t, err)
}

func TestPrinter_EncodeJSON(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter(&out, &out, FormatJSON, false)
	require.NoError(t, err)

	require.NoError(t, p.Encode(sample{Name: "a", Count: 2, ID: "007"}))
	assert.JSONEq(t, `{"name":"a","count":2,"id":"007"}`, out.String())
}

func TestPrinter_EncodeYAMLKeepsOrderAndTypes(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter(&out, &out, FormatYAML, false)
	require.NoError(t, err)

	require.NoError(t, p.Encode(sample{Name: "a", Count: 2, ID: "007"}))
	assert.Equal(t, "name: a\ncount: 2\nid: \"007\"\n", out.String())
}

func TestPrinter_RenderTable(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter(&out, &out, FormatTable, false)
	require.NoError(t, err)

	table := NewTable("NAME", "VALUE")
	table.AddRow("partitions", "3")
	table.AddRow("topic", "dagpenger.behov.packet")
	p.Render(table)

	lines := bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, "NAME        VALUE", string(lines[0]))
	assert.Equal(t, "----------  ----------------------", string(lines[1]))
	assert.Equal(t, "partitions  3", string(lines[2]))
}

func TestPrinter_Messages(t *testing.T) {
	var out, errOut bytes.Buffer
	p, err := NewPrinter(&out, &errOut, FormatTable, false)
	require.NoError(t, err)

	p.Success("done %d", 1)
	p.Error("failed")
	p.Info("plain")

	assert.Equal(t, "✓ done 1\nplain\n", out.String())
	assert.Equal(t, "✗ failed\n", errOut.String())
}

func TestPrinter_Color(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPrinter(&out, &out, FormatTable, true)
	require.NoError(t, err)

	p.Success("ok")
	assert.Contains(t, out.String(), "\033[1;32m")
}
