package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ANSI color codes
const (
	reset   = "\033[0m"
	fgRed   = "\033[1;31m"
	fgGreen = "\033[1;32m"
	fgCyan  = "\033[36m"
	fgWhite = "\033[1;37m"
)

// Printer writes command results in the selected format.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format string
	color  bool
}

func NewPrinter(out, errOut io.Writer, format string, color bool) (*Printer, error) {
	switch format {
	case "", FormatTable:
		format = FormatTable
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q: use table, json or yaml", format)
	}
	return &Printer{out: out, errOut: errOut, format: format, color: color}, nil
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + reset
}

func (p *Printer) Success(format string, a ...interface{}) {
	fmt.Fprintln(p.out, p.paint(fgGreen, "✓ "+fmt.Sprintf(format, a...)))
}

func (p *Printer) Error(format string, a ...interface{}) {
	fmt.Fprintln(p.errOut, p.paint(fgRed, "✗ "+fmt.Sprintf(format, a...)))
}

func (p *Printer) Info(format string, a ...interface{}) {
	fmt.Fprintln(p.out, p.paint(fgCyan, fmt.Sprintf(format, a...)))
}

// Structured reports whether results should be encoded rather than tabulated.
func (p *Printer) Structured() bool {
	return p.format != FormatTable
}

// Encode writes v as JSON or YAML. Table format falls back to JSON.
// YAML keeps the JSON field names and key order.
func (p *Printer) Encode(v interface{}) error {
	if p.format != FormatYAML {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle clears the flow and quoting styles the JSON source left on n.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Render writes the table with padded columns.
func (p *Printer) Render(t *Table) {
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, header := range t.headers {
		fmt.Fprintf(&b, "%-*s  ", widths[i], header)
	}
	fmt.Fprintln(p.out, p.paint(fgWhite, strings.TrimRight(b.String(), " ")))

	b.Reset()
	for i := range t.headers {
		b.WriteString(strings.Repeat("-", widths[i]) + "  ")
	}
	fmt.Fprintln(p.out, strings.TrimRight(b.String(), " "))

	for _, row := range t.rows {
		b.Reset()
		for i, cell := range row {
			if i < len(widths) {
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(p.out, strings.TrimRight(b.String(), " "))
	}
}
