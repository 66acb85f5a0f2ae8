package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output handles formatted output for the CLI. With --json set, structured
// results are emitted as indented JSON and decoration is suppressed.
type Output struct {
	writer   io.Writer
	jsonMode bool

	success *color.Color
	failure *color.Color
	warning *color.Color
	info    *color.Color
	bold    *color.Color
	dim     *color.Color
}

// NewOutput creates an Output bound to the command's stdout.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
		success:  color.New(color.FgGreen),
		failure:  color.New(color.FgRed),
		warning:  color.New(color.FgYellow),
		info:     color.New(color.FgCyan),
		bold:     color.New(color.Bold),
		dim:      color.New(color.Faint),
	}
}

// IsJSON reports whether JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data any) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf writes a formatted message.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

// Println writes a line.
func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.writer, args...)
}

// Success writes a green line.
func (o *Output) Success(format string, args ...any) {
	o.success.Fprintf(o.writer, format+"\n", args...)
}

// Error writes a red line.
func (o *Output) Error(format string, args ...any) {
	o.failure.Fprintf(o.writer, format+"\n", args...)
}

// Warning writes a yellow line.
func (o *Output) Warning(format string, args ...any) {
	o.warning.Fprintf(o.writer, format+"\n", args...)
}

// Info writes a cyan line.
func (o *Output) Info(format string, args ...any) {
	o.info.Fprintf(o.writer, format+"\n", args...)
}

// Bold writes a bold line.
func (o *Output) Bold(format string, args ...any) {
	o.bold.Fprintf(o.writer, format+"\n", args...)
}

// Dim writes a faint line.
func (o *Output) Dim(format string, args ...any) {
	o.dim.Fprintf(o.writer, format+"\n", args...)
}

// Signed returns text colored green for positive values and red for
// negative ones.
func (o *Output) Signed(value float64, text string) string {
	switch {
	case value > 0:
		return o.success.Sprint(text)
	case value < 0:
		return o.failure.Sprint(text)
	default:
		return text
	}
}

// Table renders rows with columns padded to the widest cell.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a table with the given headers.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{headers: headers, output: output}
}

// AddRow appends one row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	t.output.bold.Fprintln(t.output.writer, joinPadded(t.headers, widths))

	var sep []string
	for _, w := range widths {
		sep = append(sep, strings.Repeat("-", w))
	}
	t.output.dim.Fprintln(t.output.writer, strings.Join(sep, "--"))

	for _, row := range t.rows {
		fmt.Fprintln(t.output.writer, joinPadded(row, widths))
	}
}

func joinPadded(cells []string, widths []int) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		parts = append(parts, cell+strings.Repeat(" ", widths[i]-len(cell)))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
