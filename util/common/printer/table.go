// Package printer renders command results as tables or JSON.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/pterm/pterm"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ColumnMapping defines a mapping between original field names and display names
// Format: [["originalField", "Display Name"], ...]
type ColumnMapping [][]string

// Print writes data in the requested format. data must marshal to a JSON
// array of objects for the table format.
func Print(w io.Writer, format string, data any, mapping ColumnMapping) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatTable, "":
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal data to JSON: %w", err)
		}
		headers, rows, err := parseTableData(raw, mapping)
		if err != nil {
			return err
		}
		if headers == nil {
			fmt.Fprintln(w, style.DimText.Render("No results."))
			return nil
		}
		if style.Enabled {
			fmt.Fprintln(w, renderStyledTable(headers, rows))
			return nil
		}
		out, err := renderPtermTable(headers, rows)
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
		fmt.Fprintln(w, out)
		return nil
	default:
		return fmt.Errorf("unsupported format %q, expected %s or %s", format, FormatTable, FormatJSON)
	}
}

// parseTableData converts a JSON array + column mapping into headers and string rows.
func parseTableData(raw []byte, mapping ColumnMapping) ([]string, [][]string, error) {
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	var fields, header []string
	if len(mapping) > 0 {
		for _, m := range mapping {
			if len(m) >= 2 {
				fields = append(fields, m[0])
				header = append(header, m[1])
			}
		}
	} else {
		for k := range rows[0] {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		header = fields
	}

	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, len(fields))
		for i, f := range fields {
			val, ok := r[f]
			if !ok || val == nil {
				row[i] = "-"
				continue
			}
			row[i] = fmt.Sprint(val)
		}
		tableRows = append(tableRows, row)
	}
	return header, tableRows, nil
}

// renderStyledTable renders a table using lipgloss/table with the project's colour theme.
func renderStyledTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(style.Cyan).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().
		Foreground(style.White).
		Padding(0, 1)
	dimCellStyle := lipgloss.NewStyle().
		Foreground(style.Dim).
		Padding(0, 1)

	t := lgtable.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(style.Subtle)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			if row%2 == 0 {
				return cellStyle
			}
			return dimCellStyle
		})
	for _, r := range rows {
		t = t.Row(r...)
	}
	return t.Render()
}

// renderPtermTable renders a plain boxed table for non-TTY / no-color output.
func renderPtermTable(headers []string, rows [][]string) (string, error) {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.
		WithHasHeader().
		WithBoxed(true).
		WithData(data).
		Srender()
}
