// Copyright (c) 2025 Cosq
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package output renders query results in the formats the CLI supports:
// JSON (the default), CSV, a terminal table, and Go text templates.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"

	"github.com/pterm/pterm"
)

// Format selects how results are rendered.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatTable    Format = "table"
	FormatTemplate Format = "template"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatTable, FormatTemplate:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (expected json, csv, table or template)", s)
}

// Writer renders documents to an underlying stream in one format.
type Writer struct {
	w      io.Writer
	format Format
	tmpl   *template.Template
}

// New creates a Writer. tmplText is required for FormatTemplate and ignored
// otherwise.
func New(w io.Writer, format Format, tmplText string) (*Writer, error) {
	out := &Writer{w: w, format: format}
	if format == FormatTemplate {
		if tmplText == "" {
			return nil, fmt.Errorf("template output requires a template (set one in the query file or pass --template)")
		}
		tmpl, err := template.New("output").Parse(tmplText)
		if err != nil {
			return nil, fmt.Errorf("parsing output template: %w", err)
		}
		out.tmpl = tmpl
	}
	return out, nil
}

// WriteDocuments renders a single result set.
func (o *Writer) WriteDocuments(docs []any) error {
	switch o.format {
	case FormatJSON:
		return o.writeJSON(docs)
	case FormatCSV:
		return o.writeCSV(docs)
	case FormatTable:
		return o.writeTable(docs)
	case FormatTemplate:
		return o.tmpl.Execute(o.w, docs)
	}
	return fmt.Errorf("unknown output format %q", o.format)
}

// WriteStepResults renders a pipeline's per-step results. JSON emits one
// object keyed by step name; the other formats render each step's documents
// under a section header.
func (o *Writer) WriteStepResults(results map[string][]any) error {
	if o.format == FormatJSON {
		return o.writeJSON(results)
	}
	if o.format == FormatTemplate {
		return o.tmpl.Execute(o.w, results)
	}

	steps := make([]string, 0, len(results))
	for name := range results {
		steps = append(steps, name)
	}
	sort.Strings(steps)

	for _, name := range steps {
		pterm.DefaultSection.WithWriter(o.w).Println(name)
		if err := o.WriteDocuments(results[name]); err != nil {
			return err
		}
	}
	return nil
}

func (o *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *Writer) writeCSV(docs []any) error {
	columns := collectColumns(docs)
	if len(columns) == 0 {
		return nil
	}

	cw := csv.NewWriter(o.w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, doc := range docs {
		obj, ok := doc.(map[string]any)
		if !ok {
			// Scalar results (e.g. SELECT VALUE) get a single column.
			if err := cw.Write([]string{cellValue(doc)}); err != nil {
				return err
			}
			continue
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok {
				row[i] = cellValue(v)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (o *Writer) writeTable(docs []any) error {
	columns := collectColumns(docs)
	if len(columns) == 0 {
		fmt.Fprintln(o.w, "(no results)")
		return nil
	}

	data := pterm.TableData{columns}
	for _, doc := range docs {
		obj, ok := doc.(map[string]any)
		if !ok {
			data = append(data, []string{cellValue(doc)})
			continue
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok {
				row[i] = cellValue(v)
			}
		}
		data = append(data, row)
	}
	return pterm.DefaultTable.WithWriter(o.w).WithHasHeader().WithData(data).Render()
}

// collectColumns returns the sorted union of field names across all object
// documents.
func collectColumns(docs []any) []string {
	seen := make(map[string]struct{})
	scalar := false
	for _, doc := range docs {
		obj, ok := doc.(map[string]any)
		if !ok {
			scalar = true
			continue
		}
		for k := range obj {
			seen[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	if len(columns) == 0 && scalar {
		columns = []string{"value"}
	}
	return columns
}

// cellValue stringifies one field for CSV and table cells. Nested objects
// and arrays are emitted as compact JSON.
func cellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; keep integral values whole.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
