package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/records/pkg/record"
)

// writeStructured encodes v as JSON or YAML according to --output.
func writeStructured(w io.Writer, v any) error {
	switch flags.output {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

// printAttributes writes an entity's attribute definitions.
func printAttributes(w io.Writer, e *record.EntityType) error {
	attrs := e.Attributes()
	if flags.output != outputTable {
		return writeStructured(w, struct {
			Entity     string             `json:"entity" yaml:"entity"`
			Table      string             `json:"table" yaml:"table"`
			Attributes []record.Attribute `json:"attributes" yaml:"attributes"`
		}{e.Name(), e.Table(), attrs})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (table %s)\n", e.Name(), e.Table())
	fmt.Fprintln(tw, "NAME\tTYPE\tNULL\tKEY\tDEFAULT")
	for _, a := range attrs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Name, a.Type, yesNo(a.Nullable), mark(a.PrimaryKey, "PK"), yesNo(a.HasDefault))
	}
	return tw.Flush()
}

// printRecords writes records as a table, or as a JSON/YAML list.
func printRecords(w io.Writer, e *record.EntityType, records []*record.Record) error {
	if flags.output != outputTable {
		out := make([]map[string]any, len(records))
		for i, r := range records {
			out[i] = r.Attributes()
		}
		return writeStructured(w, out)
	}

	attrs := e.Attributes()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = strings.ToUpper(a.Name)
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, r := range records {
		values := r.Attributes()
		cells := make([]string, len(attrs))
		for i, a := range attrs {
			cells[i] = cell(values[a.Name])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// printRecord writes a single record, one attribute per line in table mode.
func printRecord(w io.Writer, r *record.Record) error {
	if flags.output != outputTable {
		return writeStructured(w, r.Attributes())
	}
	values := r.Attributes()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, a := range r.Entity().Attributes() {
		fmt.Fprintf(tw, "%s:\t%s\n", a.Name, cell(values[a.Name]))
	}
	return tw.Flush()
}

// cell renders one value for table output.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("0x%x", x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func yesNo(b bool) string { return mark(b, "yes") }

func mark(b bool, s string) string {
	if b {
		return s
	}
	return ""
}
