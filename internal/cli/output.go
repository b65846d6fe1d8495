package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"ochotona/internal/core/entity"
)

// printJSON writes indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows aligned under the header.
func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// printResult writes data as JSON in --json mode, as a table otherwise.
func (a *app) printResult(data any, header []string, rows [][]string) error {
	if a.cfg != nil && a.cfg.JSON {
		return printJSON(a.out, data)
	}
	return printTable(a.out, header, rows)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprint(*p)
}

// refLabel shows the embedded record through label, the bare id when only the id is known.
func refLabel[T any](ref entity.Ref[T], label func(T) string) string {
	if !ref.IsSet() {
		return ""
	}
	if ref.Record != nil {
		if l := label(*ref.Record); l != "" {
			return l
		}
	}
	return ref.ID.String()
}
