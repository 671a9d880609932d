package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printJSON renders a command's result as indented JSON on stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")

	return enc.Encode(v)
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// progressPrinter renders upload progress to w. On a terminal the line
// is redrawn in place; otherwise one line is printed per report so logs
// stay readable.
type progressPrinter struct {
	w        io.Writer
	terminal bool
	active   bool
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{
		w:        os.Stderr,
		terminal: isatty.IsTerminal(os.Stderr.Fd()),
	}
}

func (p *progressPrinter) report(uploaded, total int64) {
	percent := 100.0
	if total > 0 {
		percent = 100 * float64(uploaded) / float64(total)
	}

	if p.terminal {
		fmt.Fprintf(p.w, "\r%6.2f%% of %s uploaded", percent, formatSize(total))
		p.active = true

		return
	}

	fmt.Fprintf(p.w, "%.2f%% of %d uploaded\n", percent, total)
}

// finish terminates an in-place progress line.
func (p *progressPrinter) finish() {
	if p.active {
		fmt.Fprintln(p.w)
		p.active = false
	}
}
