// Package output formats the line-oriented CLI messages of filesearch.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// idsPerLine bounds how many record ids Records prints on one line.
const idsPerLine = 10

// Writer prints status lines to a terminal or pipe. Write errors are
// ignored; there is nowhere better to report them.
type Writer struct {
	out io.Writer
}

// New creates a Writer on out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints msg after icon, or indented under the previous line when
// icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf is Status with formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints msg with a checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf is Success with formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warningf prints a formatted warning.
func (w *Writer) Warningf(format string, args ...any) {
	w.Status("⚠️ ", fmt.Sprintf(format, args...))
}

// Records prints record ids as indented, comma separated lines.
func (w *Writer) Records(ids []int64) {
	for start := 0; start < len(ids); start += idsPerLine {
		end := min(start+idsPerLine, len(ids))
		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		w.Status("", strings.Join(parts, ", "))
	}
}

// Tally describes task progress, e.g. "4/10 records, 1 failed".
func Tally(processed, total, failed int) string {
	s := fmt.Sprintf("%d/%d record", processed, total)
	if total != 1 {
		s += "s"
	}
	if failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}
