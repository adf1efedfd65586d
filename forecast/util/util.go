// Package util holds text helpers for the table printers
package util

import (
	"fmt"
	"io"
	"strings"
)

// IndentExpand repeats indent growth times
func IndentExpand(indent string, growth int) string {
	if growth <= 0 {
		return ""
	}
	return strings.Repeat(indent, growth)
}

// Line writes one prefixed, indented and newline terminated line
func Line(w io.Writer, prefix, indent string, growth int, format string, args ...any) error {
	_, err := fmt.Fprintf(w, "%s%s"+format+"\n", append([]any{prefix, IndentExpand(indent, growth)}, args...)...)
	return err
}
