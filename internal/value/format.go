package value

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vk/caniput/internal/idl"
)

// summaryWidth bounds the literal excerpt shown by Summary.
const summaryWidth = 60

// Format renders v in literal syntax. An embedded file renders as its
// one-line summary.
func Format(v Value) string {
	if fv, ok := v.(FileValue); ok {
		return fmt.Sprintf("file(%s)", Summary(fv.File))
	}
	iv, err := ToIDL(v)
	if err != nil {
		return fmt.Sprintf("<%s>", Kind(v))
	}
	return idl.Format(iv)
}

// FormatArgs renders an argument list as `(a, b, ...)`.
func FormatArgs(args Args) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Format(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Summary is a one-line description of a file node.
func Summary(f File) string {
	switch f := f.(type) {
	case Directory:
		if len(f.Entries) == 1 {
			return "1 entry"
		}
		return fmt.Sprintf("%d entries", len(f.Entries))
	case TextFile:
		return fmt.Sprintf("%d bytes %s", len(f), truncate(fmt.Sprintf("%q", string(f))))
	case BinaryFile:
		return fmt.Sprintf("%d bytes", len(f))
	case ValueFile:
		return truncate(Format(f.Value))
	case ArgsFile:
		return truncate(FormatArgs(f.Args))
	}
	return FileKind(f)
}

// FormatFile renders a file tree one node per line, children indented
// under their directory.
func FormatFile(f File) string {
	var sb strings.Builder
	writeFile(&sb, ".", f, 0)
	return sb.String()
}

func writeFile(sb *strings.Builder, name string, f File, depth int) {
	fmt.Fprintf(sb, "%s%s [%s] %s\n", strings.Repeat("  ", depth), name, FileKind(f), Summary(f))
	if d, ok := f.(Directory); ok {
		for _, e := range d.Entries {
			writeFile(sb, e.Name, e.File, depth+1)
		}
	}
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= summaryWidth {
		return s
	}
	r := []rune(s)
	return string(r[:summaryWidth-1]) + "…"
}
