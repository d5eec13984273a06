package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/opcua-bridge/binding"
	"github.com/wippyai/opcua-bridge/client"
	"github.com/wippyai/opcua-bridge/transcoder"
)

// maxShown caps the elements printed per array.
const maxShown = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	structStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	borderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))
)

// renderLayout draws the flattened table of l.
func renderLayout(l *transcoder.Layout) string {
	rows := make([][]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		r := l.Row(i)
		kind := r.Kind.String()
		detail := "width=" + strconv.FormatUint(uint64(r.Width), 10)
		if r.Structured {
			detail = fmt.Sprintf("members=%d span=%d", r.Members, r.Span)
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			r.Path,
			kind,
			strconv.FormatUint(uint64(r.Elements), 10),
			detail,
			strconv.FormatUint(uint64(r.Size), 10),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "path", "kind", "elements", "detail", "size").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			s := lipgloss.NewStyle().Padding(0, 1)
			if col == 2 {
				if l.Row(row).Structured {
					return s.Inherit(structStyle)
				}
				return s.Inherit(typeStyle)
			}
			return s
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render("Layout " + l.TypeName()))
	fmt.Fprintf(&b, " %d rows, %d leaves, %d bytes\n", l.Len(), l.Leaves(), l.Size())
	b.WriteString(t.Render())
	return b.String()
}

// formatBinding renders the current memory of b.
func formatBinding(b *binding.Binding, s *client.Session) string {
	if b == nil {
		return "-"
	}
	if b.Structured {
		if l := s.Layout(); l != nil {
			return fmt.Sprintf("%s [%d bytes] % x", b.TypeName, l.Size(), b.Memory)
		}
		return b.TypeName
	}
	return formatValues(transcoder.View(b.Memory), b.Scalar, int(b.Elements))
}

// formatLeaf renders one leaf region of the structured signal.
func formatLeaf(r transcoder.Row, mem []byte) string {
	t, err := transcoder.ParseScalar(r.Kind.String())
	if err != nil {
		return "?"
	}
	return formatValues(transcoder.View(mem), t, int(r.Elements))
}

func formatValues(v transcoder.View, t wit.Type, n int) string {
	if n == 1 {
		return formatValue(v, t, 0)
	}
	parts := make([]string, 0, min(n, maxShown)+1)
	for i := 0; i < n && i < maxShown; i++ {
		parts = append(parts, formatValue(v, t, i))
	}
	if n > maxShown {
		parts = append(parts, "…")
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatValue(v transcoder.View, t wit.Type, i int) string {
	switch t.(type) {
	case wit.Bool:
		return strconv.FormatBool(v.Bool(i))
	case wit.U8:
		return strconv.FormatUint(uint64(v.U8(i)), 10)
	case wit.S8:
		return strconv.FormatInt(int64(v.S8(i)), 10)
	case wit.U16:
		return strconv.FormatUint(uint64(v.U16(i)), 10)
	case wit.S16:
		return strconv.FormatInt(int64(v.S16(i)), 10)
	case wit.U32:
		return strconv.FormatUint(uint64(v.U32(i)), 10)
	case wit.S32:
		return strconv.FormatInt(int64(v.S32(i)), 10)
	case wit.U64:
		return strconv.FormatUint(v.U64(i), 10)
	case wit.S64:
		return strconv.FormatInt(v.S64(i), 10)
	case wit.F32:
		return strconv.FormatFloat(float64(v.F32(i)), 'g', -1, 32)
	case wit.F64:
		return strconv.FormatFloat(v.F64(i), 'g', -1, 64)
	default:
		return fmt.Sprintf("%T", t)
	}
}

func scalarType(t wit.Type, elements uint32) string {
	name := transcoder.ScalarName(t)
	if elements != 1 {
		name += "[" + strconv.FormatUint(uint64(elements), 10) + "]"
	}
	return name
}
