package elsa

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

// isGrid reports whether an HTML fragment carries a table, the marker used by
// spreadsheets when they copy cells.
func isGrid(src string) bool {
	return strings.Contains(strings.ToLower(src), "<table")
}

// parseGrid extracts the cell text of the first table in src. End tags the
// source leaves out are closed the way a browser would close them.
func parseGrid(src string) ([][]string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	table := findElement(doc, atom.Table)
	if table == nil {
		return nil, fmt.Errorf("%w: no table", ErrMalformedPayload)
	}

	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// a nested table is cell content
			case atom.Tr:
				var row []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.DataAtom == atom.Td || cell.DataAtom == atom.Th {
						row = append(row, strings.TrimSpace(nodeText(cell)))
					}
				}
				if len(row) > 0 {
					rows = append(rows, row)
				}
			default:
				walk(c)
			}
		}
	}
	walk(table)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMalformedPayload)
	}
	return rows, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// nodeText flattens the text under n; <br> becomes a newline.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// tableRows reads the rows field whether it was set in Go or decoded from
// JSON or CBOR.
func tableRows(v any) [][]string {
	switch rows := v.(type) {
	case [][]string:
		return rows
	case []any:
		out := make([][]string, 0, len(rows))
		for _, r := range rows {
			var cells []string
			switch r := r.(type) {
			case []string:
				cells = r
			case []any:
				for _, c := range r {
					cells = append(cells, fmt.Sprint(c))
				}
			}
			out = append(out, cells)
		}
		return out
	}
	return nil
}

// cleanClipboardText strips RTF markup and control characters and
// normalises line endings.
func cleanClipboardText(text string) string {
	if text == "" {
		return text
	}
	text = stripRTF(text)
	var result strings.Builder
	result.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\r' || r == '\t' || r >= 32 {
			result.WriteRune(r)
		}
	}
	normalized := result.String()
	normalized = strings.ReplaceAll(normalized, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return normalized
}

func isRTF(text string) bool {
	return strings.HasPrefix(text, "{\\rtf") || strings.Contains(text, "\\rtf1")
}

func stripRTF(text string) string {
	if !isRTF(text) {
		return text
	}
	var result strings.Builder
	result.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '{' || r == '}' {
			continue
		}
		if r != '\\' {
			result.WriteRune(r)
			continue
		}
		if i+1 >= len(runes) {
			continue
		}
		next := runes[i+1]
		switch {
		case (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z'):
			j := i + 1
			for j < len(runes) && runes[j] != ' ' && runes[j] != '\\' && runes[j] != '{' && runes[j] != '}' && runes[j] != '\n' {
				j++
			}
			word := string(runes[i+1 : j])
			if word == "par" || word == "line" {
				result.WriteByte('\n')
			}
			if j < len(runes) && runes[j] == ' ' {
				j++
			}
			i = j - 1
		case next == '\\' || next == '{' || next == '}':
			result.WriteRune(next)
			i++
		}
	}
	return strings.TrimLeft(result.String(), "\n")
}
