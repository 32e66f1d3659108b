package parser

import (
	"bytes"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func children(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// walk visits n and its descendants depth-first. fn returns false to skip a subtree.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range children(n) {
		walk(c, fn)
	}
}

// same compares nodes by position; wrappers returned by the binding are not unique
func same(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

func content(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

// compact removes all whitespace (use paths, qualifiers)
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// collapse folds runs of whitespace into single spaces (signatures)
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstSyntaxError(root *sitter.Node) (int, bool) {
	line, found := 0, false
	walk(root, func(n *sitter.Node) bool {
		if found {
			return false
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			line, found = startLine(n), true
			return false
		}
		return n.HasError()
	})
	return line, found
}

// signature returns the declaration text before its body, whitespace collapsed
func signature(decl, body *sitter.Node, src []byte) string {
	if body == nil {
		return collapse(content(decl, src))
	}
	return collapse(string(src[decl.StartByte():body.StartByte()]))
}

// declEnd returns the last line of a declaration. A body whose closing brace was
// synthesized by error recovery is re-measured by delimiter matching over the raw
// text; without a match the declaration runs to the end of the file.
func declEnd(decl, body *sitter.Node, src []byte) int {
	if body == nil {
		return endLine(decl)
	}
	if bodyClosed(body) {
		return endLine(body)
	}
	if off, ok := matchDelimiter(src, int(body.StartByte())); ok {
		return lineAt(src, off)
	}
	return CountLines(src)
}

func bodyClosed(body *sitter.Node) bool {
	if body.HasError() {
		return false
	}
	n := int(body.ChildCount())
	if n == 0 {
		return false
	}
	last := body.Child(n - 1)
	return last != nil && last.Type() == "}" && !last.IsMissing()
}

func lineAt(src []byte, off int) int {
	return bytes.Count(src[:off], []byte{'\n'}) + 1
}

// matchDelimiter returns the offset of the '}' closing the first '{' at or after
// open. Nested braces are counted; string, char and comment contents are skipped.
func matchDelimiter(src []byte, open int) (int, bool) {
	for open < len(src) && src[open] != '{' {
		open++
	}
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		case '"':
			i = skipQuoted(src, i, '"')
		case '`':
			i = skipQuoted(src, i, '`')
		case '\'':
			i = skipChar(src, i)
		case 'r':
			if j, ok := skipRawString(src, i); ok {
				i = j
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			} else if i+1 < len(src) && src[i+1] == '*' {
				i = skipBlockComment(src, i)
			}
		}
	}
	return 0, false
}

func skipQuoted(src []byte, i int, quote byte) int {
	for j := i + 1; j < len(src); j++ {
		if src[j] == '\\' && quote != '`' {
			j++
			continue
		}
		if src[j] == quote {
			return j
		}
	}
	return len(src)
}

// skipChar skips 'x' and '\n' literals but leaves lifetimes ('a) alone
func skipChar(src []byte, i int) int {
	if i+1 < len(src) && src[i+1] == '\\' {
		for j := i + 3; j < len(src) && j < i+14; j++ {
			if src[j] == '\'' {
				return j
			}
		}
		return i
	}
	if i+2 < len(src) && src[i+2] == '\'' {
		return i + 2
	}
	// Multi-byte rune literal
	for j := i + 2; j < len(src) && j <= i+5; j++ {
		if src[j] == '\'' {
			return j
		}
		if src[j] < 0x80 {
			break
		}
	}
	return i
}

// skipRawString handles r"..." and r#"..."# when the r starts a token
func skipRawString(src []byte, i int) (int, bool) {
	if i > 0 {
		prev := src[i-1]
		if prev == '_' || prev >= 'a' && prev <= 'z' || prev >= 'A' && prev <= 'Z' || prev >= '0' && prev <= '9' {
			return i, false
		}
	}
	j := i + 1
	hashes := 0
	for j < len(src) && src[j] == '#' {
		hashes++
		j++
	}
	if j >= len(src) || src[j] != '"' {
		return i, false
	}
	closing := append([]byte{'"'}, bytes.Repeat([]byte{'#'}, hashes)...)
	end := bytes.Index(src[j+1:], closing)
	if end < 0 {
		return len(src), true
	}
	return j + 1 + end + len(closing) - 1, true
}

func skipBlockComment(src []byte, i int) int {
	depth := 0
	for j := i; j+1 < len(src); j++ {
		switch {
		case src[j] == '/' && src[j+1] == '*':
			depth++
			j++
		case src[j] == '*' && src[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j
			}
		}
	}
	return len(src)
}

// typeRefs collects type identifiers under n, excluding the declaration's own name
func typeRefs(n, name *sitter.Node, src []byte, nested map[string]bool) []string {
	var refs []string
	seen := make(map[string]bool)
	walk(n, func(c *sitter.Node) bool {
		if nested[c.Type()] && !same(c, n) {
			return false
		}
		if c.Type() == "type_identifier" && !same(c, name) {
			if t := content(c, src); !seen[t] {
				seen[t] = true
				refs = append(refs, t)
			}
		}
		return true
	})
	return refs
}
