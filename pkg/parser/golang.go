package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/ritzau/archscope/pkg/model"
)

var goFlow = &flowRules{
	branches: set("if_statement"),
	loops:    set("for_statement"),
	switches: set("expression_switch_statement", "type_switch_statement", "select_statement"),
	arms:     set("expression_case", "type_case", "default_case", "communication_case"),
	nested:   set(),
}

// Go extracts functions, methods, type specs and imports
type Go struct{}

// NewGo creates the Go frontend
func NewGo() *Go {
	return &Go{}
}

func (g *Go) Language() model.Language  { return model.LanguageGo }
func (g *Go) Extensions() []string      { return []string{".go"} }
func (g *Go) Grammar() *sitter.Language { return golang.GetLanguage() }

func (g *Go) Extract(root *sitter.Node, src []byte, file *model.ParsedFile) {
	goContainer(root, src, file)
}

func goContainer(n *sitter.Node, src []byte, file *model.ParsedFile) {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "package_clause":
			for _, id := range namedChildren(c) {
				if id.Type() == "package_identifier" {
					file.ModuleName = content(id, src)
				}
			}
		case "import_declaration":
			walk(c, func(spec *sitter.Node) bool {
				if spec.Type() == "import_spec" {
					if p := spec.ChildByFieldName("path"); p != nil {
						file.Imports = append(file.Imports, strings.Trim(content(p, src), "\"`"))
					}
					return false
				}
				return true
			})
		case "function_declaration":
			goFunction(c, "", src, file)
		case "method_declaration":
			goFunction(c, goReceiver(c, src), src, file)
		case "type_declaration":
			for _, spec := range namedChildren(c) {
				if spec.Type() == "type_spec" || spec.Type() == "type_alias" {
					goType(spec, src, file)
				}
			}
		case "ERROR":
			goContainer(c, src, file)
		}
	}
}

func goFunction(n *sitter.Node, receiver string, src []byte, file *model.ParsedFile) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := content(nameNode, src)
	qualified := name
	if receiver != "" {
		qualified = receiver + "." + name
	}
	body := n.ChildByFieldName("body")

	fn := model.ParsedFunction{
		Name:      qualified,
		FilePath:  file.Path,
		LineStart: startLine(n),
		LineEnd:   declEnd(n, body, src),
		Signature: signature(n, body, src),
		Exported:  isExportedName(name),
		Receiver:  receiver,
		TypeRefs:  typeRefs(n, nil, src, goFlow.nested),
		Flow:      flowTokens(body, goFlow),
	}
	if body != nil {
		fn.Calls = goCalls(body, src)
	}
	file.Functions = append(file.Functions, fn)
}

func goType(spec *sitter.Node, src []byte, file *model.ParsedFile) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	kind := model.TypeKindAlias
	if t := spec.ChildByFieldName("type"); t != nil && spec.Type() == "type_spec" {
		switch t.Type() {
		case "struct_type":
			kind = model.TypeKindStruct
		case "interface_type":
			kind = model.TypeKindInterface
		}
	}
	name := content(nameNode, src)
	file.Types = append(file.Types, model.DeclaredType{
		Name:      name,
		Kind:      kind,
		LineStart: startLine(spec),
		LineEnd:   endLine(spec),
		Exported:  isExportedName(name),
		TypeRefs:  typeRefs(spec, nameNode, src, goFlow.nested),
	})
}

// goReceiver returns the receiver base type of a method: (s *Stack[T]) -> Stack
func goReceiver(n *sitter.Node, src []byte) string {
	params := n.ChildByFieldName("receiver")
	if params == nil {
		return ""
	}
	for _, p := range namedChildren(params) {
		if p.Type() == "parameter_declaration" {
			return goTypeName(p.ChildByFieldName("type"), src)
		}
	}
	return ""
}

func goTypeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "type_identifier":
		return content(n, src)
	case "pointer_type", "parenthesized_type":
		for _, c := range namedChildren(n) {
			return goTypeName(c, src)
		}
	case "generic_type":
		return goTypeName(n.ChildByFieldName("type"), src)
	case "qualified_type":
		return content(n.ChildByFieldName("name"), src)
	}
	name := strings.TrimLeft(compact(content(n, src)), "*(")
	if i := strings.IndexAny(name, "[)"); i >= 0 {
		name = name[:i]
	}
	return name
}

func goCalls(body *sitter.Node, src []byte) []model.CallSite {
	var calls []model.CallSite
	walk(body, func(n *sitter.Node) bool {
		if n.Type() == "call_expression" {
			if cs, ok := goCallee(n.ChildByFieldName("function"), src); ok {
				cs.Line = startLine(n)
				calls = append(calls, cs)
			}
		}
		return true
	})
	return calls
}

func goCallee(fn *sitter.Node, src []byte) (model.CallSite, bool) {
	if fn == nil {
		return model.CallSite{}, false
	}
	switch fn.Type() {
	case "identifier":
		return model.CallSite{Callee: content(fn, src)}, true
	case "selector_expression":
		return model.CallSite{
			Callee:    content(fn.ChildByFieldName("field"), src),
			Qualifier: compact(content(fn.ChildByFieldName("operand"), src)),
		}, true
	case "index_expression", "generic_type", "parenthesized_expression":
		// f[int](x), (f)(x)
		if op := fn.ChildByFieldName("operand"); op != nil {
			return goCallee(op, src)
		}
		if t := fn.ChildByFieldName("type"); t != nil {
			return goCallee(t, src)
		}
		for _, c := range namedChildren(fn) {
			return goCallee(c, src)
		}
	}
	return model.CallSite{}, false
}

func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
