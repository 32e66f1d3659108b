package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/ritzau/archscope/pkg/model"
)

var rustFlow = &flowRules{
	branches: set("if_expression", "if_let_expression"),
	loops:    set("for_expression", "while_expression", "while_let_expression", "loop_expression"),
	switches: set("match_expression"),
	arms:     set("match_arm"),
	nested:   set("function_item"),
}

var rustTypeKinds = map[string]model.TypeKind{
	"struct_item": model.TypeKindStruct,
	"enum_item":   model.TypeKindEnum,
	"union_item":  model.TypeKindUnion,
	"trait_item":  model.TypeKindTrait,
	"type_item":   model.TypeKindAlias,
}

// Rust extracts functions, impl methods, types, use declarations and mod declarations
type Rust struct{}

// NewRust creates the Rust frontend
func NewRust() *Rust {
	return &Rust{}
}

func (r *Rust) Language() model.Language  { return model.LanguageRust }
func (r *Rust) Extensions() []string      { return []string{".rs"} }
func (r *Rust) Grammar() *sitter.Language { return rust.GetLanguage() }

// rustScope is the enclosing context of a declaration
type rustScope struct {
	owner     string   // impl or trait type that qualifies method names
	trait     string   // implemented trait, for impl Trait for Type blocks
	exported  bool     // trait default methods inherit the trait's visibility
	inline    int      // depth of inline mod blocks
	attrs     []string // attributes inherited from enclosing mods (cfg(test))
	inTrait   bool
	traitImpl bool
}

type rustExtractor struct {
	src  []byte
	file *model.ParsedFile
}

func (r *Rust) Extract(root *sitter.Node, src []byte, file *model.ParsedFile) {
	file.ModuleName = RustModulePath(file.Path)
	x := &rustExtractor{src: src, file: file}
	x.container(root, rustScope{})
}

func (x *rustExtractor) container(n *sitter.Node, scope rustScope) {
	var attrs []string
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "attribute_item":
			attrs = append(attrs, attributeName(c, x.src))
			continue
		case "line_comment", "block_comment", "inner_attribute_item":
			continue
		case "function_item":
			x.function(c, scope, attrs)
		case "impl_item":
			x.impl(c, scope)
		case "trait_item":
			x.declaredType(c, model.TypeKindTrait)
			if body := c.ChildByFieldName("body"); body != nil {
				x.container(body, rustScope{
					owner:    content(c.ChildByFieldName("name"), x.src),
					exported: isPub(c, x.src),
					inline:   scope.inline,
					attrs:    scope.attrs,
					inTrait:  true,
				})
			}
		case "struct_item", "enum_item", "union_item", "type_item":
			x.declaredType(c, rustTypeKinds[c.Type()])
		case "mod_item":
			x.mod(c, scope, attrs)
		case "use_declaration":
			x.use(c, scope)
		case "ERROR":
			// Keep well-formed declarations that error recovery wrapped
			x.container(c, scope)
		}
		attrs = nil
	}
}

func (x *rustExtractor) function(n *sitter.Node, scope rustScope, attrs []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := content(nameNode, x.src)
	if scope.owner != "" {
		name = scope.owner + "::" + name
	}
	body := n.ChildByFieldName("body")

	fn := model.ParsedFunction{
		Name:       name,
		FilePath:   x.file.Path,
		LineStart:  startLine(n),
		LineEnd:    declEnd(n, body, x.src),
		Signature:  signature(n, body, x.src),
		Exported:   isPub(n, x.src) || (scope.inTrait && scope.exported),
		Receiver:   scope.owner,
		Attributes: append(append([]string(nil), attrs...), scope.attrs...),
		TraitImpl:  scope.traitImpl,
		TypeRefs:   appendMissing(typeRefs(n, nil, x.src, rustFlow.nested), pathTypes(n, x.src)...),
		Flow:       flowTokens(body, rustFlow),
	}
	if strings.HasPrefix(fn.Signature, "extern ") || strings.Contains(fn.Signature, " extern ") {
		fn.Attributes = append(fn.Attributes, "extern")
	}
	if scope.owner != "" && !scope.inTrait {
		fn.TypeRefs = appendMissing(fn.TypeRefs, scope.owner)
	}
	if scope.trait != "" {
		fn.TypeRefs = appendMissing(fn.TypeRefs, scope.trait)
	}
	if body != nil {
		fn.Calls = x.calls(body)
	}
	x.file.Functions = append(x.file.Functions, fn)

	// Functions declared inside the body are extracted on their own
	if body != nil {
		walk(body, func(c *sitter.Node) bool {
			if c.Type() == "function_item" {
				x.function(c, rustScope{inline: scope.inline, attrs: scope.attrs}, nil)
				return false
			}
			return true
		})
	}
}

func (x *rustExtractor) impl(n *sitter.Node, scope rustScope) {
	owner := rustTypeName(n.ChildByFieldName("type"), x.src)
	trait := rustTypeName(n.ChildByFieldName("trait"), x.src)
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	x.container(body, rustScope{
		owner:     owner,
		trait:     trait,
		inline:    scope.inline,
		attrs:     scope.attrs,
		traitImpl: trait != "",
	})
}

func (x *rustExtractor) declaredType(n *sitter.Node, kind model.TypeKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	body := n.ChildByFieldName("body")
	end := endLine(n)
	if body != nil && strings.HasPrefix(content(body, x.src), "{") {
		end = declEnd(n, body, x.src)
	}
	x.file.Types = append(x.file.Types, model.DeclaredType{
		Name:      content(nameNode, x.src),
		Kind:      kind,
		LineStart: startLine(n),
		LineEnd:   end,
		Exported:  isPub(n, x.src),
		TypeRefs:  appendMissing(typeRefs(n, nameNode, x.src, rustFlow.nested), pathTypes(n, x.src)...),
	})
}

// pathTypes collects the type segment of value paths such as Mode::A, Circle::new(..)
// or crate::shapes::Mode::B, which the grammar does not mark as type identifiers.
// Only upper-case segments are kept; lower-case ones name modules.
func pathTypes(n *sitter.Node, src []byte) []string {
	var refs []string
	walk(n, func(c *sitter.Node) bool {
		if rustFlow.nested[c.Type()] && !same(c, n) {
			return false
		}
		if c.Type() != "scoped_identifier" && c.Type() != "scoped_type_identifier" {
			return true
		}
		p := c.ChildByFieldName("path")
		if p != nil && p.Type() == "scoped_identifier" {
			p = p.ChildByFieldName("name")
		}
		if p == nil || (p.Type() != "identifier" && p.Type() != "type_identifier") {
			return true
		}
		if name := content(p, src); isUpperCamel(name) {
			refs = appendMissing(refs, name)
		}
		return true
	})
	return refs
}

func isUpperCamel(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z' && name != "Self"
}

func appendMissing(list []string, items ...string) []string {
	for _, s := range items {
		if !contains(list, s) {
			list = append(list, s)
		}
	}
	return list
}

func (x *rustExtractor) mod(n *sitter.Node, scope rustScope, attrs []string) {
	name := content(n.ChildByFieldName("name"), x.src)
	body := n.ChildByFieldName("body")
	if body == nil {
		if scope.inline == 0 {
			x.file.Imports = append(x.file.Imports, "mod "+name)
		}
		return
	}
	inner := rustScope{inline: scope.inline + 1, attrs: scope.attrs}
	for _, a := range attrs {
		if a == "cfg(test)" {
			inner.attrs = append(append([]string(nil), scope.attrs...), a)
		}
	}
	x.container(body, inner)
}

// use records the use path. Inside inline mods, leading super:: segments that only
// climb back out of the inline mods are rewritten to self::.
func (x *rustExtractor) use(n *sitter.Node, scope rustScope) {
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	path := usePath(content(arg, x.src))
	climbed := 0
	for climbed < scope.inline && strings.HasPrefix(path, "super::") {
		path = strings.TrimPrefix(path, "super::")
		climbed++
	}
	if climbed > 0 {
		path = "self::" + path
	}
	x.file.Imports = append(x.file.Imports, path)
}

// usePath removes whitespace from a use argument except around "as" aliases
func usePath(s string) string {
	fields := strings.Fields(s)
	var b strings.Builder
	for i, f := range fields {
		if i > 0 && (f == "as" || fields[i-1] == "as") {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}

func (x *rustExtractor) calls(body *sitter.Node) []model.CallSite {
	var calls []model.CallSite
	walk(body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_item":
			return false
		case "call_expression":
			if cs, ok := rustCallee(n.ChildByFieldName("function"), x.src); ok {
				cs.Line = startLine(n)
				calls = append(calls, cs)
			}
		case "macro_invocation":
			calls = append(calls, macroCalls(n, x.src)...)
			return false
		}
		return true
	})
	return calls
}

func rustCallee(fn *sitter.Node, src []byte) (model.CallSite, bool) {
	if fn == nil {
		return model.CallSite{}, false
	}
	switch fn.Type() {
	case "identifier":
		return model.CallSite{Callee: content(fn, src)}, true
	case "scoped_identifier":
		return model.CallSite{
			Callee:    content(fn.ChildByFieldName("name"), src),
			Qualifier: compact(content(fn.ChildByFieldName("path"), src)),
		}, true
	case "field_expression":
		return model.CallSite{
			Callee:    content(fn.ChildByFieldName("field"), src),
			Qualifier: compact(content(fn.ChildByFieldName("value"), src)),
		}, true
	case "generic_function":
		return rustCallee(fn.ChildByFieldName("function"), src)
	}
	return model.CallSite{}, false
}

// macroCalls finds name(...) and path::name(...) sequences in macro token trees,
// which the grammar leaves unparsed (assert_eq!(helper(), 1)).
func macroCalls(n *sitter.Node, src []byte) []model.CallSite {
	var calls []model.CallSite
	walk(n, func(tt *sitter.Node) bool {
		if tt.Type() != "token_tree" {
			return true
		}
		toks := children(tt)
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].Type() != "identifier" || toks[i+1].Type() != "token_tree" {
				continue
			}
			if !strings.HasPrefix(content(toks[i+1], src), "(") {
				continue
			}
			cs := model.CallSite{Callee: content(toks[i], src), Line: startLine(toks[i])}
			if i >= 2 && toks[i-1].Type() == "::" && toks[i-2].Type() == "identifier" {
				cs.Qualifier = content(toks[i-2], src)
			}
			calls = append(calls, cs)
		}
		return true
	})
	return calls
}

// rustTypeName reduces Foo, Foo<T>, path::Foo and &Foo to Foo
func rustTypeName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "type_identifier", "identifier":
		return content(n, src)
	case "generic_type":
		return rustTypeName(n.ChildByFieldName("type"), src)
	case "scoped_type_identifier", "scoped_identifier":
		return content(n.ChildByFieldName("name"), src)
	case "reference_type", "pointer_type":
		return rustTypeName(n.ChildByFieldName("type"), src)
	}
	return compact(content(n, src))
}

func isPub(n *sitter.Node, src []byte) bool {
	for _, c := range namedChildren(n) {
		if c.Type() == "visibility_modifier" {
			return compact(content(c, src)) == "pub"
		}
	}
	return false
}

// attributeName returns the attribute body: #[test] -> test, #[cfg(test)] -> cfg(test)
func attributeName(n *sitter.Node, src []byte) string {
	s := compact(content(n, src))
	s = strings.TrimPrefix(s, "#[")
	return strings.TrimSuffix(s, "]")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
