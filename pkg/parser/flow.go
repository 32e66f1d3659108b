package parser

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ritzau/archscope/pkg/model"
)

// flowRules maps a grammar's node types onto control-flow constructs
type flowRules struct {
	branches map[string]bool // conditionals with condition/consequence/alternative fields
	loops    map[string]bool // loops with a body field
	switches map[string]bool // match/switch statements holding arms
	arms     map[string]bool // individual arms
	nested   map[string]bool // declarations scored on their own
}

func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

type flowWalker struct {
	rules  *flowRules
	tokens []model.FlowToken
}

// flowTokens walks a function body and returns its branching constructs in source order
func flowTokens(body *sitter.Node, rules *flowRules) []model.FlowToken {
	if body == nil {
		return nil
	}
	w := &flowWalker{rules: rules}
	for _, c := range children(body) {
		w.walk(c, 1, false)
	}
	return w.tokens
}

func (w *flowWalker) emit(kind model.FlowKind, depth int, n *sitter.Node) {
	w.tokens = append(w.tokens, model.FlowToken{Kind: kind, Depth: depth, Line: startLine(n)})
}

func (w *flowWalker) walk(n *sitter.Node, depth int, inCond bool) {
	t := n.Type()
	switch {
	case w.rules.nested[t]:
		return
	case w.rules.branches[t]:
		w.branch(n, depth)
		return
	case w.rules.loops[t]:
		w.emit(model.FlowLoop, depth, n)
		body := n.ChildByFieldName("body")
		for _, c := range children(n) {
			if same(c, body) {
				w.walk(c, depth+1, false)
			} else {
				w.walk(c, depth, true)
			}
		}
		return
	case w.rules.switches[t]:
		w.switchArms(n, depth)
		return
	case t == "binary_expression" && inCond:
		if op := n.ChildByFieldName("operator"); op != nil && (op.Type() == "&&" || op.Type() == "||") {
			w.emit(model.FlowLogical, depth, op)
		}
	}
	for _, c := range children(n) {
		w.walk(c, depth, inCond)
	}
}

func (w *flowWalker) branch(n *sitter.Node, depth int) {
	w.emit(model.FlowBranch, depth, n)
	cond := n.ChildByFieldName("condition")
	cons := n.ChildByFieldName("consequence")
	alt := n.ChildByFieldName("alternative")
	for _, c := range children(n) {
		switch {
		case same(c, cond):
			w.walk(c, depth, true)
		case same(c, cons):
			w.walk(c, depth+1, false)
		case same(c, alt):
			w.alternative(c, depth)
		default:
			w.walk(c, depth, false)
		}
	}
}

// alternative keeps else-if chains at the depth of the first if
func (w *flowWalker) alternative(n *sitter.Node, depth int) {
	if w.rules.branches[n.Type()] {
		w.branch(n, depth)
		return
	}
	if n.Type() == "else_clause" {
		for _, c := range children(n) {
			if w.rules.branches[c.Type()] {
				w.branch(c, depth)
			} else {
				w.walk(c, depth+1, false)
			}
		}
		return
	}
	w.walk(n, depth+1, false)
}

func (w *flowWalker) switchArms(n *sitter.Node, depth int) {
	seen := 0
	var visit func(parent *sitter.Node)
	visit = func(parent *sitter.Node) {
		for _, c := range children(parent) {
			switch {
			case w.rules.arms[c.Type()]:
				if seen > 0 {
					w.emit(model.FlowArm, depth, c)
				}
				seen++
				w.arm(c, depth)
			case c.Type() == "match_block":
				visit(c)
			default:
				w.walk(c, depth, false)
			}
		}
	}
	visit(n)
}

// arm walks a guard pattern as a condition and the arm body one level deeper
func (w *flowWalker) arm(n *sitter.Node, depth int) {
	pattern := n.ChildByFieldName("pattern")
	for _, c := range children(n) {
		if same(c, pattern) {
			w.walk(c, depth, true)
		} else {
			w.walk(c, depth+1, false)
		}
	}
}
