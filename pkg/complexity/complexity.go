// Package complexity scores functions from the control-flow tokens recorded by the parser.
//
// A function starts at 1. Every conditional, loop and match arm beyond the first adds its
// nesting depth (1 in the function body, one more per enclosing construct), and every
// short-circuit operator inside a condition adds 1.
package complexity

import (
	"github.com/ritzau/archscope/pkg/model"
)

// Score computes the complexity of one function. The result is always at least 1.
func Score(fn *model.ParsedFunction) int {
	score := 1
	for _, tok := range fn.Flow {
		switch tok.Kind {
		case model.FlowBranch, model.FlowLoop, model.FlowArm:
			score += max(tok.Depth, 1)
		case model.FlowLogical:
			score++
		}
	}
	return score
}

// Items scores every function of the run, in source-file then declaration order
func Items(files []*model.ParsedFile) []model.ComplexityItem {
	items := make([]model.ComplexityItem, 0)
	for _, f := range files {
		for i := range f.Functions {
			fn := &f.Functions[i]
			items = append(items, model.ComplexityItem{
				FunctionName: fn.Name,
				FilePath:     f.Path,
				Score:        Score(fn),
				LineStart:    fn.LineStart,
				LineEnd:      fn.LineEnd,
				MaxNesting:   MaxNesting(fn),
			})
		}
	}
	return items
}

// MaxNesting returns the deepest nesting level seen in a function body
func MaxNesting(fn *model.ParsedFunction) int {
	deepest := 0
	for _, tok := range fn.Flow {
		deepest = max(deepest, tok.Depth)
	}
	return deepest
}
