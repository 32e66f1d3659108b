package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

const shapesGo = `package shapes

import (
	"fmt"
	m "math"
)

type Shape interface {
	Area() float64
}

type Circle struct {
	R float64
}

type Radius = float64

func (c *Circle) Area() float64 {
	return m.Pi * c.R * c.R
}

func describe(s Shape) string {
	if s == nil || s.Area() == 0 {
		return "empty"
	}
	return fmt.Sprintf("%.2f", s.Area())
}
`

func TestGoExtraction(t *testing.T) {
	f := parse(t, "shapes/shapes.go", shapesGo)

	assert.Equal(t, model.LanguageGo, f.Language)
	assert.Equal(t, "shapes", f.ModuleName)
	assert.Equal(t, 27, f.LineCount)
	assert.Empty(t, f.Diagnostics)
	assert.Equal(t, []string{"fmt", "math"}, f.Imports)

	require.Len(t, f.Types, 3)
	assert.Equal(t, model.DeclaredType{
		Name: "Shape", Kind: model.TypeKindInterface, LineStart: 8, LineEnd: 10, Exported: true,
		TypeRefs: f.Types[0].TypeRefs,
	}, f.Types[0])
	assert.Equal(t, "Circle", f.Types[1].Name)
	assert.Equal(t, model.TypeKindStruct, f.Types[1].Kind)
	assert.Equal(t, 12, f.Types[1].LineStart)
	assert.Equal(t, 14, f.Types[1].LineEnd)
	assert.Equal(t, "Radius", f.Types[2].Name)
	assert.Equal(t, model.TypeKindAlias, f.Types[2].Kind)

	require.Len(t, f.Functions, 2)
	area := f.Functions[0]
	assert.Equal(t, "Circle.Area", area.Name)
	assert.Equal(t, "Circle", area.Receiver)
	assert.Equal(t, "Area", area.BaseName())
	assert.True(t, area.Exported)
	assert.Equal(t, 18, area.LineStart)
	assert.Equal(t, 20, area.LineEnd)
	assert.Equal(t, "func (c *Circle) Area() float64", area.Signature)
	assert.Contains(t, area.TypeRefs, "Circle")

	describe := f.Functions[1]
	assert.Equal(t, "describe", describe.Name)
	assert.False(t, describe.Exported)
	assert.Contains(t, describe.TypeRefs, "Shape")
	assert.Equal(t, []model.CallSite{
		{Callee: "Area", Qualifier: "s", Line: 23},
		{Callee: "Sprintf", Qualifier: "fmt", Line: 26},
		{Callee: "Area", Qualifier: "s", Line: 26},
	}, describe.Calls)
	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowBranch, Depth: 1, Line: 23},
		{Kind: model.FlowLogical, Depth: 1, Line: 23},
	}, describe.Flow)
}

func TestGoFlowTokens(t *testing.T) {
	src := `package flow

func classify(xs []int) int {
	n := 0
	for _, x := range xs {
		switch {
		case x < 0:
			n--
		case x == 0:
		default:
			if x > 10 && x < 100 {
				n += 2
			} else if x >= 100 {
				n += 3
			}
		}
	}
	return n
}
`
	f := parse(t, "flow/flow.go", src)
	require.Len(t, f.Functions, 1)

	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowLoop, Depth: 1, Line: 5},
		{Kind: model.FlowArm, Depth: 2, Line: 9},
		{Kind: model.FlowArm, Depth: 2, Line: 10},
		{Kind: model.FlowBranch, Depth: 3, Line: 11},
		{Kind: model.FlowLogical, Depth: 3, Line: 11},
		{Kind: model.FlowBranch, Depth: 3, Line: 13},
	}, f.Functions[0].Flow)
}

func TestGoGenericReceiver(t *testing.T) {
	src := `package stack

type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}
`
	f := parse(t, "stack/stack.go", src)
	require.Len(t, f.Functions, 1)
	assert.Equal(t, "Stack.Push", f.Functions[0].Name)
	assert.Equal(t, "Stack", f.Functions[0].Receiver)
}
