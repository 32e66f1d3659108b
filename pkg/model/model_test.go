package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageScore(t *testing.T) {
	assert.Equal(t, 0.0, AverageScore(nil))
	assert.Equal(t, 2.0, AverageScore([]ComplexityItem{{Score: 1}, {Score: 3}}))
	assert.InDelta(t, 1.3333, AverageScore([]ComplexityItem{{Score: 1}, {Score: 1}, {Score: 2}}), 0.001)
}

func TestNodeIDs(t *testing.T) {
	assert.Equal(t, "file:src/lib.rs", FileNodeID("src/lib.rs"))
	assert.Equal(t, "fn:src/lib.rs::Config::new", FunctionNodeID("src/lib.rs", "Config::new"))
	assert.Equal(t, "type:a.go::Server", TypeNodeID("a.go", "Server"))

	kind, path, name := SplitNodeID("fn:src/lib.rs::Config::new")
	assert.Equal(t, NodeKindFunction, kind)
	assert.Equal(t, "src/lib.rs", path)
	assert.Equal(t, "Config::new", name)

	kind, path, name = SplitNodeID("file:main.go")
	assert.Equal(t, NodeKindFile, kind)
	assert.Equal(t, "main.go", path)
	assert.Empty(t, name)
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"helper", "helper"},
		{"Config::new", "new"},
		{"Server.Start", "Start"},
		{"helper#2", "helper"},
		{"a::b::c", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseName(tt.name))
		})
	}
}

func TestAnalysisErrorUnwrap(t *testing.T) {
	root := &CollectionError{Root: "/missing", Err: errors.New("no such file or directory")}
	err := fmt.Errorf("run: %w", &AnalysisError{Stage: StageCollect, Err: root})

	var ae *AnalysisError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, StageCollect, ae.Stage)

	var ce *CollectionError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "/missing", ce.Root)
}

func TestUnparseable(t *testing.T) {
	f := ParsedFile{Diagnostics: []Diagnostic{{Code: "syntax_error"}}}
	assert.False(t, f.Unparseable())
	f.Diagnostics = append(f.Diagnostics, Diagnostic{Code: "binary_content", Fatal: true})
	assert.True(t, f.Unparseable())
}
