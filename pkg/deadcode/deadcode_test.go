package deadcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/graph"
	"github.com/ritzau/archscope/pkg/model"
	"github.com/ritzau/archscope/pkg/parser"
	"github.com/ritzau/archscope/pkg/resolver"
)

func call(from, to string) model.ResolvedDependency {
	return model.ResolvedDependency{
		Dependency: model.Dependency{SourceEntity: from, RawTarget: to, Kind: model.DependencyCall},
		Targets:    []string{to},
	}
}

func TestDetect(t *testing.T) {
	lib := &model.ParsedFile{
		Path: "src/lib.rs",
		Functions: []model.ParsedFunction{
			{Name: "main", FilePath: "src/lib.rs", LineStart: 1},
			{Name: "used", FilePath: "src/lib.rs", LineStart: 3},
			{Name: "unused", FilePath: "src/lib.rs", LineStart: 5},
			{Name: "api", FilePath: "src/lib.rs", LineStart: 7, Exported: true},
			{Name: "Config::fmt", FilePath: "src/lib.rs", LineStart: 9, TraitImpl: true},
			{Name: "it_works", FilePath: "src/lib.rs", LineStart: 11, Attributes: []string{"test"}},
			{Name: "fixture", FilePath: "src/lib.rs", LineStart: 13, Attributes: []string{"cfg(test)"}},
			{Name: "callback", FilePath: "src/lib.rs", LineStart: 15, Attributes: []string{"no_mangle"}},
			{Name: "async_case", FilePath: "src/lib.rs", LineStart: 17, Attributes: []string{"tokio::test"}},
		},
		Types: []model.DeclaredType{
			{Name: "Config", LineStart: 20, Exported: true},
			{Name: "Scratch", LineStart: 22},
		},
	}
	goTest := &model.ParsedFile{
		Path: "pkg/x_test.go",
		Functions: []model.ParsedFunction{
			{Name: "TestX", FilePath: "pkg/x_test.go", Exported: true},
			{Name: "helperForTests", FilePath: "pkg/x_test.go"},
		},
	}
	files := []*model.ParsedFile{lib, goTest}
	g := graph.Build(files, []model.ResolvedDependency{
		call("fn:src/lib.rs::main", "fn:src/lib.rs::used"),
	})

	assert.Equal(t, []string{
		"fn:src/lib.rs::unused",
		"type:src/lib.rs::Scratch",
		"fn:pkg/x_test.go::helperForTests",
	}, Detect(g, files, DefaultOptions()))

	strict := Detect(g, files, Options{})
	assert.Contains(t, strict, "fn:src/lib.rs::main")
	assert.Contains(t, strict, "fn:src/lib.rs::api")
	assert.Contains(t, strict, "fn:src/lib.rs::it_works")
	assert.Contains(t, strict, "type:src/lib.rs::Config")
	assert.NotContains(t, strict, "fn:src/lib.rs::used")
	assert.NotContains(t, strict, "fn:src/lib.rs::Config::fmt")
	assert.NotContains(t, strict, "fn:src/lib.rs::callback")
}

func TestDetectGoTestsNeedTestFile(t *testing.T) {
	f := &model.ParsedFile{
		Path:      "pkg/x.go",
		Functions: []model.ParsedFunction{{Name: "testLike", FilePath: "pkg/x.go"}, {Name: "TestHelper", FilePath: "pkg/x.go"}},
	}
	files := []*model.ParsedFile{f}
	g := graph.Build(files, nil)

	got := Detect(g, files, Options{ExemptTests: true})
	assert.Equal(t, []string{"fn:pkg/x.go::testLike", "fn:pkg/x.go::TestHelper"}, got)
}

func TestDetectEntryPointNeverCandidate(t *testing.T) {
	f := &model.ParsedFile{
		Path: "cmd/main.go",
		Functions: []model.ParsedFunction{
			{Name: "main", FilePath: "cmd/main.go"},
			{Name: "init", FilePath: "cmd/main.go"},
			{Name: "init#2", FilePath: "cmd/main.go"},
			{Name: "serve", FilePath: "cmd/main.go"},
		},
	}
	files := []*model.ParsedFile{f}
	g := graph.Build(files, nil)

	got := Detect(g, files, Options{EntryPoints: []string{"main", "init", "serve"}})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDetectTypesUsedThroughPaths(t *testing.T) {
	src := `enum Mode {
    A,
    B,
}

struct Circle {
    r: f64,
}

struct Unused;

impl Circle {
    fn new(r: f64) -> Self {
        Self { r }
    }
}

pub fn run(flag: bool) -> f64 {
    let m = if flag { Mode::A } else { Mode::B };
    let c = Circle::new(1.0);
    match m {
        Mode::A => c.r,
        Mode::B => 0.0,
    }
}
`
	f := parser.Default().Parse(context.Background(), "src/shapes.rs", []byte(src))
	files := []*model.ParsedFile{f}
	resolved, err := resolver.Resolve(context.Background(), resolver.NewIndex(files, resolver.Options{}), 1)
	require.NoError(t, err)
	g := graph.Build(files, resolved.Resolved)

	dead := Detect(g, files, DefaultOptions())
	assert.NotContains(t, dead, "type:src/shapes.rs::Mode")
	assert.NotContains(t, dead, "type:src/shapes.rs::Circle")
	assert.Contains(t, dead, "type:src/shapes.rs::Unused")
}
