package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/archscope/pkg/model"
)

const configRS = `use crate::util::helper;
use std::collections::{HashMap, HashSet};
mod inner;

pub struct Config {
    name: String,
}

impl Config {
    pub fn new() -> Self {
        Config { name: String::new() }
    }
}

impl Default for Config {
    fn default() -> Self {
        Self::new()
    }
}

fn run(cfg: &Config) -> usize {
    helper(cfg.name.len())
}

#[test]
fn it_works() {
    assert_eq!(run(&Config::new()), 0);
}
`

func TestRustExtraction(t *testing.T) {
	f := parse(t, "src/config.rs", configRS)

	assert.Equal(t, model.LanguageRust, f.Language)
	assert.Equal(t, "crate::config", f.ModuleName)
	assert.Equal(t, 28, f.LineCount)
	assert.Empty(t, f.Diagnostics)
	assert.Equal(t, []string{
		"crate::util::helper",
		"std::collections::{HashMap,HashSet}",
		"mod inner",
	}, f.Imports)

	require.Len(t, f.Types, 1)
	assert.Equal(t, "Config", f.Types[0].Name)
	assert.Equal(t, model.TypeKindStruct, f.Types[0].Kind)
	assert.Equal(t, 5, f.Types[0].LineStart)
	assert.Equal(t, 7, f.Types[0].LineEnd)
	assert.True(t, f.Types[0].Exported)

	names := make([]string, 0, len(f.Functions))
	for _, fn := range f.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"Config::new", "Config::default", "run", "it_works"}, names)

	newFn := findFunction(f, "Config::new")
	assert.Equal(t, 10, newFn.LineStart)
	assert.Equal(t, 12, newFn.LineEnd)
	assert.True(t, newFn.Exported)
	assert.Equal(t, "Config", newFn.Receiver)
	assert.Equal(t, "pub fn new() -> Self", newFn.Signature)
	assert.False(t, newFn.TraitImpl)

	def := findFunction(f, "Config::default")
	assert.True(t, def.TraitImpl)
	assert.Contains(t, def.TypeRefs, "Default")
	require.NotEmpty(t, def.Calls)
	assert.Equal(t, model.CallSite{Callee: "new", Qualifier: "Self", Line: 17}, def.Calls[0])

	run := findFunction(f, "run")
	assert.Equal(t, 21, run.LineStart)
	assert.Equal(t, 23, run.LineEnd)
	assert.False(t, run.Exported)
	assert.Contains(t, run.TypeRefs, "Config")
	require.Len(t, run.Calls, 2)
	assert.Equal(t, model.CallSite{Callee: "helper", Line: 22}, run.Calls[0])
	assert.Equal(t, "len", run.Calls[1].Callee)
	assert.Equal(t, "cfg.name", run.Calls[1].Qualifier)

	test := findFunction(f, "it_works")
	assert.Equal(t, 26, test.LineStart)
	assert.True(t, test.HasAttribute("test"))
	callees := make([]string, 0, len(test.Calls))
	for _, c := range test.Calls {
		callees = append(callees, c.Callee)
	}
	assert.Contains(t, callees, "run")
}

const shapesRS = `enum Mode {
    A,
    B,
}

struct Circle {
    r: f64,
}

impl Circle {
    fn new(r: f64) -> Self {
        Self { r }
    }
}

pub fn run(m: u8) -> f64 {
    let mode = if m > 0 { Mode::A } else { Mode::B };
    let c = Circle::new(1.0);
    let _ = std::mem::size_of::<u8>();
    match mode {
        Mode::A => c.r,
        Mode::B => crate::shapes::Mode::B as u8 as f64,
    }
}
`

func TestRustPathTypeReferences(t *testing.T) {
	f := parse(t, "src/shapes.rs", shapesRS)
	require.Empty(t, f.Diagnostics)

	run := findFunction(f, "run")
	require.NotNil(t, run)
	assert.Contains(t, run.TypeRefs, "Mode")
	assert.Contains(t, run.TypeRefs, "Circle")
	assert.NotContains(t, run.TypeRefs, "mem", "module segments are not types")
	assert.NotContains(t, run.TypeRefs, "shapes")

	newFn := findFunction(f, "Circle::new")
	require.NotNil(t, newFn)
	assert.Contains(t, newFn.TypeRefs, "Circle", "inherent methods reference their impl type")
}

func TestRustInlineTestModule(t *testing.T) {
	src := `pub fn api() {}

#[cfg(test)]
mod tests {
    use super::*;

    #[test]
    fn checks_api() {
        api();
    }
}
`
	f := parse(t, "src/lib.rs", src)

	assert.Equal(t, "crate", f.ModuleName)
	assert.Equal(t, []string{"self::*"}, f.Imports)
	fn := findFunction(f, "checks_api")
	require.NotNil(t, fn)
	assert.True(t, fn.HasAttribute("test"))
	assert.True(t, fn.HasAttribute("cfg(test)"))
	assert.Equal(t, 8, fn.LineStart)
	assert.Equal(t, 10, fn.LineEnd)
}

func TestRustTraitAndNestedFunctions(t *testing.T) {
	src := `pub trait Greeter {
    fn name(&self) -> String;
    fn greet(&self) -> String {
        format!("hello {}", self.name())
    }
}

pub enum Mode { Fast, Slow }

type Pair = (u8, u8);

fn outer() -> u8 {
    fn inner() -> u8 { 1 }
    inner()
}
`
	f := parse(t, "src/greet.rs", src)

	kinds := make(map[string]model.TypeKind)
	for _, ty := range f.Types {
		kinds[ty.Name] = ty.Kind
	}
	assert.Equal(t, map[string]model.TypeKind{
		"Greeter": model.TypeKindTrait,
		"Mode":    model.TypeKindEnum,
		"Pair":    model.TypeKindAlias,
	}, kinds)

	greet := findFunction(f, "Greeter::greet")
	require.NotNil(t, greet)
	assert.True(t, greet.Exported)
	// Signatures without a body are not declarations of their own
	assert.Nil(t, findFunction(f, "Greeter::name"))

	outer := findFunction(f, "outer")
	require.NotNil(t, outer)
	require.Len(t, outer.Calls, 1)
	assert.Equal(t, "inner", outer.Calls[0].Callee)
	inner := findFunction(f, "inner")
	require.NotNil(t, inner)
	assert.Equal(t, 13, inner.LineStart)
}

func TestRustComplexityTokens(t *testing.T) {
	src := `fn straight(a: i32) -> i32 {
    let b = a + 1;
    b * 2
}

fn helper(x: i32) -> i32 {
    if x > 0 {
        return 1;
    }
    0
}

fn grade(n: i32) -> &'static str {
    if n > 90 {
        "a"
    } else if n > 50 {
        "b"
    } else {
        "c"
    }
}

fn nested(items: &[i32]) -> i32 {
    let mut total = 0;
    for i in items {
        if *i > 0 && *i < 10 {
            total += i;
        }
    }
    total
}

fn pick(v: Option<i32>) -> i32 {
    match v {
        Some(n) if n > 0 => n,
        Some(_) => 0,
        None => -1,
    }
}
`
	f := parse(t, "src/flow.rs", src)

	assert.Empty(t, findFunction(f, "straight").Flow)

	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowBranch, Depth: 1, Line: 7},
	}, findFunction(f, "helper").Flow)

	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowBranch, Depth: 1, Line: 14},
		{Kind: model.FlowBranch, Depth: 1, Line: 16},
	}, findFunction(f, "grade").Flow)

	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowLoop, Depth: 1, Line: 25},
		{Kind: model.FlowBranch, Depth: 2, Line: 26},
		{Kind: model.FlowLogical, Depth: 2, Line: 26},
	}, findFunction(f, "nested").Flow)

	assert.Equal(t, []model.FlowToken{
		{Kind: model.FlowArm, Depth: 1, Line: 36},
		{Kind: model.FlowArm, Depth: 1, Line: 37},
	}, findFunction(f, "pick").Flow)
}

func TestRustModulePath(t *testing.T) {
	tests := []struct {
		path string
		want string
		root string
	}{
		{"src/lib.rs", "crate", ""},
		{"src/main.rs", "crate", ""},
		{"src/a/mod.rs", "crate::a", ""},
		{"src/a/b.rs", "crate::a::b", ""},
		{"crates/my-core/src/lib.rs", "crate", "crates/my-core"},
		{"crates/core/src/net/tcp.rs", "crate::net::tcp", "crates/core"},
		{"src/my-mod.rs", "crate::my_mod", ""},
		{"build.rs", "build", ""},
		{"examples/demo.rs", "examples::demo", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RustModulePath(tt.path), tt.path)
		assert.Equal(t, tt.root, RustCrateRoot(tt.path), tt.path)
	}
}
