// Package parser turns source files into structural summaries using tree-sitter grammars.
//
// Parsing never fails: undecodable input, syntax errors and duplicate declarations are
// recorded as diagnostics on the returned ParsedFile.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/archscope/pkg/logging"
	"github.com/ritzau/archscope/pkg/model"
)

// Frontend extracts declarations for one language from a syntax tree
type Frontend interface {
	Language() model.Language
	Extensions() []string
	Grammar() *sitter.Language
	Extract(root *sitter.Node, src []byte, file *model.ParsedFile)
}

// Parser dispatches files to frontends by extension
type Parser struct {
	frontends map[string]Frontend
}

// New creates a parser with the given frontends
func New(frontends ...Frontend) *Parser {
	p := &Parser{frontends: make(map[string]Frontend)}
	for _, fe := range frontends {
		for _, ext := range fe.Extensions() {
			p.frontends[ext] = fe
		}
	}
	return p
}

// Default creates a parser with every built-in frontend registered
func Default() *Parser {
	return New(NewRust(), NewGo())
}

// Extensions returns the registered extensions, sorted
func (p *Parser) Extensions() []string {
	exts := make([]string, 0, len(p.frontends))
	for ext := range p.frontends {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (p *Parser) frontendFor(path string) Frontend {
	return p.frontends[strings.ToLower(filepath.Ext(path))]
}

// Parse extracts the structure of one file. path is the project-relative slash path.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) *model.ParsedFile {
	file := &model.ParsedFile{
		Path:        path,
		LineCount:   CountLines(src),
		ContentHash: fmt.Sprintf("%016x", xxh3.Hash(src)),
		Functions:   []model.ParsedFunction{},
		Types:       []model.DeclaredType{},
		Imports:     []string{},
	}

	fe := p.frontendFor(path)
	if fe == nil {
		addFatal(file, "unsupported_language", "no frontend for "+filepath.Ext(path))
		return file
	}
	file.Language = fe.Language()

	if isBinary(src) {
		addFatal(file, "binary_content", "content is not valid UTF-8 source text")
		return file
	}

	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(fe.Grammar())

	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		addFatal(file, "parse_failed", err.Error())
		return file
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if ln, ok := firstSyntaxError(root); ok {
			file.Diagnostics = append(file.Diagnostics, model.Diagnostic{
				Code:    "syntax_error",
				Message: "unparseable fragment skipped",
				Line:    ln,
			})
		}
	}

	fe.Extract(root, src, file)
	dedupeNames(file)

	logging.Trace("parsed file", "path", path, "functions", len(file.Functions), "types", len(file.Types))
	return file
}

// ParseAll reads and parses paths relative to root with at most workers concurrent tasks.
// Results keep the order of paths. Only context cancellation fails the whole call.
func (p *Parser) ParseAll(ctx context.Context, root string, paths []string, workers int) ([]*model.ParsedFile, error) {
	results := make([]*model.ParsedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, rel := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
			if err != nil {
				f := &model.ParsedFile{Path: rel, Functions: []model.ParsedFunction{}, Types: []model.DeclaredType{}, Imports: []string{}}
				if fe := p.frontendFor(rel); fe != nil {
					f.Language = fe.Language()
				}
				addFatal(f, "unreadable", err.Error())
				results[i] = f
				return nil
			}
			results[i] = p.Parse(gctx, rel, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CountLines returns the number of lines, counting a final unterminated line
func CountLines(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	n := bytes.Count(src, []byte{'\n'})
	if src[len(src)-1] != '\n' {
		n++
	}
	return n
}

func isBinary(src []byte) bool {
	head := src
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(src)
}

func addFatal(file *model.ParsedFile, code, msg string) {
	file.Diagnostics = append(file.Diagnostics, model.Diagnostic{Code: code, Message: msg, Fatal: true})
}

// dedupeNames suffixes repeated function names in declaration order (name, name#2, ...)
func dedupeNames(file *model.ParsedFile) {
	seen := make(map[string]int, len(file.Functions))
	for i := range file.Functions {
		fn := &file.Functions[i]
		seen[fn.Name]++
		if n := seen[fn.Name]; n > 1 {
			orig := fn.Name
			fn.Name = fmt.Sprintf("%s#%d", orig, n)
			file.Diagnostics = append(file.Diagnostics, model.Diagnostic{
				Code:    "duplicate_name",
				Message: fmt.Sprintf("function %s declared again, renamed to %s", orig, fn.Name),
				Line:    fn.LineStart,
			})
		}
	}

	types := make(map[string]int, len(file.Types))
	for i := range file.Types {
		t := &file.Types[i]
		types[t.Name]++
		if n := types[t.Name]; n > 1 {
			orig := t.Name
			t.Name = fmt.Sprintf("%s#%d", orig, n)
			file.Diagnostics = append(file.Diagnostics, model.Diagnostic{
				Code:    "duplicate_name",
				Message: fmt.Sprintf("type %s declared again, renamed to %s", orig, t.Name),
				Line:    t.LineStart,
			})
		}
	}
}
