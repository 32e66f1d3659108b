package model

// Language identifies the frontend that produced a ParsedFile
type Language string

const (
	LanguageRust Language = "rust"
	LanguageGo   Language = "go"
)

// TypeKind represents the kind of a declared type
type TypeKind string

const (
	TypeKindStruct    TypeKind = "struct"
	TypeKindEnum      TypeKind = "enum"
	TypeKindTrait     TypeKind = "trait"
	TypeKindUnion     TypeKind = "union"
	TypeKindAlias     TypeKind = "alias"
	TypeKindInterface TypeKind = "interface"
)

// FlowKind classifies a control-flow token
type FlowKind string

const (
	FlowBranch  FlowKind = "branch"  // if / if let / else if
	FlowLoop    FlowKind = "loop"    // for, while, loop
	FlowArm     FlowKind = "arm"     // match/switch arm beyond the first
	FlowLogical FlowKind = "logical" // && or || inside a condition
)

// FlowToken is one branching construct seen while walking a function body.
// Depth 1 is the function body itself.
type FlowToken struct {
	Kind  FlowKind `json:"kind"`
	Depth int      `json:"depth"`
	Line  int      `json:"line"`
}

// CallSite is a raw call expression found in a function body
type CallSite struct {
	Callee    string `json:"callee"`              // Base name (e.g., "helper", "new")
	Qualifier string `json:"qualifier,omitempty"` // Path or receiver text (e.g., "Config", "self")
	Line      int    `json:"line"`
}

// ParsedFunction is one declared function or method
type ParsedFunction struct {
	Name       string      `json:"name"`      // Unique within the file (Type::method, Recv.Method, name#2)
	FilePath   string      `json:"file_path"` // Back-reference to the owning file
	LineStart  int         `json:"line_start"`
	LineEnd    int         `json:"line_end"`
	Signature  string      `json:"signature"`
	Exported   bool        `json:"exported"`
	Receiver   string      `json:"receiver,omitempty"`
	Attributes []string    `json:"attributes,omitempty"`
	TraitImpl  bool        `json:"trait_impl,omitempty"`
	Calls      []CallSite  `json:"-"`
	TypeRefs   []string    `json:"-"`
	Flow       []FlowToken `json:"-"`
}

// BaseName returns the function name without its receiver qualifier or duplicate suffix
func (f *ParsedFunction) BaseName() string {
	return BaseName(f.Name)
}

// HasAttribute reports whether the function carries the given attribute (e.g., "test")
func (f *ParsedFunction) HasAttribute(name string) bool {
	for _, a := range f.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// DeclaredType is one declared struct, enum, trait, interface or alias
type DeclaredType struct {
	Name      string   `json:"name"`
	Kind      TypeKind `json:"kind"`
	LineStart int      `json:"line_start"`
	LineEnd   int      `json:"line_end"`
	Exported  bool     `json:"exported"`
	TypeRefs  []string `json:"-"`
}

// Diagnostic is a recovered, per-file parse problem
type Diagnostic struct {
	Code    string `json:"code"` // binary_content, syntax_error, duplicate_name, unreadable
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Fatal   bool   `json:"fatal,omitempty"` // True when no structure could be extracted at all
}

// ParsedFile is the structural summary of one source file.
// It is created once per run and never mutated after parsing.
type ParsedFile struct {
	Path        string           `json:"path"` // Slash-separated, relative to the project root
	Language    Language         `json:"language"`
	ModuleName  string           `json:"module_name,omitempty"`
	LineCount   int              `json:"line_count"`
	ContentHash string           `json:"content_hash"`
	Functions   []ParsedFunction `json:"functions"`
	Types       []DeclaredType   `json:"types"`
	Imports     []string         `json:"imports"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
}

// Unparseable returns true if the file produced a fatal diagnostic
func (f *ParsedFile) Unparseable() bool {
	for _, d := range f.Diagnostics {
		if d.Fatal {
			return true
		}
	}
	return false
}

// DependencyKind represents the kind of a raw reference
type DependencyKind string

const (
	DependencyImport    DependencyKind = "import"
	DependencyCall      DependencyKind = "call"
	DependencyReference DependencyKind = "reference"
)

// Dependency is a raw, unresolved reference extracted from a file
type Dependency struct {
	SourceEntity string         `json:"source_entity"` // Node id of the referencing entity
	RawTarget    string         `json:"raw_target"`
	Kind         DependencyKind `json:"kind"`
}

// ResolvedDependency is a Dependency mapped to concrete node ids
type ResolvedDependency struct {
	Dependency
	Targets   []string `json:"targets"`
	Ambiguous bool     `json:"ambiguous,omitempty"`
}

// FileEntry is one row of the file listing
type FileEntry struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	ModuleName string `json:"module_name,omitempty"`
	LineCount  int    `json:"line_count"`
}

// ComplexityItem is the complexity score of one function
type ComplexityItem struct {
	FunctionName string `json:"function_name"`
	FilePath     string `json:"file_path"`
	Score        int    `json:"score"`
	LineStart    int    `json:"line_start"`
	LineEnd      int    `json:"line_end"`
	MaxNesting   int    `json:"max_nesting"`
}

// AverageScore returns the arithmetic mean of the scores, or 0 when empty
func AverageScore(items []ComplexityItem) float64 {
	if len(items) == 0 {
		return 0.0
	}
	total := 0
	for _, item := range items {
		total += item.Score
	}
	return float64(total) / float64(len(items))
}

// AnalysisSummary aggregates one run
type AnalysisSummary struct {
	ProjectID          string   `json:"project_id"`
	ProjectName        string   `json:"project_name"`
	TotalFiles         int      `json:"total_files"`
	TotalFunctions     int      `json:"total_functions"`
	TotalStructs       int      `json:"total_structs"`
	TotalImports       int      `json:"total_imports"`
	AvgComplexity      float64  `json:"avg_complexity"`
	DeadCodeCandidates []string `json:"dead_code_candidates"`
	ArchitectureNotes  []string `json:"architecture_notes"`
	Diagnostics        []string `json:"diagnostics"`
}
