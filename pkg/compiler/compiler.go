package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/noodlelang/noodle/pkg/ast"
	"github.com/noodlelang/noodle/pkg/bytecode"
	"github.com/noodlelang/noodle/pkg/codegen"
	"github.com/noodlelang/noodle/pkg/parser"
)

var log = commonlog.GetLogger("noodle.compiler")

// Phase names a stage of the compile pipeline.
type Phase string

const (
	PhaseLexing       Phase = "lexing"
	PhaseParsing      Phase = "parsing"
	PhaseSemantic     Phase = "semantic-analysis"
	PhaseOptimization Phase = "optimization"
	PhaseCodegen      Phase = "code-generation"
)

// Diagnostic is one error or warning produced by a compile phase.
type Diagnostic struct {
	Phase   Phase
	Pos     ast.Position
	Message string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %d:%d: %s", d.Phase, d.Pos.Line, d.Pos.Column, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Phase, d.Message)
}

// Statistics summarizes one pipeline run.
type Statistics struct {
	Tokens        int
	Nodes         int
	Instructions  int
	Optimizations int
	Duration      time.Duration
}

// Result carries everything a compile run produced, including the program
// when the run succeeded and the diagnostics when it did not.
type Result struct {
	CompilationID string
	Program       bytecode.Program
	Errors        []Diagnostic
	Warnings      []Diagnostic
	Stats         Statistics
}

// Options controls the optional compile phases.
type Options struct {
	// Optimize enables the constant-folding pass.
	Optimize bool
	// Debug keeps going past front-end errors so later phases can report too.
	Debug bool
}

// DefaultOptions enables optimization, matching the CLI default.
func DefaultOptions() Options {
	return Options{Optimize: true}
}

// Compiler runs the phase pipeline: lex, parse, analyze, fold, generate.
type Compiler struct {
	opts Options
}

// New creates a compiler with the given options.
func New(opts Options) *Compiler {
	return &Compiler{opts: opts}
}

// Compile compiles source text into a bytecode program. The returned Result
// is non-nil in every case; the error summarizes failure when any phase
// produced errors.
func (c *Compiler) Compile(source, filename string) (*Result, error) {
	start := time.Now()
	result := &Result{CompilationID: uuid.NewString()}

	// Phase 1: lexical analysis. The parser lexes again internally; this
	// pass exists to count tokens and surface bad characters with the
	// lexing phase attached.
	log.Infof("starting lexical analysis for %s", filename)
	lexer := parser.NewLexer(source)
	for {
		tok := lexer.NextToken()
		if tok.Type == parser.TokenEOF {
			break
		}
		result.Stats.Tokens++
		if tok.Type == parser.TokenError {
			result.Errors = append(result.Errors, Diagnostic{
				Phase:   PhaseLexing,
				Pos:     tok.Pos,
				Message: tok.Literal,
			})
		}
	}
	if len(result.Errors) > 0 && !c.opts.Debug {
		return c.finish(result, start)
	}

	// Phase 2: parsing.
	log.Info("starting parsing")
	p := parser.NewParser(source)
	program := p.ParseProgram()
	for _, perr := range p.Errors() {
		result.Errors = append(result.Errors, Diagnostic{
			Phase:   PhaseParsing,
			Pos:     perr.Pos,
			Message: perr.Msg,
		})
	}
	if len(result.Errors) > 0 {
		return c.finish(result, start)
	}
	result.Stats.Nodes = countNodes(program)

	// Phase 3: semantic analysis.
	log.Info("starting semantic analysis")
	analyzer := newAnalyzer()
	analyzer.analyze(program)
	result.Warnings = append(result.Warnings, analyzer.warnings...)
	if len(analyzer.errors) > 0 {
		result.Errors = append(result.Errors, analyzer.errors...)
		return c.finish(result, start)
	}

	// Phase 4: optimization.
	if c.opts.Optimize {
		log.Info("starting optimization")
		folder := newFolder()
		program = folder.fold(program).(*ast.Program)
		result.Stats.Optimizations = folder.folded
	}

	// Phase 5: code generation.
	log.Info("starting code generation")
	gen := codegen.NewGenerator()
	compiled, err := gen.Generate(program)
	if err != nil {
		diag := Diagnostic{Phase: PhaseCodegen, Message: err.Error()}
		var cgErr *codegen.Error
		if errors.As(err, &cgErr) {
			diag.Pos = cgErr.Pos
		}
		result.Errors = append(result.Errors, diag)
		return c.finish(result, start)
	}
	result.Program = compiled
	for _, fn := range compiled {
		result.Stats.Instructions += len(fn.Instructions)
	}

	return c.finish(result, start)
}

func (c *Compiler) finish(result *Result, start time.Time) (*Result, error) {
	result.Stats.Duration = time.Since(start)
	log.Infof("compilation %s completed in %s with %d errors and %d warnings",
		result.CompilationID, result.Stats.Duration, len(result.Errors), len(result.Warnings))
	if len(result.Errors) > 0 {
		return result, fmt.Errorf("compilation failed: %s", result.Errors[0])
	}
	return result, nil
}

func countNodes(root ast.Node) int {
	n := 0
	ast.Walk(root, func(ast.Node) bool {
		n++
		return true
	})
	return n
}
