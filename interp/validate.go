package interp

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/codeflow-ai/codeflow/types"
)

// ToolDefinition is the declarative interface a tool author registers for
// static validation: the tool's name, its documented parameter names in
// order, and the source text of the tool table with its methods. The
// validator analyzes this declaration, never live function objects.
type ToolDefinition struct {
	Name   string
	Params []string
	Source string
}

// Violation is one static-analysis finding against a tool definition.
type Violation struct {
	Where  string
	Line   int
	Reason string
}

// ValidationError aggregates all violations found in one tool definition.
// It is produced at tool-authoring time only and never raised during
// sandboxed execution.
type ValidationError struct {
	Tool       string
	Violations []Violation
}

// Error renders the report as one bullet per offending method/attribute.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tool %q failed validation:", e.Tool)
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  - %s (line %d): %s", v.Where, v.Line, v.Reason)
	}
	return b.String()
}

// Code identifies validation failures to callers that route on error codes.
func (e *ValidationError) Code() types.ErrorCode {
	return types.ErrToolValidation
}

// ValidateTool statically checks that a tool definition is self-contained:
// every executable body references only its own parameters, the receiver,
// names bound by its own local declarations, tool-level attributes, and a
// fixed set of host built-ins; tool-level attributes are simple literals;
// and the constructor takes no caller-supplied parameters. When
// checkImports is set, require() calls must also name modules inside the
// authorized list. Returns nil on success or a *ValidationError listing
// every violation.
func ValidateTool(def ToolDefinition, authorized *ModuleAllowList, checkImports bool) error {
	if authorized == nil {
		authorized = NewModuleAllowList()
	}
	v := &validator{
		def:          def,
		authorized:   authorized,
		checkImports: checkImports,
		topLevel:     map[string]bool{def.Name: true},
	}

	chunk, err := parse.Parse(strings.NewReader(def.Source), def.Name)
	if err != nil {
		v.report("source", 0, "parse error: %v", err)
		return v.result()
	}

	// First pass binds every top-level name so bodies can reference
	// attributes and helpers declared after them.
	for _, stmt := range chunk {
		v.bindTopLevel(stmt)
	}
	for _, stmt := range chunk {
		v.checkTopLevel(stmt)
	}
	return v.result()
}

type validator struct {
	def          ToolDefinition
	authorized   *ModuleAllowList
	checkImports bool
	topLevel     map[string]bool
	violations   []Violation
}

func (v *validator) report(where string, line int, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Where:  where,
		Line:   line,
		Reason: fmt.Sprintf(format, args...),
	})
}

func (v *validator) result() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Tool: v.def.Name, Violations: v.violations}
}

func (v *validator) bindTopLevel(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LocalAssignStmt:
		for _, name := range s.Names {
			v.topLevel[name] = true
		}
	case *ast.AssignStmt:
		for _, lhs := range s.Lhs {
			if ident, ok := lhs.(*ast.IdentExpr); ok {
				v.topLevel[ident.Value] = true
			}
		}
	}
}

func (v *validator) checkTopLevel(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LocalAssignStmt:
		for i, expr := range s.Exprs {
			where := "attribute"
			if i < len(s.Names) {
				where = "attribute " + s.Names[i]
			}
			v.checkAttribute(where, expr)
		}
	case *ast.AssignStmt:
		for i, expr := range s.Rhs {
			where := "attribute"
			if i < len(s.Lhs) {
				where = "attribute " + renderTarget(s.Lhs[i])
			}
			v.checkAttribute(where, expr)
		}
	case *ast.FuncDefStmt:
		name, hasReceiver := funcDefName(s.Name)
		v.checkMethod(name, hasReceiver, s.Func)
	case *ast.ReturnStmt:
		// a trailing "return Tool" is the conventional export
	default:
		v.report("source", stmt.Line(),
			"unsupported top-level statement; a tool definition holds only attributes, methods and a trailing return")
	}
}

// checkAttribute enforces the literal-only rule for tool-level values.
// Function-valued attributes are methods and get the full body analysis;
// everything else must be a literal or a table composed of literals, so
// the tool's closure stays decidable without executing it.
func (v *validator) checkAttribute(where string, expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.FunctionExpr:
		v.checkMethod(strings.TrimPrefix(where, "attribute "), false, e)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if fn, ok := f.Value.(*ast.FunctionExpr); ok {
				v.checkMethod(where+" method "+renderTarget(f.Key), false, fn)
				continue
			}
			if !isLiteral(f.Value) {
				v.report(where, f.Value.Line(),
					"attribute values must be literals; move complex initialization into the constructor")
			}
		}
	default:
		if !isLiteral(expr) {
			v.report(where, expr.Line(),
				"attribute values must be literals; move complex initialization into the constructor")
		}
	}
}

func (v *validator) checkMethod(name string, hasReceiver bool, fn *ast.FunctionExpr) {
	params := fn.ParList.Names
	if !hasReceiver && len(params) > 0 && params[0] == "self" {
		params = params[1:]
	}

	switch name {
	case "new":
		if len(params) > 0 {
			v.report("method new", fn.Line(),
				"constructor takes no parameters beyond the receiver; configuration must be hardcoded, got (%s)",
				strings.Join(params, ", "))
		}
	case "call":
		if !equalNames(params, v.def.Params) {
			v.report("method call", fn.Line(),
				"declared parameters are (%s) but the method signature is (%s)",
				strings.Join(v.def.Params, ", "), strings.Join(params, ", "))
		}
	}

	scope := newScope(nil)
	scope.bind("self")
	for _, p := range fn.ParList.Names {
		scope.bind(p)
	}
	v.checkBlock("method "+name, fn.Stmts, scope)
}

// checkBlock walks a statement list resolving every identifier against the
// lexical scope chain, the tool's top-level names, and the host built-ins.
func (v *validator) checkBlock(where string, stmts []ast.Stmt, parent *scope) {
	sc := newScope(parent)
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.LocalAssignStmt:
			for _, expr := range s.Exprs {
				v.checkExpr(where, expr, sc)
			}
			for _, name := range s.Names {
				sc.bind(name)
			}
		case *ast.AssignStmt:
			for _, expr := range s.Rhs {
				v.checkExpr(where, expr, sc)
			}
			for _, lhs := range s.Lhs {
				v.checkExpr(where, lhs, sc)
			}
		case *ast.FuncCallStmt:
			v.checkExpr(where, s.Expr, sc)
		case *ast.DoBlockStmt:
			v.checkBlock(where, s.Stmts, sc)
		case *ast.WhileStmt:
			v.checkExpr(where, s.Condition, sc)
			v.checkBlock(where, s.Stmts, sc)
		case *ast.RepeatStmt:
			v.checkBlock(where, s.Stmts, sc)
			v.checkExpr(where, s.Condition, sc)
		case *ast.IfStmt:
			v.checkExpr(where, s.Condition, sc)
			v.checkBlock(where, s.Then, sc)
			v.checkBlock(where, s.Else, sc)
		case *ast.NumberForStmt:
			v.checkExpr(where, s.Init, sc)
			v.checkExpr(where, s.Limit, sc)
			if s.Step != nil {
				v.checkExpr(where, s.Step, sc)
			}
			body := newScope(sc)
			body.bind(s.Name)
			v.checkBlock(where, s.Stmts, body)
		case *ast.GenericForStmt:
			for _, expr := range s.Exprs {
				v.checkExpr(where, expr, sc)
			}
			body := newScope(sc)
			for _, name := range s.Names {
				body.bind(name)
			}
			v.checkBlock(where, s.Stmts, body)
		case *ast.FuncDefStmt:
			if name, ok := localFuncName(s.Name); ok {
				sc.bind(name)
			}
			inner := newScope(sc)
			for _, p := range s.Func.ParList.Names {
				inner.bind(p)
			}
			v.checkBlock(where, s.Func.Stmts, inner)
		case *ast.ReturnStmt:
			for _, expr := range s.Exprs {
				v.checkExpr(where, expr, sc)
			}
		case *ast.BreakStmt:
		default:
			// labels, goto and anything unrecognized carry no identifiers
			// relevant to closure analysis
		}
	}
}

func (v *validator) checkExpr(where string, expr ast.Expr, sc *scope) {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		v.checkIdent(where, e, sc)
	case *ast.AttrGetExpr:
		v.checkExpr(where, e.Object, sc)
		if _, ok := e.Key.(*ast.StringExpr); !ok {
			v.checkExpr(where, e.Key, sc)
		}
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				if _, ok := f.Key.(*ast.StringExpr); !ok {
					v.checkExpr(where, f.Key, sc)
				}
			}
			v.checkExpr(where, f.Value, sc)
		}
	case *ast.FuncCallExpr:
		v.checkCall(where, e, sc)
	case *ast.LogicalOpExpr:
		v.checkExpr(where, e.Lhs, sc)
		v.checkExpr(where, e.Rhs, sc)
	case *ast.RelationalOpExpr:
		v.checkExpr(where, e.Lhs, sc)
		v.checkExpr(where, e.Rhs, sc)
	case *ast.ArithmeticOpExpr:
		v.checkExpr(where, e.Lhs, sc)
		v.checkExpr(where, e.Rhs, sc)
	case *ast.StringConcatOpExpr:
		v.checkExpr(where, e.Lhs, sc)
		v.checkExpr(where, e.Rhs, sc)
	case *ast.UnaryMinusOpExpr:
		v.checkExpr(where, e.Expr, sc)
	case *ast.UnaryNotOpExpr:
		v.checkExpr(where, e.Expr, sc)
	case *ast.UnaryLenOpExpr:
		v.checkExpr(where, e.Expr, sc)
	case *ast.FunctionExpr:
		inner := newScope(sc)
		for _, p := range e.ParList.Names {
			inner.bind(p)
		}
		v.checkBlock(where, e.Stmts, inner)
	default:
		// literals and varargs
	}
}

func (v *validator) checkCall(where string, call *ast.FuncCallExpr, sc *scope) {
	if call.Func != nil {
		if ident, ok := call.Func.(*ast.IdentExpr); ok && ident.Value == "require" && v.checkImports {
			if len(call.Args) == 1 {
				if mod, ok := call.Args[0].(*ast.StringExpr); ok {
					if !v.authorized.Contains(mod.Value) {
						v.report(where, call.Line(),
							"import of %q is not in the authorized module list [%s]",
							mod.Value, v.authorized.String())
					}
					return
				}
			}
			v.report(where, call.Line(), "require must be called with a single module name literal")
			return
		}
		v.checkExpr(where, call.Func, sc)
	}
	if call.Receiver != nil {
		v.checkExpr(where, call.Receiver, sc)
	}
	for _, arg := range call.Args {
		v.checkExpr(where, arg, sc)
	}
}

func (v *validator) checkIdent(where string, e *ast.IdentExpr, sc *scope) {
	name := e.Value
	if sc.resolves(name) || v.topLevel[name] {
		return
	}
	if safeBaseGlobals[name] || name == "print" || name == "state" || name == "require" {
		return
	}
	if v.authorized.Contains(name) {
		return
	}
	v.report(where, e.Line(), "undefined name %q: not a parameter, local, tool attribute or host built-in", name)
}

type scope struct {
	parent *scope
	names  map[string]bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]bool)}
}

func (s *scope) bind(name string) {
	s.names[name] = true
}

func (s *scope) resolves(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

// isLiteral reports whether an expression is a literal or a table composed
// only of literals.
func isLiteral(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.NilExpr, *ast.TrueExpr, *ast.FalseExpr, *ast.NumberExpr, *ast.StringExpr:
		return true
	case *ast.UnaryMinusOpExpr:
		_, ok := e.Expr.(*ast.NumberExpr)
		return ok
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil && !isLiteral(f.Key) {
				return false
			}
			if !isLiteral(f.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// funcDefName extracts the method name from "function Tool.m()" and
// "function Tool:m()" forms; hasReceiver reports the colon form, whose
// self parameter is implicit.
func funcDefName(fname *ast.FuncName) (string, bool) {
	if fname.Method != "" {
		return fname.Method, true
	}
	if attr, ok := fname.Func.(*ast.AttrGetExpr); ok {
		if key, ok := attr.Key.(*ast.StringExpr); ok {
			return key.Value, false
		}
	}
	if ident, ok := fname.Func.(*ast.IdentExpr); ok {
		return ident.Value, false
	}
	return "?", false
}

func localFuncName(fname *ast.FuncName) (string, bool) {
	if fname.Method == "" {
		if ident, ok := fname.Func.(*ast.IdentExpr); ok {
			return ident.Value, true
		}
	}
	return "", false
}

func renderTarget(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		return e.Value
	case *ast.StringExpr:
		return e.Value
	case *ast.AttrGetExpr:
		if key, ok := e.Key.(*ast.StringExpr); ok {
			return renderTarget(e.Object) + "." + key.Value
		}
		return renderTarget(e.Object) + "[?]"
	default:
		return "?"
	}
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
