package runtime

import (
	"fmt"
	"math"
	"unicode/utf16"

	"tickvm/internal/ast"
	"tickvm/internal/cast"
	"tickvm/internal/object"
	"tickvm/internal/prim"
	"tickvm/internal/token"
)

// frame holds the locals of one activation of a unit.
type frame struct {
	ctx      *Context
	locals   []object.Value
	returned bool
	result   object.Value
}

type expr func(f *frame) object.Value

type compileError struct {
	tok token.Token
	msg string
}

func (e *compileError) Error() string {
	return fmt.Sprintf("line %d (offset %d): %s", e.tok.Line, e.tok.Position, e.msg)
}

type compiler struct {
	unit  *Unit
	slots map[string]int
}

func newCompiler(u *Unit) *compiler {
	return &compiler{unit: u, slots: map[string]int{}}
}

func errorAt(n ast.Node, format string, a ...any) error {
	return &compileError{tok: n.Pos(), msg: fmt.Sprintf(format, a...)}
}

func (c *compiler) compileBody(nodes []ast.Node) (expr, error) {
	exprs, err := c.compileAll(nodes)
	if err != nil {
		return nil, err
	}
	return sequence(exprs), nil
}

func (c *compiler) compileAll(nodes []ast.Node) ([]expr, error) {
	exprs := make([]expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func sequence(exprs []expr) expr {
	return func(f *frame) object.Value {
		var v object.Value
		for _, e := range exprs {
			v = e(f)
			if f.returned {
				return f.result
			}
		}
		return v
	}
}

func constant(v object.Value) expr {
	return func(*frame) object.Value { return v }
}

func (c *compiler) compile(n ast.Node) (expr, error) {
	switch node := n.(type) {
	case *ast.NumberLiteral:
		return constant(node.Value), nil
	case *ast.StringLiteral:
		return constant(node.Value), nil
	case *ast.Boolean:
		return constant(node.Value), nil
	case *ast.Nil:
		return constant(nil), nil
	case *ast.Identifier:
		slot, ok := c.slots[node.Value]
		if !ok {
			return nil, errorAt(node, "unknown identifier %q", node.Value)
		}
		return func(f *frame) object.Value { return f.locals[slot] }, nil
	case *ast.Form:
		return c.compileForm(node)
	default:
		return nil, errorAt(n, "cannot compile %s", n.String())
	}
}

type formCompiler func(c *compiler, form *ast.Form) (expr, error)

var specialForms map[string]formCompiler

func init() {
	specialForms = map[string]formCompiler{
		"do":            (*compiler).compileDo,
		"let":           (*compiler).compileLet,
		"set":           (*compiler).compileSet,
		"if":            (*compiler).compileIf,
		"and":           (*compiler).compileLogical,
		"or":            (*compiler).compileLogical,
		"while":         (*compiler).compileWhile,
		"until":         (*compiler).compileUntil,
		"repeat":        (*compiler).compileRepeat,
		"forever":       (*compiler).compileForever,
		"warp":          (*compiler).compileWarp,
		"yield":         (*compiler).compileYield,
		"return":        (*compiler).compileReturn,
		"var":           (*compiler).compileVar,
		"setvar":        (*compiler).compileSetVar,
		"list":          (*compiler).compileList,
		"await":         (*compiler).compileAwait,
		"compat":        (*compiler).compileCompat,
		"compatTracked": (*compiler).compileCompat,
		"resumed":       (*compiler).compileResumed,
		"startHats":     (*compiler).compileStartHats,
		"waitAll":       (*compiler).compileWaitAll,
		"retire":        (*compiler).compileRetire,
		"addon":         (*compiler).compileAddon,
		"isStuck":       (*compiler).compileIsStuck,
	}
	for name, op := range operators {
		specialForms[name] = op.compile
	}
}

func (c *compiler) compileForm(form *ast.Form) (expr, error) {
	head, ok := form.Head()
	if !ok {
		return nil, errorAt(form, "form must start with an identifier: %s", form.String())
	}
	if fc, ok := specialForms[head]; ok {
		return fc(c, form)
	}
	p, ok := c.unit.bound[head]
	if !ok {
		return nil, errorAt(form, "unknown identifier %q", head)
	}
	return c.compileCall(form, p)
}

func (c *compiler) compileCall(form *ast.Form, p *Primitive) (expr, error) {
	args := form.Args()
	if len(args) < p.MinArgs || len(args) > p.MaxArgs {
		return nil, errorAt(form, "%s takes %s, got %d", p.Name, arity(p.MinArgs, p.MaxArgs), len(args))
	}
	exprs, err := c.compileAll(args)
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		return p.Fn(f.ctx, evalAll(f, exprs))
	}, nil
}

func arity(lo, hi int) string {
	if lo == hi {
		return fmt.Sprintf("%d arguments", lo)
	}
	return fmt.Sprintf("%d to %d arguments", lo, hi)
}

func evalAll(f *frame, exprs []expr) []object.Value {
	vals := make([]object.Value, len(exprs))
	for i, e := range exprs {
		vals[i] = e(f)
	}
	return vals
}

// expectArgs checks the argument count; hi < 0 means no upper bound.
func expectArgs(form *ast.Form, lo, hi int) error {
	n := len(form.Args())
	if n < lo || (hi >= 0 && n > hi) {
		head, _ := form.Head()
		if hi < 0 {
			return errorAt(form, "%s takes at least %d arguments, got %d", head, lo, n)
		}
		return errorAt(form, "%s takes %s, got %d", head, arity(lo, hi), n)
	}
	return nil
}

func stringArg(form *ast.Form, i int) (string, error) {
	s, ok := form.Args()[i].(*ast.StringLiteral)
	if !ok {
		head, _ := form.Head()
		return "", errorAt(form.Args()[i], "%s expects a string literal, got %s", head, form.Args()[i].String())
	}
	return s.Value, nil
}

func identArg(form *ast.Form, i int) (*ast.Identifier, error) {
	id, ok := form.Args()[i].(*ast.Identifier)
	if !ok {
		head, _ := form.Head()
		return nil, errorAt(form.Args()[i], "%s expects a name, got %s", head, form.Args()[i].String())
	}
	return id, nil
}

// namedInputs compiles trailing (NAME expr) pairs.
func (c *compiler) namedInputs(nodes []ast.Node) (func(f *frame) map[string]object.Value, error) {
	names := make([]string, len(nodes))
	exprs := make([]expr, len(nodes))
	for i, n := range nodes {
		input, ok := n.(*ast.Form)
		if !ok || len(input.Items) != 2 {
			return nil, errorAt(n, "expected (NAME value), got %s", n.String())
		}
		name, ok := input.Head()
		if !ok {
			return nil, errorAt(n, "expected (NAME value), got %s", n.String())
		}
		e, err := c.compile(input.Items[1])
		if err != nil {
			return nil, err
		}
		names[i] = name
		exprs[i] = e
	}
	return func(f *frame) map[string]object.Value {
		m := make(map[string]object.Value, len(names))
		for i, name := range names {
			m[name] = exprs[i](f)
		}
		return m
	}, nil
}

func (c *compiler) compileDo(form *ast.Form) (expr, error) {
	return c.compileBody(form.Args())
}

func (c *compiler) compileLet(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, 2); err != nil {
		return nil, err
	}
	id, err := identArg(form, 0)
	if err != nil {
		return nil, err
	}
	value, err := c.compile(form.Args()[1])
	if err != nil {
		return nil, err
	}
	slot, ok := c.slots[id.Value]
	if !ok {
		slot = len(c.slots)
		c.slots[id.Value] = slot
	}
	return func(f *frame) object.Value {
		v := value(f)
		f.locals[slot] = v
		return v
	}, nil
}

func (c *compiler) compileSet(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, 2); err != nil {
		return nil, err
	}
	id, err := identArg(form, 0)
	if err != nil {
		return nil, err
	}
	slot, ok := c.slots[id.Value]
	if !ok {
		return nil, errorAt(id, "set of undeclared local %q", id.Value)
	}
	value, err := c.compile(form.Args()[1])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		v := value(f)
		f.locals[slot] = v
		return v
	}, nil
}

func (c *compiler) compileIf(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, 3); err != nil {
		return nil, err
	}
	exprs, err := c.compileAll(form.Args())
	if err != nil {
		return nil, err
	}
	cond, then := exprs[0], exprs[1]
	alt := constant(nil)
	if len(exprs) == 3 {
		alt = exprs[2]
	}
	return func(f *frame) object.Value {
		if prim.ToBoolean(cond(f)) {
			return then(f)
		}
		return alt(f)
	}, nil
}

// compileLogical builds and/or. The right operand only runs when the left
// one does not decide the result.
func (c *compiler) compileLogical(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, 2); err != nil {
		return nil, err
	}
	exprs, err := c.compileAll(form.Args())
	if err != nil {
		return nil, err
	}
	left, right := exprs[0], exprs[1]
	head, _ := form.Head()
	decides := head == "or"
	return func(f *frame) object.Value {
		if prim.ToBoolean(left(f)) == decides {
			return decides
		}
		return prim.ToBoolean(right(f))
	}, nil
}

// loopYield is the yield point at the end of every loop iteration.
func loopYield(f *frame) {
	thread := f.ctx.Thread
	if thread.Warp == 0 || IsStuck(f.ctx) {
		thread.generator.suspend()
	}
}

func (c *compiler) loop(cond expr, want bool, body []ast.Node) (expr, error) {
	run, err := c.compileBody(body)
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		for prim.ToBoolean(cond(f)) == want {
			run(f)
			if f.returned {
				return f.result
			}
			loopYield(f)
		}
		return nil
	}, nil
}

func (c *compiler) compileWhile(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, -1); err != nil {
		return nil, err
	}
	cond, err := c.compile(form.Args()[0])
	if err != nil {
		return nil, err
	}
	return c.loop(cond, true, form.Args()[1:])
}

func (c *compiler) compileUntil(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, -1); err != nil {
		return nil, err
	}
	cond, err := c.compile(form.Args()[0])
	if err != nil {
		return nil, err
	}
	return c.loop(cond, false, form.Args()[1:])
}

func (c *compiler) compileForever(form *ast.Form) (expr, error) {
	return c.loop(constant(true), true, form.Args())
}

func (c *compiler) compileRepeat(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, -1); err != nil {
		return nil, err
	}
	times, err := c.compile(form.Args()[0])
	if err != nil {
		return nil, err
	}
	run, err := c.compileBody(form.Args()[1:])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		for i := jsRound(cast.ToNumber(times(f))); i >= 0.5; i-- {
			run(f)
			if f.returned {
				return f.result
			}
			loopYield(f)
		}
		return nil
	}, nil
}

func (c *compiler) compileWarp(form *ast.Form) (expr, error) {
	run, err := c.compileBody(form.Args())
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		thread := f.ctx.Thread
		thread.Warp++
		defer func() { thread.Warp-- }()
		return run(f)
	}, nil
}

func (c *compiler) compileYield(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 0, 0); err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		f.ctx.Thread.generator.suspend()
		return nil
	}, nil
}

func (c *compiler) compileReturn(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 0, 1); err != nil {
		return nil, err
	}
	value := constant(nil)
	if len(form.Args()) == 1 {
		e, err := c.compile(form.Args()[0])
		if err != nil {
			return nil, err
		}
		value = e
	}
	return func(f *frame) object.Value {
		f.result = value(f)
		f.returned = true
		return f.result
	}, nil
}

func (c *compiler) compileVar(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, 1); err != nil {
		return nil, err
	}
	name, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		target := f.ctx.Thread.Target
		if target == nil {
			return 0.0
		}
		v := target.LookupVariable(name)
		if v == nil {
			return 0.0
		}
		return v.Value
	}, nil
}

func (c *compiler) compileSetVar(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, 2); err != nil {
		return nil, err
	}
	name, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	value, err := c.compile(form.Args()[1])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		val := value(f)
		if target := f.ctx.Thread.Target; target != nil {
			if v := target.LookupVariable(name); v != nil {
				v.Value = val
			}
		}
		return val
	}, nil
}

func (c *compiler) compileList(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, 1); err != nil {
		return nil, err
	}
	name, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		target := f.ctx.Thread.Target
		if target == nil {
			return nil
		}
		if list := target.LookupList(name); list != nil {
			return list
		}
		return nil
	}, nil
}

func (c *compiler) compileAwait(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, 1); err != nil {
		return nil, err
	}
	value, err := c.compile(form.Args()[0])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		v := value(f)
		if a, ok := v.(Awaitable); ok {
			return AwaitPromise(f.ctx, a)
		}
		return v
	}, nil
}

func (c *compiler) compileCompat(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, -1); err != nil {
		return nil, err
	}
	opcode, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	fn, ok := c.unit.runtime.LookupBlock(opcode)
	if !ok {
		return nil, errorAt(form, "no interpreted block for opcode %q", opcode)
	}
	inputs, err := c.namedInputs(form.Args()[1:])
	if err != nil {
		return nil, err
	}
	head, _ := form.Head()
	track := head == "compatTracked"
	return func(f *frame) object.Value {
		return RunCompatibility(f.ctx, inputs(f), fn, track)
	}, nil
}

func (c *compiler) compileResumed(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 0, 0); err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		return f.ctx.Thread.ResumedFromPromise
	}, nil
}

func (c *compiler) compileStartHats(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, -1); err != nil {
		return nil, err
	}
	event, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	fields, err := c.namedInputs(form.Args()[1:])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		return StartHats(f.ctx, event, fields(f))
	}, nil
}

func (c *compiler) compileWaitAll(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 1, 1); err != nil {
		return nil, err
	}
	value, err := c.compile(form.Args()[0])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		if threads, ok := value(f).([]*Thread); ok {
			WaitAllThreads(f.ctx, threads)
		}
		return nil
	}, nil
}

func (c *compiler) compileRetire(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 0, 0); err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		Retire(f.ctx)
		return nil
	}, nil
}

func (c *compiler) compileAddon(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 2, -1); err != nil {
		return nil, err
	}
	id, err := stringArg(form, 0)
	if err != nil {
		return nil, err
	}
	blockID, err := stringArg(form, 1)
	if err != nil {
		return nil, err
	}
	args, err := c.compileAll(form.Args()[2:])
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		CallAddonBlock(f.ctx, id, blockID, evalAll(f, args))
		return nil
	}, nil
}

func (c *compiler) compileIsStuck(form *ast.Form) (expr, error) {
	if err := expectArgs(form, 0, 0); err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		return IsStuck(f.ctx)
	}, nil
}

// operator is a built-in form that is always available to scripts.
type operator struct {
	lo, hi int
	fn     func(args []object.Value) object.Value
}

func (op operator) compile(c *compiler, form *ast.Form) (expr, error) {
	if err := expectArgs(form, op.lo, op.hi); err != nil {
		return nil, err
	}
	exprs, err := c.compileAll(form.Args())
	if err != nil {
		return nil, err
	}
	return func(f *frame) object.Value {
		return op.fn(evalAll(f, exprs))
	}, nil
}

func num(v object.Value) float64 { return cast.ToNumber(v) }

func unary(fn func(float64) float64) operator {
	return operator{1, 1, func(a []object.Value) object.Value { return fn(num(a[0])) }}
}

func binary(fn func(a, b float64) float64) operator {
	return operator{2, 2, func(a []object.Value) object.Value { return fn(num(a[0]), num(a[1])) }}
}

var operators = map[string]operator{
	"add": binary(func(a, b float64) float64 { return a + b }),
	"sub": binary(func(a, b float64) float64 { return a - b }),
	"mul": binary(func(a, b float64) float64 { return a * b }),
	"div": binary(func(a, b float64) float64 { return a / b }),
	"neg": unary(func(a float64) float64 { return -a }),
	"not": {1, 1, func(a []object.Value) object.Value { return !prim.ToBoolean(a[0]) }},
	"join": {0, -1, func(a []object.Value) object.Value {
		s := ""
		for _, v := range a {
			s += cast.String(v)
		}
		return s
	}},
	"length": {1, 1, func(a []object.Value) object.Value { return float64(cast.Length(cast.String(a[0]))) }},
	"letter": {2, 2, func(a []object.Value) object.Value { return letterOf(num(a[0]), cast.String(a[1])) }},
	"round":  unary(jsRound),
	"abs":    unary(math.Abs),
	"floor":  unary(math.Floor),
	"ceil":   unary(math.Ceil),
	"sqrt":   unary(math.Sqrt),
}

// jsRound rounds half up, towards positive infinity.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

// letterOf returns the UTF-16 unit at 1-based index n, or "" when out of range.
func letterOf(n float64, s string) string {
	units := utf16.Encode([]rune(s))
	i := math.Floor(n - 1)
	if math.IsNaN(i) || i < 0 || i >= float64(len(units)) {
		return ""
	}
	return string(utf16.Decode(units[int(i) : int(i)+1]))
}
