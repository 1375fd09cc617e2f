package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tickvm/internal/ast"
	"tickvm/internal/lexer"
	"tickvm/internal/object"
	"tickvm/internal/parser"
	"tickvm/internal/token"
	"tickvm/internal/util"
)

var ErrAssembly = errors.New("script assembly failed")

// Unit is an assembled script: the compiled body plus the primitives it
// references. It is immutable and may be started any number of times.
type Unit struct {
	source  string
	runtime *Runtime
	bound   map[string]*Primitive
	body    expr
	nlocals int
}

// Primitives lists the names of the primitives bound into the unit, sorted.
func (u *Unit) Primitives() []string {
	names := make([]string, 0, len(u.bound))
	for name := range u.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (u *Unit) Source() string { return u.source }

// Start creates a fresh resumable handle for thread. The body does not run
// until the thread is first executed. A body that runs to completion
// retires its thread.
func (u *Unit) Start(thread *Thread) *Generator {
	return u.start(thread, true)
}

func (u *Unit) start(thread *Thread, retire bool) *Generator {
	ctx := u.runtime.ctx
	g := newGenerator(thread, func() object.Value {
		f := &frame{ctx: ctx, locals: make([]object.Value, u.nlocals)}
		v := u.body(f)
		if retire {
			Retire(ctx)
		}
		return v
	})
	thread.generator = g
	thread.Status = STATUS_RUNNING
	return g
}

// Assemble parses and compiles src. Only the primitives the script names in
// call position are bound, plus the base definitions every unit carries. On
// failure the whole source is logged before the error is returned.
func (r *Runtime) Assemble(src string) (*Unit, error) {
	p := parser.New(lexer.New(src))
	script := p.ParseScript()
	if failures := p.Failures(); len(failures) > 0 {
		err := fmt.Errorf("%w: %s", ErrAssembly, strings.Join(p.Errors(), "; "))
		r.assemblyFailed(src, failures[0].Token, err)
		return nil, err
	}

	u := &Unit{
		source:  src,
		runtime: r,
		bound:   selectPrimitives(script),
	}
	c := newCompiler(u)
	body, err := c.compileBody(script.Forms)
	if err != nil {
		var tok token.Token
		var cerr *compileError
		if errors.As(err, &cerr) {
			tok = cerr.tok
		}
		err = fmt.Errorf("%w: %w", ErrAssembly, err)
		r.assemblyFailed(src, tok, err)
		return nil, err
	}
	u.body = body
	u.nlocals = len(c.slots)
	log.Debugf("assembled script with primitives %v", u.Primitives())
	return u, nil
}

func (r *Runtime) assemblyFailed(src string, at token.Token, err error) {
	line, col := util.GetLineAndColumn(src, at.Position)
	r.Log.Errorf("%v\n%s\n--- source ---\n%s", err, util.GetContextLines(src, line, col), src)
}

// selectPrimitives walks the script and binds exactly the primitives that
// appear in call position.
func selectPrimitives(script *ast.Script) map[string]*Primitive {
	bound := map[string]*Primitive{}
	for _, name := range baseDefinitions {
		bound[name] = primitives[name]
	}
	var visit func(n ast.Node)
	visit = func(n ast.Node) {
		form, ok := n.(*ast.Form)
		if !ok {
			return
		}
		head, _ := form.Head()
		if p, ok := primitives[head]; ok {
			bound[head] = p
		}
		args := form.Args()
		switch head {
		case "compat", "compatTracked", "startHats":
			// (NAME value) inputs: the name is a label, not a call
			for _, a := range args {
				if input, ok := a.(*ast.Form); ok && len(input.Items) == 2 {
					visit(input.Items[1])
				} else {
					visit(a)
				}
			}
		default:
			for _, a := range args {
				visit(a)
			}
		}
	}
	for _, f := range script.Forms {
		visit(f)
	}
	return bound
}

// Evaluate assembles src and runs it on a detached thread owned by target
// until it finishes or first suspends. It returns the produced value, or nil
// if the script suspended. The shared context is restored afterwards.
func (r *Runtime) Evaluate(src string, target Target) (object.Value, error) {
	u, err := r.Assemble(src)
	if err != nil {
		return nil, err
	}
	prev := r.ctx.Thread
	defer func() { r.ctx.Thread = prev }()

	thread := NewThread(target, "evaluate")
	g := u.start(thread, false)
	r.Execute(thread)
	if !g.Done() {
		g.Stop()
		return nil, nil
	}
	return g.Value(), nil
}
