package runtime

import (
	"sort"

	"tickvm/internal/cast"
	"tickvm/internal/object"
	"tickvm/internal/prim"
)

// Primitive is a library function a generated script may call by name.
type Primitive struct {
	Name    string
	MinArgs int
	MaxArgs int
	Fn      func(ctx *Context, args []object.Value) object.Value
}

// baseDefinitions are bound into every unit regardless of use.
var baseDefinitions = []string{"isWhitespace", "compareEqual"}

var primitives = builtinPrimitives()

func builtinPrimitives() map[string]*Primitive {
	defs := []*Primitive{
		{"toBoolean", 1, 1, func(_ *Context, a []object.Value) object.Value { return prim.ToBoolean(a[0]) }},
		{"toNumber", 1, 1, func(_ *Context, a []object.Value) object.Value { return cast.ToNumber(a[0]) }},
		{"toString", 1, 1, func(_ *Context, a []object.Value) object.Value { return cast.String(a[0]) }},
		{"isWhitespace", 1, 1, func(_ *Context, a []object.Value) object.Value { return prim.IsWhitespace(a[0]) }},
		{"compareEqual", 2, 2, func(_ *Context, a []object.Value) object.Value { return prim.CompareEqual(a[0], a[1]) }},
		{"compareGreaterThan", 2, 2, func(_ *Context, a []object.Value) object.Value { return prim.CompareGreaterThan(a[0], a[1]) }},
		{"compareLessThan", 2, 2, func(_ *Context, a []object.Value) object.Value { return prim.CompareLessThan(a[0], a[1]) }},
		{"randomInt", 2, 2, func(_ *Context, a []object.Value) object.Value {
			return prim.RandomInt(cast.ToNumber(a[0]), cast.ToNumber(a[1]))
		}},
		{"randomFloat", 2, 2, func(_ *Context, a []object.Value) object.Value {
			return prim.RandomFloat(cast.ToNumber(a[0]), cast.ToNumber(a[1]))
		}},
		{"listIndex", 2, 2, func(_ *Context, a []object.Value) object.Value {
			return float64(prim.ListIndex(a[0], int(cast.Int32(cast.ToNumber(a[1])))))
		}},
		{"listGet", 2, 2, func(_ *Context, a []object.Value) object.Value {
			list, ok := asList(a[0])
			if !ok {
				return ""
			}
			return prim.ListGet(list, a[1])
		}},
		{"listReplace", 3, 3, func(_ *Context, a []object.Value) object.Value {
			if list, ok := asList(a[0]); ok {
				prim.ListReplace(list, a[1], a[2])
			}
			return nil
		}},
		{"listInsert", 3, 3, func(_ *Context, a []object.Value) object.Value {
			if list, ok := asList(a[0]); ok {
				prim.ListInsert(list, a[1], a[2])
			}
			return nil
		}},
		{"listDelete", 2, 2, func(_ *Context, a []object.Value) object.Value {
			if list, ok := asList(a[0]); ok {
				prim.ListDelete(list, a[1])
			}
			return nil
		}},
		{"listAppend", 2, 2, func(_ *Context, a []object.Value) object.Value {
			if list, ok := asList(a[0]); ok {
				prim.ListAppend(list, a[1])
			}
			return nil
		}},
		{"listLength", 1, 1, func(_ *Context, a []object.Value) object.Value {
			list, ok := asList(a[0])
			if !ok {
				return 0.0
			}
			return prim.ListLength(list)
		}},
		{"listContains", 2, 2, func(_ *Context, a []object.Value) object.Value {
			list, ok := asList(a[0])
			return ok && prim.ListContains(list, a[1])
		}},
		{"listIndexOf", 2, 2, func(_ *Context, a []object.Value) object.Value {
			list, ok := asList(a[0])
			if !ok {
				return 0.0
			}
			return prim.ListIndexOf(list, a[1])
		}},
		{"listContents", 1, 1, func(_ *Context, a []object.Value) object.Value {
			list, ok := asList(a[0])
			if !ok {
				return ""
			}
			return prim.ListContents(list)
		}},
		{"mod", 2, 2, func(_ *Context, a []object.Value) object.Value {
			return prim.Mod(cast.ToNumber(a[0]), cast.ToNumber(a[1]))
		}},
		{"tan", 1, 1, func(_ *Context, a []object.Value) object.Value { return prim.Tan(cast.ToNumber(a[0])) }},
		{"limitPrecision", 1, 1, func(_ *Context, a []object.Value) object.Value {
			return prim.LimitPrecision(cast.ToNumber(a[0]))
		}},
		{"colorToList", 1, 1, func(_ *Context, a []object.Value) object.Value {
			rgb := prim.ColorToList(a[0])
			items := make([]object.Value, len(rgb))
			for i, c := range rgb {
				items[i] = c
			}
			return object.NewList("", items...)
		}},
		{"daysSince2000", 0, 0, func(ctx *Context, _ []object.Value) object.Value {
			return prim.DaysSince2000(ctx.Runtime.now())
		}},
		{"timer", 0, 0, func(ctx *Context, _ []object.Value) object.Value {
			if ctx.Runtime.World == nil {
				return 0.0
			}
			return ctx.Runtime.World.ProjectTimer().Seconds()
		}},
		{"distance", 1, 1, func(ctx *Context, a []object.Value) object.Value { return Distance(ctx, a[0]) }},
	}

	m := make(map[string]*Primitive, len(defs))
	for _, d := range defs {
		m[d.Name] = d
	}
	return m
}

func asList(v object.Value) (*object.List, bool) {
	list, ok := v.(*object.List)
	return list, ok && list != nil
}

// LookupPrimitive finds a library primitive by name.
func LookupPrimitive(name string) (*Primitive, bool) {
	p, ok := primitives[name]
	return p, ok
}

// PrimitiveNames lists every library primitive, sorted.
func PrimitiveNames() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
