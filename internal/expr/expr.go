// Package expr builds the declarative filter predicates installed on
// rendering-engine layers and evaluates them against attribute maps.
//
// Predicates are JSON arrays in the MapLibre style expression grammar:
//
//	["all", ["has", "plant_year"], [">=", ["to-number", ["get", "plant_year"]], 2000]]
//
// Only the operators this module emits are supported by Eval.
package expr

import (
	"encoding/json"

	"github.com/joeblew999/plat-trees/internal/feature"
)

// Expr is one expression node: an operator name followed by its operands.
type Expr []any

// MarshalJSON keeps a nil expression as JSON null.
func (e Expr) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	return json.Marshal([]any(e))
}

func All(exprs ...Expr) Expr { return Expr(append([]any{"all"}, operands(exprs)...)) }
func Any(exprs ...Expr) Expr { return Expr(append([]any{"any"}, operands(exprs)...)) }
func Not(e Expr) Expr { return Expr{"!", e} }
func Has(key string) Expr { return Expr{"has", key} }
func Get(key string) Expr { return Expr{"get", key} }
func ToNumber(e Expr) Expr { return Expr{"to-number", e} }
func Eq(a, b any) Expr { return Expr{"==", a, b} }
func Gte(a, b any) Expr { return Expr{">=", a, b} }
func Lte(a, b any) Expr { return Expr{"<=", a, b} }
func Slice(e Expr, from, to int) Expr {
	return Expr{"slice", e, from, to}
}

// Never matches no feature.
func Never() Expr { return Eq(1, 0) }

func operands(exprs []Expr) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e
	}
	return out
}

// Match evaluates e as a layer filter: only a boolean true keeps the feature.
func Match(e Expr, attrs feature.Attrs) bool {
	if e == nil {
		return true
	}
	b, ok := Eval(e, attrs).(bool)
	return ok && b
}

// Eval evaluates a node. Literals evaluate to themselves; evaluation errors
// such as type mismatches yield nil, which no comparison accepts.
func Eval(node any, attrs feature.Attrs) any {
	e, ok := asExpr(node)
	if !ok {
		return literal(node)
	}
	if len(e) == 0 {
		return nil
	}
	op, _ := e[0].(string)
	args := e[1:]

	switch op {
	case "all":
		for _, a := range args {
			if b, ok := Eval(a, attrs).(bool); !ok || !b {
				return false
			}
		}
		return true
	case "any":
		for _, a := range args {
			if b, ok := Eval(a, attrs).(bool); ok && b {
				return true
			}
		}
		return false
	case "!":
		if len(args) != 1 {
			return nil
		}
		b, ok := Eval(args[0], attrs).(bool)
		if !ok {
			return nil
		}
		return !b
	case "has":
		if len(args) != 1 {
			return nil
		}
		key, _ := args[0].(string)
		return attrs.Has(key)
	case "get":
		if len(args) != 1 {
			return nil
		}
		key, _ := args[0].(string)
		return literal(attrs[key])
	case "to-number":
		if len(args) != 1 {
			return nil
		}
		if n, ok := feature.ToNumber(Eval(args[0], attrs)); ok {
			return n
		}
		return nil
	case "slice":
		if len(args) != 3 {
			return nil
		}
		s, ok := Eval(args[0], attrs).(string)
		if !ok {
			return nil
		}
		from, ok1 := feature.ToNumber(args[1])
		to, ok2 := feature.ToNumber(args[2])
		if !ok1 || !ok2 {
			return nil
		}
		return sliceString(s, int(from), int(to))
	case "==":
		if len(args) != 2 {
			return nil
		}
		return equal(Eval(args[0], attrs), Eval(args[1], attrs))
	case ">=", "<=":
		if len(args) != 2 {
			return nil
		}
		a, ok1 := Eval(args[0], attrs).(float64)
		b, ok2 := Eval(args[1], attrs).(float64)
		if !ok1 || !ok2 {
			return false
		}
		if op == ">=" {
			return a >= b
		}
		return a <= b
	}
	return nil
}

func asExpr(node any) (Expr, bool) {
	switch v := node.(type) {
	case Expr:
		return v, true
	case []any:
		return Expr(v), true
	}
	return nil, false
}

// literal normalises numbers to float64 so comparisons are type-stable.
func literal(v any) any {
	switch n := v.(type) {
	case int, int64, float32, json.Number:
		f, ok := feature.ToNumber(n)
		if !ok {
			return nil
		}
		return f
	}
	return v
}

func equal(a, b any) bool {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

func sliceString(s string, from, to int) string {
	r := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(r) {
		to = len(r)
	}
	if from >= to {
		return ""
	}
	return string(r[from:to])
}
