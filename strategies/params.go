package strategies

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Param is one named strategy parameter.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered parameter set. Order follows the strategy's grid
// and is kept in result rows and exports.
type Params []Param

func (p Params) Get(name string) (any, bool) {
	for _, kv := range p {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return nil, false
}

func (p Params) Int(name string) (int, error) {
	v, ok := p.Get(name)
	if !ok {
		return 0, fmt.Errorf("missing param %q", name)
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, fmt.Errorf("param %q: %v is not an integer", name, v)
}

func (p Params) Float(name string) (float64, error) {
	v, ok := p.Get(name)
	if !ok {
		return 0, fmt.Errorf("missing param %q", name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("param %q: %v is not a number", name, v)
}

func (p Params) Bool(name string) (bool, error) {
	v, ok := p.Get(name)
	if !ok {
		return false, fmt.Errorf("missing param %q", name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %q: %v is not a bool", name, v)
	}
	return b, nil
}

func (p Params) Names() []string {
	out := make([]string, len(p))
	for i, kv := range p {
		out[i] = kv.Name
	}
	return out
}

// Values formats every value with fmt.Sprint, in order.
func (p Params) Values() []string {
	out := make([]string, len(p))
	for i, kv := range p {
		out[i] = fmt.Sprint(kv.Value)
	}
	return out
}

func (p Params) String() string {
	pairs := make([]string, len(p))
	for i, kv := range p {
		pairs[i] = fmt.Sprintf("%s=%v", kv.Name, kv.Value)
	}
	return strings.Join(pairs, " ")
}

// Set parses a "name=value" override. The value is parsed as the type the
// parameter already holds, so only known names can be set.
func (p Params) Set(kv string) (Params, error) {
	name, raw, ok := strings.Cut(kv, "=")
	name, raw = strings.TrimSpace(name), strings.TrimSpace(raw)
	if !ok || name == "" {
		return nil, fmt.Errorf("param %q: want name=value", kv)
	}

	out := make(Params, len(p))
	copy(out, p)
	for i, q := range out {
		if q.Name != name {
			continue
		}
		var (
			v   any
			err error
		)
		switch q.Value.(type) {
		case int:
			v, err = strconv.Atoi(raw)
		case float64:
			v, err = strconv.ParseFloat(raw, 64)
		case bool:
			v, err = strconv.ParseBool(raw)
		default:
			v = raw
		}
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", name, err)
		}
		out[i].Value = v
		return out, nil
	}
	return nil, fmt.Errorf("unknown param %q (have %s)", name, strings.Join(p.Names(), ", "))
}

// Axis is one grid dimension.
type Axis struct {
	Name   string
	Values []any
}

// Grid is the cartesian product of its axes. The last axis varies fastest.
type Grid []Axis

// Size is the number of combinations before pruning.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, a := range g {
		n *= len(a.Values)
	}
	return n
}

// Combinations lazily yields every parameter set that valid accepts. A nil
// valid accepts everything. Each yielded Params is a fresh slice.
func (g Grid) Combinations(valid func(Params) bool) iter.Seq[Params] {
	return func(yield func(Params) bool) {
		if g.Size() == 0 {
			return
		}
		idx := make([]int, len(g))
		for {
			p := make(Params, len(g))
			for i, a := range g {
				p[i] = Param{Name: a.Name, Value: a.Values[idx[i]]}
			}
			if valid == nil || valid(p) {
				if !yield(p) {
					return
				}
			}

			// odometer increment
			i := len(g) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(g[i].Values) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// Count drains seq and returns how many sets it yields.
func Count(seq iter.Seq[Params]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func ints(xs ...int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func floats(xs ...float64) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

func bools(xs ...bool) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}
