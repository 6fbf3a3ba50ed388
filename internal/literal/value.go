// Package literal parses and prints the literal notation used by the row
// dumps: None, booleans, integers, floats, complex numbers, strings, bytes,
// tuples, lists, sets and dicts, written the way the exporting program's repr() wrote them.
//
// Parse accepts the literal subset of that notation (no names, calls or
// operators other than a sign on a number and real+imaginary sums). Repr prints a value back in the
// same notation, so Parse(Repr(v)) is Equal to v.
package literal

import (
	"math"
	"math/big"
)

// Kind identifies the concrete type of a Value.
type Kind int

// Value kinds.
const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindComplex
	KindStr
	KindBytes
	KindTuple
	KindList
	KindSet
	KindDict
)

var kindNames = [...]string{
	KindNone:    "NoneType",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindComplex: "complex",
	KindStr:     "str",
	KindBytes:   "bytes",
	KindTuple:   "tuple",
	KindList:    "list",
	KindSet:     "set",
	KindDict:    "dict",
}

// String returns the type name as the exporting program spells it.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a parsed literal. The concrete types are None, Bool, Int, Float,
// Complex, Str, Bytes, Tuple, List, Set and Dict.
type Value interface {
	Kind() Kind
}

// None is the null literal.
type None struct{}

// Bool is True or False.
type Bool bool

// Int is an arbitrary precision integer.
type Int struct {
	V *big.Int
}

// Float is a double precision float.
type Float float64

// Complex is a complex number such as 4j or (3+4j).
type Complex complex128

// Str is a text string.
type Str string

// Bytes is a byte string (b'...').
type Bytes []byte

// Tuple is an immutable sequence.
type Tuple []Value

// List is a mutable sequence.
type List []Value

// Set is an unordered collection of distinct hashable values, kept in
// insertion order.
type Set []Value

// Pair is one dict entry.
type Pair struct {
	Key   Value
	Value Value
}

// Dict is a mapping, kept in insertion order.
type Dict []Pair

func (None) Kind() Kind    { return KindNone }
func (Bool) Kind() Kind    { return KindBool }
func (Int) Kind() Kind     { return KindInt }
func (Float) Kind() Kind   { return KindFloat }
func (Complex) Kind() Kind { return KindComplex }
func (Str) Kind() Kind     { return KindStr }
func (Bytes) Kind() Kind   { return KindBytes }
func (Tuple) Kind() Kind   { return KindTuple }
func (List) Kind() Kind    { return KindList }
func (Set) Kind() Kind     { return KindSet }
func (Dict) Kind() Kind    { return KindDict }

// NewInt returns an Int holding n.
func NewInt(n int64) Int {
	return Int{V: big.NewInt(n)}
}

// Sequence returns the elements of a Tuple or List.
// ok is false for every other kind.
func Sequence(v Value) (items []Value, ok bool) {
	switch s := v.(type) {
	case Tuple:
		return s, true
	case List:
		return s, true
	default:
		return nil, false
	}
}

// Lookup returns the value stored under key in d.
func (d Dict) Lookup(key Value) (Value, bool) {
	for _, p := range d {
		if Equal(p.Key, key) {
			return p.Value, true
		}
	}
	return nil, false
}

// Equal reports whether a and b are equal under the exporting program's
// rules: numbers compare by value across bool, int and float; tuples and
// lists never equal each other; sets and dicts ignore order.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if isNumber(a) && isNumber(b) {
		return numbersEqual(a, b)
	}

	switch x := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Bytes:
		y, ok := b.(Bytes)
		return ok && string(x) == string(y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && sequencesEqual(x, y)
	case List:
		y, ok := b.(List)
		return ok && sequencesEqual(x, y)
	case Set:
		y, ok := b.(Set)
		if !ok || len(x) != len(y) {
			return false
		}
		for _, item := range x {
			if indexOf(y, item) < 0 {
				return false
			}
		}
		return true
	case Dict:
		y, ok := b.(Dict)
		if !ok || len(x) != len(y) {
			return false
		}
		for _, p := range x {
			v, found := y.Lookup(p.Key)
			if !found || !Equal(p.Value, v) {
				return false
			}
		}
		return true
	}
	return false
}

func sequencesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func indexOf(items []Value, v Value) int {
	for i, item := range items {
		if Equal(item, v) {
			return i
		}
	}
	return -1
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Bool, Int, Float, Complex:
		return true
	default:
		return false
	}
}

// numberParts returns v as an integer (i) or a float (f, isFloat).
func numberParts(v Value) (i *big.Int, f float64, isFloat bool) {
	switch n := v.(type) {
	case Bool:
		if n {
			return big.NewInt(1), 0, false
		}
		return big.NewInt(0), 0, false
	case Int:
		return n.V, 0, false
	case Float:
		return nil, float64(n), true
	}
	return big.NewInt(0), 0, false
}

func numbersEqual(a, b Value) bool {
	ca, aComplex := a.(Complex)
	cb, bComplex := b.(Complex)
	if aComplex || bComplex {
		// A real number equals a complex one with a zero imaginary part.
		var reA, reB Value = a, b
		var imA, imB float64
		if aComplex {
			reA, imA = Float(real(ca)), imag(ca)
		}
		if bComplex {
			reB, imB = Float(real(cb)), imag(cb)
		}
		return imA == imB && numbersEqual(reA, reB)
	}

	ai, af, aFloat := numberParts(a)
	bi, bf, bFloat := numberParts(b)
	switch {
	case !aFloat && !bFloat:
		return ai.Cmp(bi) == 0
	case aFloat && bFloat:
		return af == bf
	case aFloat:
		return intEqualsFloat(bi, af)
	default:
		return intEqualsFloat(ai, bf)
	}
}

func intEqualsFloat(i *big.Int, f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	return new(big.Float).SetInt(i).Cmp(big.NewFloat(f)) == 0
}

func hashable(v Value) bool {
	switch x := v.(type) {
	case List, Set, Dict:
		return false
	case Tuple:
		for _, item := range x {
			if !hashable(item) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ToNative converts v to plain Go values for expression evaluation:
// nil, bool, int64 (or *big.Int when out of range), float64, complex128, string,
// []byte, []interface{} for tuples, lists and sets, and
// map[string]interface{} for dicts. Non-string dict keys are rendered with Repr.
func ToNative(v Value) interface{} {
	switch x := v.(type) {
	case nil, None:
		return nil
	case Bool:
		return bool(x)
	case Int:
		if x.V.IsInt64() {
			return x.V.Int64()
		}
		return new(big.Int).Set(x.V)
	case Float:
		return float64(x)
	case Complex:
		return complex128(x)
	case Str:
		return string(x)
	case Bytes:
		return []byte(x)
	case Tuple:
		return nativeSlice(x)
	case List:
		return nativeSlice(x)
	case Set:
		return nativeSlice(x)
	case Dict:
		m := make(map[string]interface{}, len(x))
		for _, p := range x {
			key, ok := p.Key.(Str)
			if ok {
				m[string(key)] = ToNative(p.Value)
				continue
			}
			m[Repr(p.Key)] = ToNative(p.Value)
		}
		return m
	}
	return nil
}

func nativeSlice(items []Value) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = ToNative(item)
	}
	return out
}
