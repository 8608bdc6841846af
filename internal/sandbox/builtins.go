package sandbox

import (
	"fmt"
	"math"
	"math/big"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// predeclared returns the Python builtins the Starlark universe lacks but
// the lesson examples rely on.
func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"sum":   starlark.NewBuiltin("sum", builtinSum),
		"abs":   starlark.NewBuiltin("abs", builtinAbs),
		"round": starlark.NewBuiltin("round", builtinRound),
	}
}

// sum(iterable, start=0)
func builtinSum(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var iterable starlark.Iterable
	var start starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "iterable", &iterable, "start?", &start); err != nil {
		return nil, err
	}

	iter := iterable.Iterate()
	defer iter.Done()

	total := start
	var x starlark.Value
	for iter.Next(&x) {
		v, err := starlark.Binary(syntax.PLUS, total, x)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", b.Name(), err)
		}
		total = v
	}
	return total, nil
}

// abs(x)
func builtinAbs(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
		return nil, err
	}
	switch x := x.(type) {
	case starlark.Int:
		if x.Sign() < 0 {
			return starlark.MakeInt(0).Sub(x), nil
		}
		return x, nil
	case starlark.Float:
		return starlark.Float(math.Abs(float64(x))), nil
	}
	return nil, fmt.Errorf("%s: got %s, want int or float", b.Name(), x.Type())
}

// round(number, ndigits=None), rounding half to even like Python.
func builtinRound(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var x starlark.Value
	var ndigits starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "number", &x, "ndigits?", &ndigits); err != nil {
		return nil, err
	}

	if i, ok := x.(starlark.Int); ok {
		return roundInt(b, i, ndigits)
	}

	f, ok := starlark.AsFloat(x)
	if !ok {
		return nil, fmt.Errorf("%s: got %s, want int or float", b.Name(), x.Type())
	}

	if ndigits == starlark.None {
		return starlark.NumberToInt(starlark.Float(math.RoundToEven(f)))
	}

	n, err := starlark.AsInt32(ndigits)
	if err != nil {
		return nil, fmt.Errorf("%s: ndigits: %v", b.Name(), err)
	}
	pow := math.Pow(10, float64(n))
	return starlark.Float(math.RoundToEven(f*pow) / pow), nil
}

// roundInt keeps ints as ints: non-negative ndigits is a no-op and negative
// ndigits rounds to a multiple of 10**-ndigits, half to even.
func roundInt(b *starlark.Builtin, x starlark.Int, ndigits starlark.Value) (starlark.Value, error) {
	if ndigits == starlark.None {
		return x, nil
	}
	n, err := starlark.AsInt32(ndigits)
	if err != nil {
		return nil, fmt.Errorf("%s: ndigits: %v", b.Name(), err)
	}
	if n >= 0 {
		return x, nil
	}

	v := x.BigInt()
	if -n > len(v.Text(10)) {
		return starlark.MakeInt(0), nil
	}
	p := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n)), nil)
	q, r := new(big.Int).DivMod(v, p, new(big.Int))
	switch r.Lsh(r, 1).Cmp(p) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return starlark.MakeBigInt(q.Mul(q, p)), nil
}
