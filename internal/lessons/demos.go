package lessons

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/starlark"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

// VariableInfo is the runtime type tag and rendering of a value.
type VariableInfo struct {
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Describe reports the type and display value of any Starlark value.
// Strings are shown without quotes, the way print shows them.
func Describe(name string, v starlark.Value) VariableInfo {
	info := VariableInfo{Name: name, Type: v.Type(), Value: v.String()}
	if s, ok := starlark.AsString(v); ok {
		info.Value = s
	}
	return info
}

// ParseNumber reads a number widget's text as an int when it has no
// fractional part and as a float otherwise.
func ParseNumber(s string) (starlark.Value, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return starlark.MakeInt64(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return starlark.Float(f), nil
}

// AssignmentResult shows how widget values are stored as variables.
type AssignmentResult struct {
	Variables []VariableInfo `json:"variables"`
	Code      string         `json:"code"`
}

// Assignment binds the three widget values to variables and renders them.
func Assignment(number, text string, flag bool) (*AssignmentResult, error) {
	n, err := ParseNumber(number)
	if err != nil {
		return nil, err
	}

	vars := []struct {
		name string
		v    starlark.Value
	}{
		{"number", n},
		{"text", starlark.String(text)},
		{"is_true", starlark.Bool(flag)},
	}

	res := &AssignmentResult{}
	var code strings.Builder
	for _, v := range vars {
		res.Variables = append(res.Variables, Describe(v.name, v.v))
		fmt.Fprintf(&code, "%s = %s    # Type: %s\n", v.name, v.v.String(), v.v.Type())
	}
	res.Code = code.String()
	return res, nil
}

// listStart is the list every demo begins with; nothing carries over
// between requests.
var listStart = []string{"apple", "banana"}

// ListResult shows a list before and after an append.
type ListResult struct {
	Before string `json:"before"`
	After  string `json:"after"`
	Length int    `json:"length"`
	Code   string `json:"code"`
}

// AppendToList appends item to a fresh copy of the starting list.
func AppendToList(item string) (*ListResult, error) {
	elems := make([]starlark.Value, len(listStart))
	for i, s := range listStart {
		elems[i] = starlark.String(s)
	}
	list := starlark.NewList(elems)
	before := list.String()

	if err := list.Append(starlark.String(item)); err != nil {
		return nil, err
	}

	return &ListResult{
		Before: before,
		After:  list.String(),
		Length: list.Len(),
		Code:   fmt.Sprintf("demo_list = %s", list.String()),
	}, nil
}

// TupleCode tries to modify a tuple in place.
const TupleCode = `coordinates = (10, 20)
coordinates[0] = 30
`

// SnippetResult pairs a generated snippet with the result of running it.
type SnippetResult struct {
	Code   string         `json:"code"`
	Result sandbox.Result `json:"result"`
}

// TupleImmutability runs TupleCode to show that tuples reject item
// assignment. The result is expected to be a failure.
func TupleImmutability(ctx context.Context, sb sandbox.Sandbox) *SnippetResult {
	return &SnippetResult{
		Code:   TupleCode,
		Result: sb.Exec(ctx, sandbox.ExecOpts{Code: TupleCode}),
	}
}

// commentSafe keeps a user value on one comment line.
var commentSafe = strings.NewReplacer("\n", `\n`, "\r", `\r`)

// DictResult shows a dictionary built from one key-value pair.
type DictResult struct {
	Dict string `json:"dict"`
	SnippetResult
}

// AddToDict stores key: value in a fresh dictionary and runs the access
// examples against it.
func AddToDict(ctx context.Context, sb sandbox.Sandbox, key, value string) (*DictResult, error) {
	dict := starlark.NewDict(1)
	k := starlark.String(key)
	if err := dict.SetKey(k, starlark.String(value)); err != nil {
		return nil, err
	}

	code := fmt.Sprintf(`# Your dictionary code:
demo_dict = %s

# Try accessing values:
print(demo_dict[%s])  # Output: %s
print(demo_dict.get("nonexistent", "Not found"))  # Output: Not found
`, dict.String(), k.String(), commentSafe.Replace(value))

	return &DictResult{
		Dict: dict.String(),
		SnippetResult: SnippetResult{
			Code:   code,
			Result: sb.Exec(ctx, sandbox.ExecOpts{Code: code}),
		},
	}, nil
}
