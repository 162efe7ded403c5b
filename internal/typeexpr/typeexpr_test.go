package typeexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Type Normalizer:
// - Plain and dotted name references
// - Subscripted generics with ordered type arguments
// - Union[...] and the | shorthand, flattened to one member list
// - Optional[...] as an explicit wrapper
// - typing.Optional / typing.Union normalize like the bare names
// - String forward references kept as unresolved names
// - Quoted expressions re-parsed ("List[Node]")
// - Literal arguments (numbers, None, Ellipsis)
// - Tolerance: malformed input degrades to a raw name node
// - Canonical String rendering is stable

func TestParse_PlainNames(t *testing.T) {
	t.Parallel()

	expr := Parse("int")
	require.NotNil(t, expr)
	assert.Equal(t, KindName, expr.Kind)
	assert.Equal(t, "int", expr.Name)

	dotted := Parse("os.PathLike")
	assert.Equal(t, KindName, dotted.Kind)
	assert.Equal(t, "os.PathLike", dotted.Name)
}

func TestParse_Generic(t *testing.T) {
	t.Parallel()

	expr := Parse("dict[str, int]")
	require.NotNil(t, expr)
	assert.Equal(t, KindGeneric, expr.Kind)
	assert.Equal(t, "dict", expr.Name)
	require.Len(t, expr.Args, 2)
	assert.Equal(t, "str", expr.Args[0].Name)
	assert.Equal(t, "int", expr.Args[1].Name)
}

func TestParse_NestedGeneric(t *testing.T) {
	t.Parallel()

	expr := Parse("Dict[str, List[int]]")
	require.Equal(t, KindGeneric, expr.Kind)
	require.Len(t, expr.Args, 2)
	inner := expr.Args[1]
	assert.Equal(t, KindGeneric, inner.Kind)
	assert.Equal(t, "List", inner.Name)
}

func TestParse_UnionShorthand(t *testing.T) {
	t.Parallel()

	expr := Parse("int | str | None")
	require.Equal(t, KindUnion, expr.Kind)
	require.Len(t, expr.Args, 3)
	assert.Equal(t, "int", expr.Args[0].Name)
	assert.Equal(t, "str", expr.Args[1].Name)
	assert.Equal(t, KindLiteral, expr.Args[2].Kind)
	assert.Equal(t, "None", expr.Args[2].Name)
}

func TestParse_ExplicitUnionFlattens(t *testing.T) {
	t.Parallel()

	expr := Parse("Union[int, Union[str, bytes]]")
	require.Equal(t, KindUnion, expr.Kind)
	assert.Len(t, expr.Args, 3)
}

func TestParse_Optional(t *testing.T) {
	t.Parallel()

	expr := Parse("Optional[List[int]]")
	require.Equal(t, KindOptional, expr.Kind)
	require.Len(t, expr.Args, 1)
	assert.Equal(t, KindGeneric, expr.Args[0].Kind)

	qualified := Parse("typing.Optional[int]")
	assert.Equal(t, KindOptional, qualified.Kind)
}

func TestParse_ForwardReference(t *testing.T) {
	t.Parallel()

	expr := Parse(`"Node"`)
	require.Equal(t, KindForward, expr.Kind)
	assert.Equal(t, "Node", expr.Name)

	// A quoted full expression is normalized, not kept opaque.
	listOf := Parse(`"List[Node]"`)
	require.Equal(t, KindGeneric, listOf.Kind)
	assert.Equal(t, "List", listOf.Name)
}

func TestParse_RecursiveAliasStaysNamed(t *testing.T) {
	t.Parallel()

	// Self-reference must not recurse during normalization; the forward
	// name is resolved lazily by symbol lookup later.
	expr := Parse(`Union[int, List["Tree"]]`)
	require.Equal(t, KindUnion, expr.Kind)
	require.Len(t, expr.Args, 2)
	leaf := expr.Args[1]
	require.Equal(t, KindGeneric, leaf.Kind)
	require.Len(t, leaf.Args, 1)
	assert.Equal(t, KindForward, leaf.Args[0].Kind)
	assert.Equal(t, "Tree", leaf.Args[0].Name)
}

func TestParse_Literals(t *testing.T) {
	t.Parallel()

	lit := Parse("Literal[1, -2, \"r\"]")
	require.Equal(t, KindGeneric, lit.Kind)
	require.Len(t, lit.Args, 3)
	assert.Equal(t, KindLiteral, lit.Args[0].Kind)
	assert.Equal(t, "-2", lit.Args[1].Name)

	callable := Parse("Callable[..., int]")
	require.Equal(t, KindGeneric, callable.Kind)
	assert.Equal(t, "...", callable.Args[0].Name)
}

func TestParse_CallableParamList(t *testing.T) {
	t.Parallel()

	expr := Parse("Callable[[int, str], bool]")
	require.Equal(t, KindGeneric, expr.Kind)
	require.Len(t, expr.Args, 2)
}

func TestParse_MalformedFallsBackToRawName(t *testing.T) {
	t.Parallel()

	expr := Parse("List[int")
	require.NotNil(t, expr)
	assert.Equal(t, KindName, expr.Kind)
	assert.Equal(t, "List[int", expr.Name)
}

func TestParse_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Parse(""))
	assert.Nil(t, Parse("   "))
}

func TestString_CanonicalRendering(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"dict[str,int]":        "dict[str, int]",
		"int|None":             "int | None",
		"Optional[ str ]":      "Optional[str]",
		"Union[int,str]":       "int | str",
		`"Node"`:               `"Node"`,
		"Callable[..., None]":  "Callable[..., None]",
	}
	for input, want := range cases {
		assert.Equal(t, want, Parse(input).String(), "input %q", input)
	}
}
