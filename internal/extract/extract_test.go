package extract

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/pymap/internal/symbol"
)

// Test Plan for Extract (end-to-end pipeline):
// - Top-level symbol count and order match declaration order
// - Module docstring and module name from the file identifier
// - Class kind classification: enum, protocol, named tuple, typed dict,
//   data class (frozen), abstract, generic, plain
// - Exception detection from base names
// - Enum member capture, dataclass fields with defaults
// - Method modifiers: static, class_bound, abstract, context_manager
// - Function shape: coroutine vs generator vs async generator
// - Property getter/setter/deleter merge, unmatched accessor warning
// - cached_property counts as a getter
// - Overload collapse into one group with N overloads
// - Export filtering from __all__, visibility-derived default otherwise
// - Visibility from naming convention
// - Qualified path assignment
// - Type aliases, constants, decorator order preservation
// - Docstring parameter mismatch warning
// - Recovery: malformed statement keeps siblings, diagnostics recorded
// - Lex failure: partial tree plus LexError, Complete false
// - Budget exhaustion: truncated tree plus BudgetExceeded diagnostic
// - Full fixture file extracts without errors

func run(t *testing.T, src string) *symbol.Result {
	t.Helper()
	return Extract(context.Background(), src, "pkg/mod.py", Options{})
}

func TestExtract_TopLevelOrder(t *testing.T) {
	t.Parallel()

	src := "class A:\n    pass\n\ndef f():\n    pass\n\nclass B:\n    pass\n\ndef g():\n    pass\n"
	res := run(t, src)
	require.True(t, res.Complete)

	var names []string
	for _, c := range res.Module.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"A", "f", "B", "g"}, names)
	assert.Equal(t, symbol.KindClass, res.Module.Children[0].Kind)
	assert.Equal(t, symbol.KindFunction, res.Module.Children[1].Kind)
}

func TestExtract_ModuleNameAndDocstring(t *testing.T) {
	t.Parallel()

	res := Extract(context.Background(), "\"\"\"Service module.\"\"\"\n", "src/app/service.py", Options{})
	assert.Equal(t, "service", res.Module.Name)
	require.NotNil(t, res.Module.Docstring)
	assert.Equal(t, "Service module.", res.Module.Docstring.Summary)

	pkg := Extract(context.Background(), "", "src/app/__init__.py", Options{})
	assert.Equal(t, "app", pkg.Module.Name)
}

func TestExtract_EnumClass(t *testing.T) {
	t.Parallel()

	src := "from enum import Enum\n\nclass Color(Enum):\n    RED = \"red\"\n    GREEN = \"green\"\n"
	res := run(t, src)

	color := res.Module.Find("Color")
	require.NotNil(t, color)
	assert.Equal(t, symbol.ClassEnum, color.ClassKind)
	require.Len(t, color.Children, 2)
	assert.Equal(t, symbol.KindEnumMember, color.Children[0].Kind)
	assert.Equal(t, "RED", color.Children[0].Name)
	assert.Equal(t, "\"red\"", color.Children[0].Value)
}

func TestExtract_ClassKinds(t *testing.T) {
	t.Parallel()

	src := `class P(Protocol):
    pass

class NT(NamedTuple):
    x: int

class TD(TypedDict):
    key: str

class Plain(Base):
    pass

class Abstract(ABC):
    pass

class Meta(Base, metaclass=ABCMeta):
    pass
`
	res := run(t, src)

	assert.Equal(t, symbol.ClassProtocol, res.Module.Find("P").ClassKind)
	assert.Equal(t, symbol.ClassNamedTuple, res.Module.Find("NT").ClassKind)
	assert.Equal(t, symbol.ClassTypedDict, res.Module.Find("TD").ClassKind)
	assert.Equal(t, symbol.ClassPlain, res.Module.Find("Plain").ClassKind)
	assert.Equal(t, symbol.ClassAbstract, res.Module.Find("Abstract").ClassKind)
	assert.Equal(t, symbol.ClassAbstract, res.Module.Find("Meta").ClassKind)
	assert.Equal(t, []string{"Base"}, res.Module.Find("Plain").Bases)
}

func TestExtract_GenericClass(t *testing.T) {
	t.Parallel()

	src := "class Box(Generic[T]):\n    pass\n\nclass Pair(Generic[K, V]):\n    pass\n"
	res := run(t, src)

	box := res.Module.Find("Box")
	assert.Equal(t, symbol.ClassGeneric, box.ClassKind)
	assert.Equal(t, []string{"T"}, box.TypeParams)

	pair := res.Module.Find("Pair")
	assert.Equal(t, []string{"K", "V"}, pair.TypeParams)
}

func TestExtract_DataclassEndToEnd(t *testing.T) {
	t.Parallel()

	src := "@dataclass\nclass Config:\n    name: str\n    count: int = 0\n    enabled: bool = True\n"
	res := run(t, src)
	require.True(t, res.Complete)

	cfg := res.Module.Find("Config")
	require.NotNil(t, cfg)
	assert.Equal(t, symbol.KindClass, cfg.Kind)
	assert.Equal(t, symbol.ClassDataClass, cfg.ClassKind)

	require.Len(t, cfg.Children, 3)
	name := cfg.Children[0]
	assert.Equal(t, symbol.KindField, name.Kind)
	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "str", name.Type.String())
	assert.Empty(t, name.Value)

	count := cfg.Children[1]
	assert.Equal(t, "count", count.Name)
	assert.Equal(t, "int", count.Type.String())
	assert.Equal(t, "0", count.Value)

	enabled := cfg.Children[2]
	assert.Equal(t, "enabled", enabled.Name)
	assert.Equal(t, "bool", enabled.Type.String())
	assert.Equal(t, "True", enabled.Value)
}

func TestExtract_FrozenDataclass(t *testing.T) {
	t.Parallel()

	src := "@dataclasses.dataclass(frozen=True)\nclass Point:\n    x: int\n    y: int\n"
	res := run(t, src)

	point := res.Module.Find("Point")
	assert.Equal(t, symbol.ClassDataClass, point.ClassKind)
	assert.True(t, point.Modifiers.Has(symbol.ModFrozen))
}

func TestExtract_ExceptionClass(t *testing.T) {
	t.Parallel()

	src := "class StorageError(Exception):\n    pass\n\nclass DeadlineError(TimeoutError):\n    pass\n\nclass NotAnError(Base):\n    pass\n"
	res := run(t, src)

	assert.True(t, res.Module.Find("StorageError").IsException)
	assert.True(t, res.Module.Find("DeadlineError").IsException)
	assert.False(t, res.Module.Find("NotAnError").IsException)
}

func TestExtract_SlottedClass(t *testing.T) {
	t.Parallel()

	src := "class Node:\n    __slots__ = (\"value\", \"next\")\n\n    def __init__(self):\n        pass\n"
	res := run(t, src)

	node := res.Module.Find("Node")
	assert.True(t, node.Modifiers.Has(symbol.ModSlotted))
	// The __slots__ binding itself is not a child symbol.
	assert.Nil(t, node.Find("__slots__"))
}

func TestExtract_MethodModifiers(t *testing.T) {
	t.Parallel()

	src := `class Service:
    @staticmethod
    def validate(name):
        pass

    @classmethod
    def create(cls):
        pass

    @abstractmethod
    def handle(self):
        pass

    @contextmanager
    def session(self):
        yield self
`
	res := run(t, src)
	svc := res.Module.Find("Service")

	assert.True(t, svc.Find("validate").Modifiers.Has(symbol.ModStatic))
	assert.True(t, svc.Find("create").Modifiers.Has(symbol.ModClassBound))
	assert.True(t, svc.Find("handle").Modifiers.Has(symbol.ModAbstract))
	session := svc.Find("session")
	assert.True(t, session.Modifiers.Has(symbol.ModContextManager))
	assert.True(t, session.Modifiers.Has(symbol.ModGenerator))

	// Abstract members promote the class itself.
	assert.Equal(t, symbol.ClassAbstract, svc.ClassKind)
}

func TestExtract_FunctionShapes(t *testing.T) {
	t.Parallel()

	src := `async def co():
    return 1

async def agen():
    yield 1

def gen():
    yield 2

def plain():
    return 3
`
	res := run(t, src)

	co := res.Module.Find("co")
	assert.True(t, co.Modifiers.Has(symbol.ModAsync))
	assert.False(t, co.Modifiers.Has(symbol.ModAsyncGenerator))
	assert.False(t, co.Modifiers.Has(symbol.ModGenerator))

	agen := res.Module.Find("agen")
	assert.True(t, agen.Modifiers.Has(symbol.ModAsync))
	assert.True(t, agen.Modifiers.Has(symbol.ModAsyncGenerator))

	gen := res.Module.Find("gen")
	assert.True(t, gen.Modifiers.Has(symbol.ModGenerator))
	assert.False(t, gen.Modifiers.Has(symbol.ModAsync))

	plain := res.Module.Find("plain")
	assert.Empty(t, plain.Modifiers)
}

func TestExtract_PropertyMerge(t *testing.T) {
	t.Parallel()

	src := `class Handler:
    @property
    def name(self) -> str:
        """The handler name."""
        return self._name

    @name.setter
    def name(self, value: str) -> None:
        self._name = value

    @name.deleter
    def name(self) -> None:
        del self._name
`
	res := run(t, src)
	handler := res.Module.Find("Handler")

	require.Len(t, handler.Children, 1)
	group := handler.Children[0]
	assert.Equal(t, symbol.KindPropertyGroup, group.Kind)
	assert.Equal(t, "name", group.Name)
	require.NotNil(t, group.Property)
	require.NotNil(t, group.Property.Getter)
	require.NotNil(t, group.Property.Setter)
	require.NotNil(t, group.Property.Deleter)
	assert.Equal(t, "str", group.Property.Getter.Returns.String())
	require.NotNil(t, group.Docstring)
	assert.Equal(t, "The handler name.", group.Docstring.Summary)
}

func TestExtract_UnmatchedSetterWarning(t *testing.T) {
	t.Parallel()

	src := `class Odd:
    @name.setter
    def name(self, value):
        self._name = value
`
	res := run(t, src)
	odd := res.Module.Find("Odd")

	// Stays a standalone method, with exactly one warning.
	require.Len(t, odd.Children, 1)
	assert.Equal(t, symbol.KindMethod, odd.Children[0].Kind)

	warnings := 0
	for _, d := range res.Diagnostics {
		if d.Kind == symbol.DiagStructuralWarning {
			warnings++
			assert.Contains(t, d.Message, "unmatched accessor")
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestExtract_CachedPropertyIsGetter(t *testing.T) {
	t.Parallel()

	src := "class S:\n    @functools.cached_property\n    def summary(self) -> str:\n        return \"x\"\n"
	res := run(t, src)

	group := res.Module.Find("S").Find("summary")
	require.NotNil(t, group)
	assert.Equal(t, symbol.KindPropertyGroup, group.Kind)
}

func TestExtract_OverloadCollapse(t *testing.T) {
	t.Parallel()

	src := `@overload
def fetch(key: int) -> str: ...

@overload
def fetch(key: str) -> str: ...

def fetch(key):
    return str(key)
`
	res := run(t, src)

	require.Len(t, res.Module.Children, 1)
	group := res.Module.Children[0]
	assert.Equal(t, symbol.KindOverloadGroup, group.Kind)
	assert.Equal(t, "fetch", group.Name)
	assert.Len(t, group.Overloads, 2)
	require.NotNil(t, group.Signature)
	require.Len(t, group.Signature.Params, 1)
	assert.Equal(t, "key", group.Signature.Params[0].Name)
}

func TestExtract_OverloadsWithoutImplementation(t *testing.T) {
	t.Parallel()

	src := "@overload\ndef f(x: int) -> int: ...\n\n@overload\ndef f(x: str) -> str: ...\n"
	res := run(t, src)

	// No terminal implementation: plain functions plus warnings.
	for _, c := range res.Module.Children {
		assert.Equal(t, symbol.KindFunction, c.Kind)
	}
	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == symbol.DiagStructuralWarning {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtract_ExportFiltering(t *testing.T) {
	t.Parallel()

	src := "__all__ = [\"public_fn\", \"Thing\"]\n\ndef public_fn():\n    pass\n\ndef also_public():\n    pass\n\nclass Thing:\n    pass\n\nclass Hidden:\n    pass\n"
	res := run(t, src)

	assert.True(t, res.Module.Find("public_fn").Exported)
	assert.True(t, res.Module.Find("Thing").Exported)
	assert.False(t, res.Module.Find("also_public").Exported)
	assert.False(t, res.Module.Find("Hidden").Exported)
}

func TestExtract_ExportDefaultFromVisibility(t *testing.T) {
	t.Parallel()

	src := "def visible():\n    pass\n\ndef _internal():\n    pass\n"
	res := run(t, src)

	assert.True(t, res.Module.Find("visible").Exported)
	assert.False(t, res.Module.Find("_internal").Exported)
}

func TestExtract_VisibilityMatrix(t *testing.T) {
	t.Parallel()

	src := `class C:
    def public_method(self):
        pass

    def _protected_method(self):
        pass

    def __private_method(self):
        pass

    def __dunder_method__(self):
        pass
`
	res := run(t, src)
	c := res.Module.Find("C")

	assert.Equal(t, symbol.VisibilityPublic, c.Find("public_method").Visibility)
	assert.Equal(t, symbol.VisibilityProtected, c.Find("_protected_method").Visibility)
	assert.Equal(t, symbol.VisibilityPrivate, c.Find("__private_method").Visibility)
	assert.Equal(t, symbol.VisibilityDunder, c.Find("__dunder_method__").Visibility)
}

func TestExtract_QualifiedPaths(t *testing.T) {
	t.Parallel()

	src := "class Outer:\n    class Inner:\n        def m(self):\n            pass\n"
	res := run(t, src)

	assert.Equal(t, "mod", res.Module.Path)
	outer := res.Module.Find("Outer")
	assert.Equal(t, "mod.Outer", outer.Path)
	inner := outer.Find("Inner")
	assert.Equal(t, "mod.Outer.Inner", inner.Path)
	assert.Equal(t, "mod.Outer.Inner.m", inner.Find("m").Path)
}

func TestExtract_ConstantsAndAliases(t *testing.T) {
	t.Parallel()

	src := "MAX_RETRIES = 3\n_TIMEOUT: float = 30.0\nUserId: TypeAlias = int\ntype Key = str | int\n"
	res := run(t, src)

	maxRetries := res.Module.Find("MAX_RETRIES")
	assert.Equal(t, symbol.KindConstantBinding, maxRetries.Kind)
	assert.Equal(t, "3", maxRetries.Value)

	timeout := res.Module.Find("_TIMEOUT")
	assert.Equal(t, "float", timeout.Type.String())
	assert.Equal(t, symbol.VisibilityProtected, timeout.Visibility)

	userID := res.Module.Find("UserId")
	assert.Equal(t, symbol.KindTypeAlias, userID.Kind)
	assert.Equal(t, "int", userID.Type.String())

	key := res.Module.Find("Key")
	assert.Equal(t, symbol.KindTypeAlias, key.Kind)
	assert.Equal(t, "str | int", key.Type.String())
}

func TestExtract_DecoratorOrderPreserved(t *testing.T) {
	t.Parallel()

	src := "@outer\n@middle(arg=1)\n@inner\ndef f():\n    pass\n"
	res := run(t, src)

	f := res.Module.Find("f")
	require.Len(t, f.Decorators, 3)
	assert.Equal(t, "outer", f.Decorators[0].Name)
	assert.Equal(t, "middle", f.Decorators[1].Name)
	assert.Equal(t, "arg=1", f.Decorators[1].Args)
	assert.Equal(t, "inner", f.Decorators[2].Name)
}

func TestExtract_DocstringParamMismatchWarning(t *testing.T) {
	t.Parallel()

	src := "def f(x):\n    \"\"\"Do it.\n\n    :param x: Real.\n    :param ghost: Not a parameter.\n    \"\"\"\n    return x\n"
	res := run(t, src)

	found := false
	for _, d := range res.Diagnostics {
		if d.Kind == symbol.DiagStructuralWarning {
			assert.Contains(t, d.Message, "ghost")
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtract_RecoveryKeepsSiblings(t *testing.T) {
	t.Parallel()

	src := "def bad(:):\n    pass\n\ndef good(x: int) -> int:\n    return x\n"
	res := run(t, src)

	assert.NotNil(t, res.Module.Find("good"))
	assert.Nil(t, res.Module.Find("bad"))

	hasSyntax := false
	for _, d := range res.Diagnostics {
		if d.Kind == symbol.DiagSyntaxError {
			hasSyntax = true
		}
	}
	assert.True(t, hasSyntax)
	assert.True(t, res.Complete, "syntax errors are recoverable, not truncating")
}

func TestExtract_LexErrorPartialTree(t *testing.T) {
	t.Parallel()

	src := "VALUE = 1\n\ndef early():\n    return VALUE\n\nresult = compute(VALUE, 2\n"
	res := run(t, src)

	assert.False(t, res.Complete)
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, symbol.DiagLexError, res.Diagnostics[0].Kind)

	// Declarations before the failure still come back.
	assert.NotNil(t, res.Module.Find("VALUE"))
	assert.NotNil(t, res.Module.Find("early"))
}

func TestExtract_BudgetTruncation(t *testing.T) {
	t.Parallel()

	src := "a = 1\nb = 2\nc = 3\nd = 4\ne = 5\n"
	res := Extract(context.Background(), src, "mod.py", Options{Budget: 3})

	assert.False(t, res.Complete)
	hasBudget := false
	for _, d := range res.Diagnostics {
		if d.Kind == symbol.DiagBudgetExceeded {
			hasBudget = true
		}
	}
	assert.True(t, hasBudget)
	assert.Less(t, len(res.Module.Children), 5)
}

func TestExtract_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Extract(ctx, "a = 1\nb = 2\n", "mod.py", Options{})
	assert.False(t, res.Complete)
}

func TestExtract_SampleFixture(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile("../../testdata/code/python/sample.py")
	require.NoError(t, err)

	res := Extract(context.Background(), string(data), "sample.py", Options{})
	require.True(t, res.Complete)

	for _, d := range res.Diagnostics {
		assert.NotEqual(t, symbol.SeverityError, d.Severity, "unexpected error: %s", d)
	}

	svc := res.Module.Find("UserService")
	require.NotNil(t, svc)
	assert.Equal(t, symbol.ClassGeneric, svc.ClassKind)
	assert.True(t, svc.Exported)

	fetch := svc.Find("fetch")
	require.NotNil(t, fetch)
	assert.True(t, fetch.Modifiers.Has(symbol.ModAsync))

	stream := svc.Find("stream")
	require.NotNil(t, stream)
	assert.True(t, stream.Modifiers.Has(symbol.ModAsyncGenerator))

	group := res.Module.Find("fetch_user")
	require.NotNil(t, group)
	assert.Equal(t, symbol.KindOverloadGroup, group.Kind)
	assert.Len(t, group.Overloads, 2)

	assert.False(t, res.Module.Find("_build_registry").Exported)
	assert.True(t, res.Module.Find("MAX_RETRIES").Exported)
}
