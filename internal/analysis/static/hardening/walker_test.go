// Filename: hardening/walker_test.go
package hardening

import (
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

const walkSource = `class A {
	private Object field = build();

	static { boot(); }

	void m() {
		first();
		Runnable r = () -> inLambda();
		Object o = new Object() {
			void inner() { inAnonymous(); }
		};
		class Local { void x() { inLocal(); } }
		last(second());
	}

	void n() { other(); }
}`

func callNames(unit *java.Unit, root *sitter.Node, descend bool) []string {
	var names []string
	Walk(root, descend, func(call *sitter.Node) {
		names = append(names, methodName(unit.Symbols, call))
	})
	return names
}

func TestWalk_FencesNestedBodies(t *testing.T) {
	unit := parse(t, walkSource)
	body := ScopeOf(firstCall(t, unit, "first()"), EnclosingFunction)
	require.NotNil(t, body)

	assert.Equal(t, []string{"first", java.ConstructorName, "last", "second"}, callNames(unit, body, false))
	assert.Equal(t,
		[]string{"first", "inLambda", java.ConstructorName, "inAnonymous", "inLocal", "last", "second"},
		callNames(unit, body, true))
}

func TestScopeOf(t *testing.T) {
	unit := parse(t, walkSource)

	fieldInit := firstCall(t, unit, "build()")
	assert.Nil(t, ScopeOf(fieldInit, EnclosingFunction), "field initializers have no enclosing function")
	typeScope := ScopeOf(fieldInit, EnclosingType)
	require.NotNil(t, typeScope)
	assert.Equal(t, "class_body", typeScope.Type())

	boot := ScopeOf(firstCall(t, unit, "boot()"), EnclosingFunction)
	require.NotNil(t, boot)
	assert.Equal(t, "{ boot(); }", java.NodeContent(boot, unit.Source))

	lambda := ScopeOf(firstCall(t, unit, "inLambda()"), EnclosingFunction)
	require.NotNil(t, lambda)
	assert.Equal(t, "inLambda()", java.NodeContent(lambda, unit.Source), "a lambda bounds its own scope")

	anonymous := ScopeOf(firstCall(t, unit, "inAnonymous()"), EnclosingType)
	require.NotNil(t, anonymous)
	assert.Contains(t, java.NodeContent(anonymous, unit.Source), "void inner()")

	unitScope := ScopeOf(firstCall(t, unit, "other()"), CompilationUnit)
	require.NotNil(t, unitScope)
	assert.Equal(t, "program", unitScope.Type())

	// The type scope walks the methods of the class but not nested types.
	names := callNames(unit, typeScope, false)
	assert.Equal(t, []string{"build", "boot", "first", java.ConstructorName, "last", "second", "other"}, names)
}

func TestAliasSet(t *testing.T) {
	unit := parse(t, `class A { void m() { int a = 1; int b = a; } }`)
	set := NewAliasSet()
	assert.False(t, set.Add(nil), "Unknown is never a member")
	assert.False(t, set.Contains(nil))
	assert.Equal(t, 0, set.Len())

	syms := unit.Symbols.Symbols()
	require.Len(t, syms, 2)
	assert.True(t, set.Add(syms[0]))
	assert.False(t, set.Add(syms[0]))
	assert.True(t, set.Add(syms[1]))
	assert.True(t, set.Contains(syms[1]))
	assert.Equal(t, syms, set.Symbols())
}
