// Filename: java/symbols_test.go
package java

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable_ScopesAndShadowing(t *testing.T) {
	unit := parseUnit(t, `package com.example;
class A {
	private String name;
	void m(String name) {
		use(name);
		use(this.name);
		{
			int inner = 1;
			use(inner);
		}
		for (String item : items) { use(item); }
	}
}`)
	tab := unit.Symbols
	assert.Equal(t, "com.example", tab.Package())

	idents := findAll(unit, "identifier", "name")
	var param, field *Symbol
	for _, id := range idents {
		if sym := tab.SymbolOf(id); sym != nil {
			switch sym.Kind {
			case SymbolParameter:
				param = sym
			case SymbolField:
				field = sym
			}
		}
	}
	require.NotNil(t, param)
	require.NotNil(t, field)
	assert.NotEqual(t, param.ID(), field.ID())

	// use(name) resolves to the parameter, use(this.name) to the field.
	useArgs := findAll(unit, "argument_list", "(name)")
	require.Len(t, useArgs, 1)
	assert.Same(t, param, tab.SymbolOf(useArgs[0].NamedChild(0)))
	thisName := findNode(t, unit, "field_access", "this.name")
	assert.Same(t, field, tab.SymbolOf(thisName))
	assert.Equal(t, "java.lang.String", field.TypeName)

	item := tab.SymbolOf(findAll(unit, "identifier", "item")[1])
	require.NotNil(t, item)
	assert.Equal(t, SymbolLocal, item.Kind)
	assert.Len(t, item.Writes(), 1)

	// items is never declared: Unknown.
	assert.Nil(t, tab.SymbolOf(findNode(t, unit, "identifier", "items")))
	assert.False(t, tab.SymbolOf(findNode(t, unit, "identifier", "items")).Known())
}

func TestSymbolTable_WritesAndUses(t *testing.T) {
	unit := parseUnit(t, `class A {
	void m() {
		byte[] iv = new byte[16];
		byte[] copy;
		copy = iv;
		copy += 1;
		use(iv, copy);
	}
}`)
	tab := unit.Symbols
	iv := tab.SymbolOf(findNode(t, unit, "identifier", "iv"))
	require.NotNil(t, iv)
	assert.Equal(t, "byte[]", iv.TypeName)
	w, ok := iv.SingleWrite()
	require.True(t, ok)
	assert.Equal(t, "new byte[16]", tab.Content(w.Value))
	assert.Len(t, iv.Uses(), 2)

	copySym := tab.SymbolOf(findNode(t, unit, "identifier", "copy"))
	require.NotNil(t, copySym)
	writes := copySym.Writes()
	require.Len(t, writes, 2)
	assert.False(t, writes[0].Compound)
	assert.Equal(t, "iv", tab.Content(writes[0].Value))
	assert.True(t, writes[1].Compound)
	assert.Nil(t, writes[1].Value)
	_, single := copySym.SingleWrite()
	assert.False(t, single)
}

func TestSymbolTable_ForwardFieldReference(t *testing.T) {
	unit := parseUnit(t, `class A {
	void m() { use(factory); }
	private final TransformerFactory factory = TransformerFactory.newInstance();
}`)
	tab := unit.Symbols
	ref := findNode(t, unit, "identifier", "factory")
	sym := tab.SymbolOf(ref)
	require.NotNil(t, sym)
	assert.Equal(t, SymbolField, sym.Kind)
	assert.True(t, sym.Final)
	assert.Equal(t, "TransformerFactory", sym.TypeName, "unimported types stay simple")
}

func TestSymbolTable_LambdaAndCatch(t *testing.T) {
	unit := parseUnit(t, `import java.util.function.Consumer;
class A {
	void m() {
		Consumer<String> c = s -> use(s);
		try (InputStream in = open()) {
			use(in);
		} catch (IOException e) {
			use(e);
		}
	}
}`)
	tab := unit.Symbols
	for _, name := range []string{"s", "in", "e"} {
		ids := findAll(unit, "identifier", name)
		require.NotEmpty(t, ids, name)
		first := tab.SymbolOf(ids[0])
		require.NotNil(t, first, name)
		for _, id := range ids[1:] {
			assert.Same(t, first, tab.SymbolOf(id), name)
		}
	}
	c := tab.SymbolOf(findNode(t, unit, "identifier", "c"))
	require.NotNil(t, c)
	assert.Equal(t, "java.util.function.Consumer", c.TypeName)
}

func TestSymbolTable_AnonymousClassFields(t *testing.T) {
	unit := parseUnit(t, `class A {
	Object o = new Object() {
		private int count;
		void bump() { count++; }
	};
}`)
	tab := unit.Symbols
	ids := findAll(unit, "identifier", "count")
	require.Len(t, ids, 2)
	assert.Same(t, tab.SymbolOf(ids[0]), tab.SymbolOf(ids[1]))
	assert.Equal(t, "java.lang.Object", tab.EnclosingTypeName(ids[1]))
}

func TestSymbolTable_VarInference(t *testing.T) {
	unit := parseUnit(t, `import javax.xml.transform.TransformerFactory;
class A {
	void m() {
		var tf = TransformerFactory.newInstance();
		var sb = new StringBuilder();
	}
}`)
	tab := unit.Symbols
	tf := tab.SymbolOf(findNode(t, unit, "identifier", "tf"))
	require.NotNil(t, tf)
	assert.Equal(t, "javax.xml.transform.TransformerFactory", tf.TypeName)
	sb := tab.SymbolOf(findNode(t, unit, "identifier", "sb"))
	require.NotNil(t, sb)
	assert.Equal(t, "java.lang.StringBuilder", sb.TypeName)
}
