// Filename: java/constants_test.go
package java

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(t *testing.T, unit *Unit, name string) (any, bool) {
	t.Helper()
	for _, decl := range findAll(unit, "variable_declarator", "") {
		if NodeContent(decl.ChildByFieldName("name"), unit.Source) == name {
			return unit.Symbols.ConstantValueOf(decl.ChildByFieldName("value"))
		}
	}
	t.Fatalf("no declarator %s", name)
	return nil, false
}

func TestConstantValueOf(t *testing.T) {
	unit := parseUnit(t, `import javax.xml.XMLConstants;
import static javax.xml.XMLConstants.ACCESS_EXTERNAL_SCHEMA;
class A {
	static final String PREFIX = "http://";
	private static final long LIMIT = 10_000L;
	private String mutable = "x";
	void m(String param) {
		String a = "plain";
		String b = "esc\"aped\n";
		String c = PREFIX + "host";
		int d = -1;
		long e = LIMIT * 2;
		int f = 0x1F;
		boolean g = !false;
		String h = XMLConstants.ACCESS_EXTERNAL_DTD;
		String i = javax.xml.XMLConstants.ACCESS_EXTERNAL_STYLESHEET;
		String j = ACCESS_EXTERNAL_SCHEMA;
		String k = a;
		String l = mutable;
		String m = param;
		int n = 0;
		n++;
		int o = n;
		String p = (String) ("x" + 1);
		Boolean q = Boolean.TRUE;
		String r = A.PREFIX;
		String s = """
			hello
			""";
	}
}`)

	tests := []struct {
		name     string
		expected any
		ok       bool
	}{
		{"a", "plain", true},
		{"b", "esc\"aped\n", true},
		{"c", "http://host", true},
		{"d", int64(-1), true},
		{"e", int64(20000), true},
		{"f", int64(31), true},
		{"g", true, true},
		{"h", "http://javax.xml.XMLConstants/property/accessExternalDTD", true},
		{"i", "http://javax.xml.XMLConstants/property/accessExternalStylesheet", true},
		{"j", "http://javax.xml.XMLConstants/property/accessExternalSchema", true},
		{"k", "plain", true},
		{"l", nil, false},
		{"m", nil, false},
		{"o", nil, false},
		{"p", "x1", true},
		{"q", true, true},
		{"r", "http://", true},
		{"s", "hello\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := valueOf(t, unit, tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestConstantOrigin(t *testing.T) {
	unit := parseUnit(t, `class A {
	void m() {
		String secret = "hunter2";
		String alias = secret;
		login("admin", alias);
		login("admin", input());
	}
}`)
	calls := findAll(unit, "method_invocation", "")
	require.Len(t, calls, 3)

	origin := unit.Symbols.ConstantOrigin(Argument(calls[0], 1))
	require.NotNil(t, origin)
	assert.Equal(t, `"hunter2"`, NodeContent(origin, unit.Source))
	assert.Equal(t, 3, unit.Location(origin).Line)

	assert.Nil(t, unit.Symbols.ConstantOrigin(Argument(calls[1], 1)))
}

func TestParseIntLiteral(t *testing.T) {
	tests := map[string]int64{
		"0":     0,
		"42":    42,
		"1_000": 1000,
		"0x10":  16,
		"0b101": 5,
		"017":   15,
		"123L":  123,
	}
	for text, expected := range tests {
		got, ok := parseIntLiteral(text)
		assert.True(t, ok, text)
		assert.Equal(t, expected, got, text)
	}
	_, ok := parseIntLiteral("0xZZ")
	assert.False(t, ok)
}
