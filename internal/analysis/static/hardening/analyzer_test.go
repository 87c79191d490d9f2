// Filename: hardening/analyzer_test.go
package hardening

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const ivSource = `import javax.crypto.spec.IvParameterSpec;
import java.security.SecureRandom;

class Enc {
	void fixed() {
		byte[] fixedBytes = "0123456789abcdef".getBytes();
		IvParameterSpec spec = new IvParameterSpec(fixedBytes);
	}

	void random() {
		SecureRandom secureRandom = new SecureRandom();
		byte[] buf = new byte[16];
		secureRandom.nextBytes(buf);
		IvParameterSpec spec = new IvParameterSpec(buf);
	}
}
`

// Scenario: an IV built from fixed bytes is reported, one filled from a
// SecureRandom is not.
func TestAnalyze_IVHardening(t *testing.T) {
	reports := analyze(t, ivSource, defaults(), ivRule())
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "iv-test", r.RuleID)
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.Equal(t, 7, r.Location.Line)
	assert.Equal(t, "IvParameterSpec spec = new IvParameterSpec(fixedBytes);", r.Location.Snippet)
	require.Len(t, r.Secondary, 1, "the tracked variable's declaration")
	assert.Equal(t, 6, r.Secondary[0].Line)
}

func TestAnalyze_IVInlineFreshBuffer(t *testing.T) {
	reports := analyze(t, `import javax.crypto.spec.IvParameterSpec;
class Enc {
	void zero() { init(new IvParameterSpec(new byte[16])); }
}`, defaults(), ivRule())
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Location.Line)
}

const transformerPartial = `import javax.xml.XMLConstants;
import javax.xml.transform.TransformerFactory;

class Xml {
	void partial() {
		TransformerFactory factory = TransformerFactory.newInstance();
		factory.setAttribute(XMLConstants.ACCESS_EXTERNAL_DTD, "");
	}
}
`

// Scenario: AllOf over two attributes.
func TestAnalyze_TransformerAllOf(t *testing.T) {
	reports := analyze(t, transformerPartial, defaults(), transformerRule())
	require.Len(t, reports, 1, "one of two required attributes is not enough")
	assert.Equal(t, 6, reports[0].Location.Line)

	full := strings.Replace(transformerPartial,
		`factory.setAttribute(XMLConstants.ACCESS_EXTERNAL_DTD, "");`,
		`factory.setAttribute(XMLConstants.ACCESS_EXTERNAL_DTD, "");
		factory.setAttribute(XMLConstants.ACCESS_EXTERNAL_STYLESHEET, "");`, 1)
	assert.Empty(t, analyze(t, full, defaults(), transformerRule()))

	wrongValue := strings.Replace(full, `ACCESS_EXTERNAL_STYLESHEET, ""`, `ACCESS_EXTERNAL_STYLESHEET, "all"`, 1)
	assert.Len(t, analyze(t, wrongValue, defaults(), transformerRule()), 1)
}

func TestAnalyze_TransformerFluentChain(t *testing.T) {
	reports := analyze(t, `import javax.xml.transform.TransformerFactory;
class Xml {
	void chained() throws Exception {
		TransformerFactory.newInstance().newTransformer().transform(src, out);
	}
}`, defaults(), transformerRule())
	assert.Len(t, reports, 1)
}

// Scenario: the cookie leaves local analysis through an unrelated call.
func TestAnalyze_CookieEscape(t *testing.T) {
	code := `import javax.servlet.http.Cookie;
import javax.servlet.http.HttpServletResponse;

class Cookies {
	void escaped(String name, String value) {
		Cookie c = new Cookie(name, value);
		process(c);
	}

	void exempt(String name, String value, HttpServletResponse response) {
		Cookie c = new Cookie(name, value);
		response.addCookie(c);
	}

	void inline(HttpServletResponse response) {
		response.addCookie(new Cookie("a", "b"));
	}

	void secured(String name, String value, HttpServletResponse response) {
		Cookie c = new Cookie(name, value);
		c.setSecure(true);
		response.addCookie(c);
	}

	void disabled(String name, String value, HttpServletResponse response) {
		Cookie c = new Cookie(name, value);
		c.setSecure(false);
		response.addCookie(c);
	}

	void dynamic(String name, String value, boolean flag) {
		Cookie c = new Cookie(name, value);
		c.setSecure(flag);
	}

	void process(Cookie c) {}
}
`
	reports := analyze(t, code, defaults(), cookieRule("setSecure"))
	lines := make([]int, 0, len(reports))
	for _, r := range reports {
		lines = append(lines, r.Location.Line)
	}
	// exempt (11), inline (16) and disabled (26) are reported.
	assert.Equal(t, []int{11, 16, 26}, lines)
}

// Scenario: unit-wide evidence for a deferred rule.
func TestAnalyze_DeferredUnitScope(t *testing.T) {
	rule := &Rule{
		ID:      "upload-size-test",
		Message: "Limit upload sizes.",
		Triggers: []Trigger{{
			Method: Method([]string{"org.apache.commons.fileupload.servlet.ServletFileUpload"}, "setSizeMax", "setFileSizeMax"),
			Args:   []ArgCheck{Equals(0, -1)},
			Object: Result(),
		}},
		Scope:        CompilationUnit,
		Securing:     When(AnyCall{Method: Named("setSizeMax", "setFileSizeMax"), Args: []ArgCheck{AtLeast(0, 0)}}),
		IgnoreEscape: true,
	}
	base := `import org.apache.commons.fileupload.servlet.ServletFileUpload;

class Upload {
	private ServletFileUpload upload = new ServletFileUpload();

	void configure() {
		upload.setSizeMax(-1);
	}
%s
}
`
	unguarded := strings.Replace(base, "%s", "", 1)
	reports := analyze(t, unguarded, defaults(), rule)
	require.Len(t, reports, 1)
	assert.Equal(t, 7, reports[0].Location.Line)

	guarded := strings.Replace(base, "%s", `
	void limit() {
		upload.setSizeMax(1024 * 1024);
	}`, 1)
	assert.Empty(t, analyze(t, guarded, defaults(), rule))

	nonConstant := strings.Replace(base, "%s", `
	void limit(long max) {
		upload.setSizeMax(max);
	}`, 1)
	assert.Len(t, analyze(t, nonConstant, defaults(), rule), 1, "a non-constant limit is not evidence")
}

func TestAnalyze_Determinism(t *testing.T) {
	code := ivSource + "\n" + strings.Replace(transformerPartial, "import", "// import", 2)
	rules := []*Rule{ivRule(), transformerRule(), cookieRule("setSecure")}
	first := analyze(t, code, defaults(), rules...)
	second := analyze(t, code, defaults(), rules...)
	require.NotEmpty(t, first)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ between runs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_AliasInvariance(t *testing.T) {
	renamed := strings.ReplaceAll(ivSource, "fixedBytes", "k")
	renamed = strings.ReplaceAll(renamed, "buf", "zz")
	type pos struct{ rule, line, col int }
	positions := func(reports []Report) []pos {
		var out []pos
		for _, r := range reports {
			out = append(out, pos{len(r.RuleID), r.Location.Line, r.Location.Column})
			for _, s := range r.Secondary {
				out = append(out, pos{0, s.Line, s.Column})
			}
		}
		return out
	}
	assert.Equal(t,
		positions(analyze(t, ivSource, defaults(), ivRule())),
		positions(analyze(t, renamed, defaults(), ivRule())))
}

func TestAnalyze_EscapeConservatism(t *testing.T) {
	cases := map[string]string{
		"iv passed before use": `import javax.crypto.spec.IvParameterSpec;
class A { void m() { byte[] iv = new byte[16]; fill(iv); new IvParameterSpec(iv); } }`,
		"factory handed to a helper": `import javax.xml.transform.TransformerFactory;
class A { void m() { TransformerFactory f = TransformerFactory.newInstance(); harden(f); } }`,
		"alias escapes": `import javax.servlet.http.Cookie;
class A { void m() { Cookie c = new Cookie("a", "b"); Cookie d = c; list.add(d); } }`,
		"stored into another object": `import javax.servlet.http.Cookie;
class A { void m(Holder h) { h.cookie = new Cookie("a", "b"); } }`,
	}
	rules := []*Rule{ivRule(), transformerRule(), cookieRule("setSecure")}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, analyze(t, code, defaults(), rules...))
		})
	}
}

func TestAnalyze_AllOfCompleteness(t *testing.T) {
	const factory = "com.acme.Factory"
	rule := &Rule{
		ID:       "allof-test",
		Message:  "Harden the factory.",
		Triggers: []Trigger{{Method: Constructor(factory), Object: Result()}},
		Securing: AllOf(
			When(CallOn{Method: Named("one")}),
			When(CallOn{Method: Named("two")}),
			When(CallOn{Method: Named("three")}),
		),
	}
	calls := []string{"f.one();", "f.two();", "f.three();"}
	for skip := range calls {
		var body []string
		for i, c := range calls {
			if i != skip {
				body = append(body, c)
			}
		}
		code := "import com.acme.Factory;\nclass A { void m() { Factory f = new Factory(); " + strings.Join(body, " ") + " } }"
		assert.Len(t, analyze(t, code, defaults(), rule), 1, "missing %s", calls[skip])
	}
	code := "import com.acme.Factory;\nclass A { void m() { Factory f = new Factory(); " + strings.Join(calls, " ") + " } }"
	assert.Empty(t, analyze(t, code, defaults(), rule))
}

func TestAnalyze_UnknownSymbolSafety(t *testing.T) {
	cases := map[string]string{
		"undeclared":        `class A { void m() { new javax.crypto.spec.IvParameterSpec(undeclared); } }`,
		"call result":       `class A { void m() { new javax.crypto.spec.IvParameterSpec(loadIv()); } }`,
		"foreign field":     `class A { void m(Holder h) { new javax.crypto.spec.IvParameterSpec(h.iv); } }`,
		"field initializer": `class A { javax.crypto.spec.IvParameterSpec spec = new javax.crypto.spec.IvParameterSpec(new byte[16]); }`,
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, analyze(t, code, defaults(), ivRule()))
		})
	}
}

func TestAnalyze_NestedBodiesAreFenced(t *testing.T) {
	code := `import javax.crypto.spec.IvParameterSpec;
import java.security.SecureRandom;
class A {
	void m() {
		SecureRandom r = new SecureRandom();
		byte[] iv = new byte[16];
		Runnable fill = () -> r.nextBytes(iv);
		new IvParameterSpec(iv);
	}
}`
	assert.Len(t, analyze(t, code, defaults(), ivRule()), 1)

	nested := ivRule()
	nested.DescendNested = true
	assert.Empty(t, analyze(t, code, defaults(), nested))
}

func TestAnalyze_OneHopAliases(t *testing.T) {
	code := `import javax.crypto.spec.IvParameterSpec;
import java.security.SecureRandom;
class A {
	private final SecureRandom random = new SecureRandom();
	void copy() {
		byte[] iv = new byte[16];
		byte[] other = iv;
		random.nextBytes(other);
		new IvParameterSpec(iv);
	}
	void reassigned() {
		byte[] iv = new byte[16];
		byte[] target;
		target = iv;
		this.random.nextBytes(target);
		new IvParameterSpec(iv);
	}
}`
	assert.Empty(t, analyze(t, code, defaults(), ivRule()))
}

func TestAnalyze_BuilderChain(t *testing.T) {
	rule := &Rule{
		ID:       "jwt-test",
		Message:  "Sign the token.",
		Triggers: []Trigger{{Method: Method([]string{"io.jsonwebtoken.Jwts"}, "builder"), Object: Result()}},
		Securing: When(CallOn{Method: Named("signWith")}),
	}
	code := `import io.jsonwebtoken.Jwts;
import io.jsonwebtoken.JwtBuilder;
class Tokens {
	String unsigned(String s) {
		return Jwts.builder().setSubject(s).compact();
	}
	String signed(String s, java.security.Key k) {
		return Jwts.builder().setSubject(s).signWith(k).compact();
	}
	String split(String s, java.security.Key k) {
		JwtBuilder b = Jwts.builder().setSubject(s);
		b.signWith(k);
		return b.compact();
	}
}`
	reports := analyze(t, code, defaults(), rule)
	require.Len(t, reports, 1)
	assert.Equal(t, 5, reports[0].Location.Line)
}

func TestAnalyze_DynamicSeedAndUnwrapBound(t *testing.T) {
	rule := &Rule{
		ID:      "credentials-test",
		Message: "Do not hard-code credentials.",
		Triggers: []Trigger{{
			Method: Constructor("java.net.PasswordAuthentication").WithParams("java.lang.String", "char[]"),
			Object: ArgumentAt(1),
		}},
		Securing:     When(DynamicSeed{}),
		IgnoreEscape: true,
	}
	code := `import java.net.PasswordAuthentication;
class Auth {
	PasswordAuthentication viaVariable() {
		String secret = "hunter2";
		char[] pwd = secret.toCharArray();
		return new PasswordAuthentication("user", pwd);
	}
	PasswordAuthentication inline() {
		return new PasswordAuthentication("user", "pw".toCharArray());
	}
	PasswordAuthentication parameter(char[] pw) {
		return new PasswordAuthentication("user", pw);
	}
	PasswordAuthentication empty() {
		return new PasswordAuthentication("user", "".toCharArray());
	}
}`
	reports := analyze(t, code, defaults(), rule)
	require.Len(t, reports, 2)
	assert.Equal(t, 6, reports[0].Location.Line)
	var secondaryLines []int
	for _, s := range reports[0].Secondary {
		secondaryLines = append(secondaryLines, s.Line)
	}
	assert.Contains(t, secondaryLines, 4, "the literal's origin")
	assert.Equal(t, 9, reports[1].Location.Line)
	assert.Empty(t, reports[1].Secondary, "origin inside the trigger is not repeated")

	noUnwrap := analyze(t, code, Options{MaxUnwrap: 0}, rule)
	require.Len(t, noUnwrap, 0, "without unwrapping no constant is reached")
}

func TestAnalyze_IndependentRules(t *testing.T) {
	code := `import javax.servlet.http.Cookie;
class A {
	void m() {
		Cookie c = new Cookie("a", "b");
		c.setSecure(true);
	}
}`
	reports := analyze(t, code, defaults(), cookieRule("setSecure"), cookieRule("setHttpOnly"))
	require.Len(t, reports, 1)
	assert.Equal(t, "cookie-setHttpOnly", reports[0].RuleID)
}

// Scenario: a construction chosen by a conditional or a switch arm is
// tracked into the variable that receives it.
func TestAnalyze_ConditionalConstruction(t *testing.T) {
	const header = "import javax.servlet.http.Cookie;\nimport javax.servlet.http.HttpServletResponse;\n"
	secured := map[string]string{
		"ternary": `class A { void m(boolean b, Cookie other) {
	Cookie c = b ? new Cookie("a", "b") : other;
	c.setSecure(true);
} }`,
		"switch arrow": `class A { void m(int k, Cookie other) {
	Cookie c = switch (k) { case 1 -> new Cookie("a", "b"); default -> other; };
	c.setSecure(true);
} }`,
		"switch yield": `class A { void m(int k, Cookie other) {
	Cookie c = switch (k) { case 1: yield new Cookie("a", "b"); default: yield other; };
	c.setSecure(true);
} }`,
		"assigned": `class A { void m(boolean b, Cookie other) {
	Cookie c;
	c = (b ? other : new Cookie("a", "b"));
	c.setSecure(true);
} }`,
		"fluent": `class A { void m(boolean b, Cookie other) {
	(b ? new Cookie("a", "b") : other).setSecure(true);
} }`,
		"passed on": `class A { void m(boolean b, Cookie other) {
	process(b ? new Cookie("a", "b") : other);
} }`,
		"stored in an array": `class A { void m(boolean b, Cookie other) {
	Cookie[] all = { b ? new Cookie("a", "b") : other };
} }`,
	}
	for name, code := range secured {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, analyze(t, header+code, defaults(), cookieRule("setSecure")))
		})
	}

	unsecured := map[string]string{
		"ternary": `class A { void m(boolean b, Cookie other) {
	Cookie c = b ? new Cookie("a", "b") : other;
	c.setHttpOnly(true);
} }`,
		"switch arrow": `class A { void m(int k, Cookie other, HttpServletResponse response) {
	Cookie c = switch (k) { case 1 -> new Cookie("a", "b"); default -> other; };
	response.addCookie(c);
} }`,
		"added directly": `class A { void m(boolean b, Cookie other, HttpServletResponse response) {
	response.addCookie(b ? new Cookie("a", "b") : other);
} }`,
	}
	for name, code := range unsecured {
		t.Run("unsecured "+name, func(t *testing.T) {
			reports := analyze(t, header+code, defaults(), cookieRule("setSecure"))
			require.Len(t, reports, 1)
			assert.Equal(t, 4, reports[0].Location.Line)
		})
	}
}

// Scenario: reports sharing a start position keep the walker's pre-order.
func TestAnalyze_TraversalOrder(t *testing.T) {
	outer := &Rule{
		ID:       "outer-clone",
		Message:  "Configure the clone.",
		Triggers: []Trigger{{Method: Named("clone"), Object: Result()}},
		Securing: When(CallOn{Method: Named("configure")}),
	}
	code := `import javax.servlet.http.Cookie;
class A {
	void m() {
		Object copy = new Cookie("a", "b").clone();
	}
}`
	var visits []string
	unit := parse(t, code)
	Walk(unit.Root, true, func(call *sitter.Node) { visits = append(visits, call.Type()) })
	require.Equal(t, []string{"method_invocation", "object_creation_expression"}, visits)

	reports := analyze(t, code, defaults(), cookieRule("setSecure"), outer)
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.RuleID)
	}
	assert.Equal(t, []string{"outer-clone", "cookie-setSecure"}, ids)
}

func TestAnalyze_SyntaxErrorsAreTolerated(t *testing.T) {
	code := `import javax.crypto.spec.IvParameterSpec;
class A {
	void m() {
		byte[] iv = new byte[16];
		new IvParameterSpec(iv);
		int broken = ;
	}
`
	a := NewAnalyzer(zaptest.NewLogger(t), []*Rule{ivRule()}, defaults())
	unit := parse(t, code)
	assert.True(t, unit.HasErrors)
	assert.NotPanics(t, func() { a.Analyze(unit) })
	assert.Nil(t, a.Analyze(nil))
}

func FuzzAnalyze(f *testing.F) {
	f.Add(ivSource)
	f.Add(transformerPartial)
	f.Add(`class A { void m() { Cookie c = new Cookie(); c = c; c.setSecure(c); } }`)
	f.Add(`class A { void m() { new IvParameterSpec((byte[]) (Object) x.getBytes().getBytes()); } }`)
	rules := []*Rule{ivRule(), transformerRule(), cookieRule("setSecure")}
	f.Fuzz(func(t *testing.T, code string) {
		a := NewAnalyzer(zaptest.NewLogger(t), rules, defaults())
		first := a.Analyze(parse(t, code))
		second := a.Analyze(parse(t, code))
		if !cmp.Equal(first, second) {
			t.Fatalf("non-deterministic reports for %q", code)
		}
	})
}
