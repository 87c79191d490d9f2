// Filename: hardening/helpers_test.go
package hardening

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

const (
	ivSpec       = "javax.crypto.spec.IvParameterSpec"
	secureRandom = "java.security.SecureRandom"
	transformer  = "javax.xml.transform.TransformerFactory"
	cookieType   = "javax.servlet.http.Cookie"
	servletResp  = "javax.servlet.http.HttpServletResponse"
	dtdProperty  = "http://javax.xml.XMLConstants/property/accessExternalDTD"
	xslProperty  = "http://javax.xml.XMLConstants/property/accessExternalStylesheet"
)

func parse(t testing.TB, code string) *java.Unit {
	t.Helper()
	p := java.NewParser(zaptest.NewLogger(t), nil)
	t.Cleanup(p.Close)
	unit, err := p.Parse(context.Background(), "Test.java", []byte(code))
	require.NoError(t, err)
	t.Cleanup(unit.Close)
	return unit
}

func analyze(t testing.TB, code string, opts Options, rules ...*Rule) []Report {
	t.Helper()
	for _, r := range rules {
		require.NoError(t, r.Validate())
	}
	a := NewAnalyzer(zaptest.NewLogger(t), rules, opts)
	return a.Analyze(parse(t, code))
}

func defaults() Options { return Options{MaxUnwrap: DefaultMaxUnwrap} }

func firstCall(t testing.TB, unit *java.Unit, content string) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	Walk(unit.Root, true, func(call *sitter.Node) {
		if found == nil && (content == "" || java.NodeContent(call, unit.Source) == content) {
			found = call
		}
	})
	require.NotNil(t, found, "no call %q", content)
	return found
}

func ivRule() *Rule {
	return &Rule{
		ID:       "iv-test",
		Message:  "Use a random IV.",
		Severity: SeverityCritical,
		Triggers: []Trigger{{Method: Constructor(ivSpec), Object: ArgumentAt(0)}},
		Securing: When(PassedTo{Method: Method([]string{secureRandom}, "nextBytes"), Index: 0}),
	}
}

func transformerRule() *Rule {
	setTo := func(property string) Requirement {
		return When(CallOn{
			Method: Named("setAttribute"),
			Args:   []ArgCheck{Equals(0, property), Equals(1, "")},
		})
	}
	return &Rule{
		ID:       "xxe-transformer-test",
		Message:  "Disable external entities.",
		Triggers: []Trigger{{Method: Method([]string{transformer}, "newInstance"), Object: Result()}},
		Securing: AllOf(setTo(dtdProperty), setTo(xslProperty)),
	}
}

func cookieRule(setter string) *Rule {
	return &Rule{
		ID:       "cookie-" + setter,
		Message:  "Set the cookie flag.",
		Triggers: []Trigger{{Method: Constructor(cookieType), Object: Result()}},
		Securing: When(CallOn{Method: Named(setter), Args: []ArgCheck{Equals(0, true)}}),
		Exempt:   []MethodMatcher{Method([]string{servletResp}, "addCookie")},
	}
}
