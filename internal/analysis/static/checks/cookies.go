// Filename: checks/cookies.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

var (
	cookieTypes   = []string{"javax.servlet.http.Cookie", "jakarta.servlet.http.Cookie"}
	responseTypes = []string{"javax.servlet.http.HttpServletResponse", "jakarta.servlet.http.HttpServletResponse"}
)

func cookieRule(id, name, message, setter string, cwe int) *h.Rule {
	return &h.Rule{
		ID:       id,
		Name:     name,
		Message:  message,
		Severity: h.SeverityMinor,
		CWE:      []int{cwe},
		Triggers: []h.Trigger{
			{Method: h.Constructor(cookieTypes...), Object: h.Result()},
		},
		Securing: h.When(h.CallOn{
			Method: h.Named(setter),
			Args:   []h.ArgCheck{h.Equals(0, true)},
		}),
		// Adding the cookie to the response is the expected consumer, not a
		// hand-off to code that may secure it.
		Exempt: []h.MethodMatcher{h.Method(responseTypes, "addCookie")},
	}
}

func cookieRules() []*h.Rule {
	return []*h.Rule{
		cookieRule("cookie-secure", "Cookies carry the Secure flag",
			"Set the Secure flag with setSecure(true) so the cookie is only sent over HTTPS.", "setSecure", 614),
		cookieRule("cookie-httponly", "Cookies carry the HttpOnly flag",
			"Set the HttpOnly flag with setHttpOnly(true) so scripts cannot read the cookie.", "setHttpOnly", 1004),
	}
}
