// Filename: checks/tokens.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

const (
	jjwtJwts        = "io.jsonwebtoken.Jwts"
	jjwtBuilder     = "io.jsonwebtoken.JwtBuilder"
	auth0JWT        = "com.auth0.jwt.JWT"
	auth0JWTBuilder = "com.auth0.jwt.JWTCreator.Builder"
)

func tokenRules() []*h.Rule {
	return []*h.Rule{
		{
			ID:       "jwt-jjwt-signed",
			Name:     "jjwt tokens are signed",
			Message:  "Sign the JSON Web Token with signWith before compacting it.",
			Severity: h.SeverityCritical,
			CWE:      []int{347},
			Triggers: []h.Trigger{
				{Method: h.Method([]string{jjwtJwts}, "builder"), Object: h.Result()},
			},
			Securing: h.When(h.CallOn{Method: h.Named("signWith")}),
		},
		{
			ID:       "jwt-auth0-signed",
			Name:     "auth0 tokens are signed",
			Message:  "Sign the JSON Web Token with sign(Algorithm).",
			Severity: h.SeverityCritical,
			CWE:      []int{347},
			Triggers: []h.Trigger{
				{Method: h.Method([]string{auth0JWT}, "create"), Object: h.Result()},
			},
			Securing: h.When(h.CallOn{Method: h.Named("sign")}),
		},
	}
}
