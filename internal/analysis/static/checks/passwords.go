// Filename: checks/passwords.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

const (
	authManagerBuilder = "org.springframework.security.config.annotation.authentication.builders.AuthenticationManagerBuilder"
	daoAuthProvider    = "org.springframework.security.authentication.dao.DaoAuthenticationProvider"
)

func passwordRules() []*h.Rule {
	return []*h.Rule{
		{
			ID:       "spring-password-encoder",
			Name:     "Spring Security stores passwords with an encoder",
			Message:  "Configure a PasswordEncoder so stored passwords are hashed.",
			Severity: h.SeverityCritical,
			CWE:      []int{256},
			Triggers: []h.Trigger{
				{Method: h.Method([]string{authManagerBuilder}, "jdbcAuthentication", "userDetailsService"), Object: h.Result()},
				{Method: h.Constructor(daoAuthProvider), Object: h.Result()},
			},
			Securing: h.AnyOf(
				h.When(h.CallOn{Method: h.Named("passwordEncoder")}),
				h.When(h.CallOn{Method: h.Named("setPasswordEncoder")}),
			),
		},
	}
}
