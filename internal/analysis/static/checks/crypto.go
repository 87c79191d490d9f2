// Filename: checks/crypto.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

const (
	ivParameterSpec  = "javax.crypto.spec.IvParameterSpec"
	gcmParameterSpec = "javax.crypto.spec.GCMParameterSpec"
	secureRandom     = "java.security.SecureRandom"
)

// filledBySecureRandom is satisfied once the IV buffer is passed to
// SecureRandom.nextBytes.
var filledBySecureRandom = h.When(h.PassedTo{
	Method: h.Method([]string{secureRandom}, "nextBytes"),
	Index:  0,
})

func cryptoRules() []*h.Rule {
	return []*h.Rule{
		{
			ID:       "crypto-iv-random",
			Name:     "Initialization vectors are generated randomly",
			Message:  "Use a randomly generated IV: fill the buffer with SecureRandom.nextBytes before building the IvParameterSpec.",
			Severity: h.SeverityCritical,
			CWE:      []int{329},
			Triggers: []h.Trigger{
				{Method: h.Constructor(ivParameterSpec).WithMinArgs(1), Object: h.ArgumentAt(0)},
			},
			Securing: filledBySecureRandom,
		},
		{
			ID:       "crypto-gcm-iv-random",
			Name:     "GCM nonces are generated randomly",
			Message:  "Use a randomly generated nonce: fill the buffer with SecureRandom.nextBytes before building the GCMParameterSpec.",
			Severity: h.SeverityCritical,
			CWE:      []int{329},
			Triggers: []h.Trigger{
				{Method: h.Constructor(gcmParameterSpec).WithMinArgs(2), Object: h.ArgumentAt(1)},
			},
			Securing: filledBySecureRandom,
		},
	}
}
