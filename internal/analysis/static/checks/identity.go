// Filename: checks/identity.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

const (
	commonsEmail   = "org.apache.commons.mail.Email"
	javaProperties = "java.util.Properties"

	mailSocketFactoryClass = "mail.smtp.socketFactory.class"
	mailSSLSocketFactory   = "javax.net.ssl.SSLSocketFactory"
	mailCheckServerID      = "mail.smtp.ssl.checkserveridentity"
)

var mailSessions = []string{"javax.mail.Session", "jakarta.mail.Session"}

func identityRules() []*h.Rule {
	return []*h.Rule{
		{
			ID:       "ssl-email-server-identity",
			Name:     "Commons Email verifies the SMTP server identity",
			Message:  "Enable server identity verification with setSSLCheckServerIdentity(true).",
			Severity: h.SeverityCritical,
			CWE:      []int{297},
			Triggers: []h.Trigger{
				{
					Method: h.Method([]string{commonsEmail}, "setSSLOnConnect", "setStartTLSEnabled", "setStartTLSRequired"),
					Args:   []h.ArgCheck{h.Equals(0, true)},
					Object: h.ReceiverOf(),
				},
			},
			Securing: h.When(h.CallOn{
				Method: h.Named("setSSLCheckServerIdentity"),
				Args:   []h.ArgCheck{h.Equals(0, true)},
			}),
		},
		{
			// The properties are often filled in a helper and sent from
			// another method of the same class.
			ID:       "ssl-mail-properties-server-identity",
			Name:     "JavaMail sessions verify the SMTP server identity",
			Message:  `Enable server identity verification by setting "mail.smtp.ssl.checkserveridentity" to true.`,
			Severity: h.SeverityCritical,
			CWE:      []int{297},
			Scope:    h.EnclosingType,
			Triggers: []h.Trigger{
				{
					Method: h.Method([]string{javaProperties}, "put", "setProperty"),
					Args:   []h.ArgCheck{h.Equals(0, mailSocketFactoryClass), h.Equals(1, mailSSLSocketFactory)},
					Object: h.ReceiverOf(),
				},
			},
			Securing: h.When(h.CallOn{
				Method: h.Named("put", "setProperty"),
				Args:   []h.ArgCheck{h.Equals(0, mailCheckServerID), h.EqualsFold(1, true, "true")},
			}),
			Exempt: []h.MethodMatcher{
				h.Method(mailSessions, "getInstance", "getDefaultInstance"),
			},
		},
	}
}
