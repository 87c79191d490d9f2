// Filename: checks/hints.go
package checks

import (
	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// libraryHints describes the third-party types the rules match on, so
// receivers declared as subclasses or reached through factories still match.
func libraryHints() *java.TypeHints {
	return &java.TypeHints{
		Supertypes: map[string][]string{
			"org.apache.commons.mail.SimpleEmail":                             {commonsEmail},
			"org.apache.commons.mail.MultiPartEmail":                          {commonsEmail},
			"org.apache.commons.mail.HtmlEmail":                               {"org.apache.commons.mail.MultiPartEmail"},
			"org.apache.commons.mail.ImageHtmlEmail":                          {"org.apache.commons.mail.HtmlEmail"},
			"org.apache.commons.fileupload.servlet.ServletFileUpload":         {"org.apache.commons.fileupload.FileUpload"},
			"org.apache.commons.fileupload.portlet.PortletFileUpload":         {"org.apache.commons.fileupload.FileUpload"},
			"org.apache.commons.fileupload.FileUpload":                        {"org.apache.commons.fileupload.FileUploadBase"},
			"org.apache.commons.fileupload2.jakarta.JakartaServletFileUpload": {"org.apache.commons.fileupload2.core.AbstractFileUpload"},
			"org.apache.commons.fileupload2.javax.JavaxServletFileUpload":     {"org.apache.commons.fileupload2.core.AbstractFileUpload"},
			"org.springframework.web.multipart.commons.CommonsMultipartResolver": {
				"org.springframework.web.multipart.commons.CommonsFileUploadSupport",
			},
			"org.apache.http.auth.UsernamePasswordCredentials": {"org.apache.http.auth.Credentials"},
			"com.zaxxer.hikari.HikariDataSource":               {"com.zaxxer.hikari.HikariConfig"},
		},
		Returns: map[string]string{
			jjwtJwts + ".builder":               jjwtBuilder,
			auth0JWT + ".create":                auth0JWTBuilder,
			rdsRequestsV2[0] + ".builder":       rdsRequestsV2[0] + ".Builder",
			rdsRequestsV2[1] + ".builder":       rdsRequestsV2[1] + ".Builder",
			rdsRequestsV2[0] + ".Builder.build": rdsRequestsV2[0],
			rdsRequestsV2[1] + ".Builder.build": rdsRequestsV2[1],
			jjwtBuilder + ".compact":            "java.lang.String",
			auth0JWTBuilder + ".sign":           "java.lang.String",
		},
		Fluent: map[string]bool{
			jjwtBuilder:                     true,
			auth0JWTBuilder:                 true,
			rdsRequestsV1[0]:                true,
			rdsRequestsV1[1]:                true,
			rdsRequestsV2[0] + ".Builder":   true,
			rdsRequestsV2[1] + ".Builder":   true,
			"org.apache.commons.mail.Email": true,
		},
	}
}
