// Filename: checks/upload.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

var uploadConfigurers = []string{
	"org.apache.commons.fileupload.FileUploadBase",
	"org.apache.commons.fileupload2.core.AbstractFileUpload",
	"org.springframework.web.multipart.commons.CommonsMultipartResolver",
}

var uploadLimitSetters = []string{"setSizeMax", "setFileSizeMax", "setMaxUploadSize", "setMaxUploadSizePerFile"}

func uploadRules() []*h.Rule {
	return []*h.Rule{
		{
			// Limits are usually configured once, in a different method
			// than the one that disables them.
			ID:       "upload-size-limit",
			Name:     "File uploads are size limited",
			Message:  "Set an explicit maximum size for uploaded files.",
			Severity: h.SeverityMajor,
			CWE:      []int{770},
			Scope:    h.CompilationUnit,
			// Any explicit limit in the unit settles the policy, whoever
			// else sees the upload handler.
			IgnoreEscape: true,
			Triggers: []h.Trigger{
				{
					Method: h.Method(uploadConfigurers, uploadLimitSetters...).WithMinArgs(1),
					Args:   []h.ArgCheck{h.AtMost(0, -1)},
					Object: h.ReceiverOf(),
				},
			},
			Securing: h.When(h.AnyCall{
				Method: h.Named(uploadLimitSetters...),
				Args:   []h.ArgCheck{h.AtLeast(0, 0)},
			}),
		},
	}
}
