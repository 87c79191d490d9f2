// Filename: checks/cloud.go
package checks

import (
	h "github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
)

var (
	rdsRequestsV1 = []string{
		"com.amazonaws.services.rds.model.CreateDBInstanceRequest",
		"com.amazonaws.services.rds.model.CreateDBClusterRequest",
	}
	rdsRequestsV2 = []string{
		"software.amazon.awssdk.services.rds.model.CreateDbInstanceRequest",
		"software.amazon.awssdk.services.rds.model.CreateDbClusterRequest",
	}
)

// sendRequest covers the client calls that consume a finished request.
var sendRequest = []h.MethodMatcher{h.Named("createDBInstance", "createDBCluster")}

func encrypted(names ...string) h.Requirement {
	return h.When(h.CallOn{Method: h.Named(names...), Args: []h.ArgCheck{h.Equals(0, true)}})
}

func cloudRules() []*h.Rule {
	const message = "Enable storage encryption for the database."
	return []*h.Rule{
		{
			ID:       "aws-rds-encryption",
			Name:     "RDS databases are created with storage encryption (SDK v1)",
			Message:  message,
			Severity: h.SeverityMajor,
			CWE:      []int{311},
			Triggers: []h.Trigger{
				{Method: h.Constructor(rdsRequestsV1...), Object: h.Result()},
			},
			Securing: encrypted("setStorageEncrypted", "withStorageEncrypted"),
			Exempt:   sendRequest,
		},
		{
			ID:       "aws-rds-encryption-v2",
			Name:     "RDS databases are created with storage encryption (SDK v2)",
			Message:  message,
			Severity: h.SeverityMajor,
			CWE:      []int{311},
			Triggers: []h.Trigger{
				{Method: h.Method(rdsRequestsV2, "builder"), Object: h.Result()},
			},
			Securing: encrypted("storageEncrypted"),
			Exempt:   sendRequest,
		},
	}
}
