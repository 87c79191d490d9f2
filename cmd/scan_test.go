// Filename: cmd/scan_test.go
package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tripwire/internal/reporting"
	"github.com/xkilldash9x/tripwire/internal/reporting/sarif"
)

func decodeFindings(t *testing.T, out string) reporting.JSONDocument {
	t.Helper()
	var doc reporting.JSONDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	return doc
}

func ruleIDs(doc reporting.JSONDocument) []string {
	var ids []string
	for _, f := range doc.Findings {
		ids = append(ids, f.RuleID)
	}
	return ids
}

func TestScanCmd_JSON(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"src/Login.java":    loginSource,
		"src/Hardened.java": hardenedSource,
		"target/Gen.java":   loginSource,
	})

	stdout, _, code := execute(t, "scan", "--format", "json", root)
	require.Equal(t, ExitOK, code)

	doc := decodeFindings(t, stdout)
	assert.Equal(t, "tripwire", doc.Tool)
	assert.NotEmpty(t, doc.RunID)
	assert.ElementsMatch(t, []string{"cookie-secure", "cookie-httponly"}, ruleIDs(doc),
		"the hardened cookie and the excluded target/ dir report nothing")
	for _, f := range doc.Findings {
		assert.Equal(t, filepath.Join(root, "src", "Login.java"), f.Location.File)
		assert.Equal(t, 6, f.Location.Line)
	}
}

func TestScanCmd_FailOnFindings(t *testing.T) {
	root := writeFiles(t, map[string]string{"Login.java": loginSource})
	stdout, stderr, code := execute(t, "scan", "--fail-on-findings", root)
	assert.Equal(t, ExitFindings, code)
	assert.Contains(t, stderr, "findings reported: 2")
	assert.Contains(t, stdout, "[minor] cookie-secure")
	assert.Contains(t, stdout, "2 findings in 1 file.")

	clean := writeFiles(t, map[string]string{"Hardened.java": hardenedSource})
	stdout, _, code = execute(t, "scan", "--fail-on-findings", clean)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "No findings.")
}

func TestScanCmd_RuleSelection(t *testing.T) {
	root := writeFiles(t, map[string]string{"Login.java": loginSource})

	stdout, _, code := execute(t, "scan", "-f", "json", "--enable", "cookie-secure", root)
	require.Equal(t, ExitOK, code)
	assert.Equal(t, []string{"cookie-secure"}, ruleIDs(decodeFindings(t, stdout)))

	stdout, _, code = execute(t, "scan", "-f", "json", "--disable", "cookie-secure,cookie-httponly", root)
	require.Equal(t, ExitOK, code)
	assert.Empty(t, decodeFindings(t, stdout).Findings)

	_, stderr, code := execute(t, "scan", "--enable", "no-such-rule", root)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "unknown rule id(s): no-such-rule")
}

func TestScanCmd_ConfigPrecedence(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"Login.java":    loginSource,
		"tripwire.yaml": "report:\n  format: sarif\nrules:\n  disable: [cookie-httponly]\n",
	})
	cfgPath := filepath.Join(root, "tripwire.yaml")

	t.Run("config file", func(t *testing.T) {
		stdout, _, code := execute(t, "--config", cfgPath, "scan", root)
		require.Equal(t, ExitOK, code)
		var log sarif.Log
		require.NoError(t, json.Unmarshal([]byte(stdout), &log))
		require.Len(t, log.Runs, 1)
		require.Len(t, log.Runs[0].Results, 1)
		assert.Equal(t, "cookie-secure", log.Runs[0].Results[0].RuleID)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("TRIPWIRE_REPORT_FORMAT", "json")
		stdout, _, code := execute(t, "--config", cfgPath, "scan", root)
		require.Equal(t, ExitOK, code)
		assert.Equal(t, []string{"cookie-secure"}, ruleIDs(decodeFindings(t, stdout)))
	})

	t.Run("flags override the environment", func(t *testing.T) {
		t.Setenv("TRIPWIRE_REPORT_FORMAT", "sarif")
		stdout, _, code := execute(t, "--config", cfgPath, "scan", "--format", "json", root)
		require.Equal(t, ExitOK, code)
		decodeFindings(t, stdout)
	})
}

func TestScanCmd_OutputFile(t *testing.T) {
	root := writeFiles(t, map[string]string{"Login.java": loginSource})
	out := filepath.Join(t.TempDir(), "report.sarif")

	stdout, _, code := execute(t, "scan", "-f", "sarif", "-o", out, root)
	require.Equal(t, ExitOK, code)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var log sarif.Log
	require.NoError(t, json.Unmarshal(data, &log))
	assert.Len(t, log.Runs[0].Results, 2)
	assert.NotEmpty(t, log.Runs[0].Tool.Driver.Rules)
}

func TestScanCmd_Errors(t *testing.T) {
	empty := t.TempDir()
	_, stderr, code := execute(t, "scan", empty)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "no source files found")

	_, stderr, code = execute(t, "scan", "--format", "xml", empty)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `report.format "xml"`)

	_, stderr, code = execute(t, "scan", "--concurrency", "0", empty)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "engine.worker_concurrency")
}

func TestScanCmd_CredentialsFile(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"creds.yaml": `methods:
  - owner: com.acme.Vault
    method: unlock
    params: [java.lang.String]
    args: [0]
`,
		"src/App.java": `import com.acme.Vault;

class App {
	void open(Vault vault) {
		vault.unlock("hunter2");
	}
}
`,
	})
	stdout, _, code := execute(t, "scan", "-f", "json", "--enable", "hardcoded-credentials",
		"--credentials-file", filepath.Join(root, "creds.yaml"), filepath.Join(root, "src"))
	require.Equal(t, ExitOK, code)
	doc := decodeFindings(t, stdout)
	require.Len(t, doc.Findings, 1)
	assert.Equal(t, "hardcoded-credentials", doc.Findings[0].RuleID)
	assert.Equal(t, 5, doc.Findings[0].Location.Line)
}
