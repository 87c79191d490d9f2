// Filename: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/checks"
	"github.com/xkilldash9x/tripwire/internal/observability"
)

const loginSource = `import javax.servlet.http.Cookie;
import javax.servlet.http.HttpServletResponse;

class Login {
	void ok(HttpServletResponse response, String id) {
		Cookie c = new Cookie("session", id);
		response.addCookie(c);
	}
}
`

const hardenedSource = `import javax.servlet.http.Cookie;
import javax.servlet.http.HttpServletResponse;

class Hardened {
	void ok(HttpServletResponse response, String id) {
		Cookie c = new Cookie("session", id);
		c.setSecure(true);
		c.setHttpOnly(true);
		response.addCookie(c);
	}
}
`

// resetForTest clears the process-wide logger and rule catalog so each
// command run starts from its own configuration.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	checks.ResetForTest()
	t.Cleanup(func() {
		observability.ResetForTest()
		checks.ResetForTest()
	})
}

// execute runs the CLI in process and captures both streams.
func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	resetForTest(t)
	var out, errOut bytes.Buffer
	code = Execute(context.Background(), append([]string{"--log-level", "error"}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

// writeFiles creates files relative to a fresh temp dir and returns the dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}
