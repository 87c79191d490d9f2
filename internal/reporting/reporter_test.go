// Filename: internal/reporting/reporter_test.go
package reporting_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/tripwire/internal/reporting"
	"github.com/xkilldash9x/tripwire/internal/scanner"
)

func TestNew_LoggerRequirement(t *testing.T) {
	reporter, err := reporting.New("sarif", "stdout", nil, meta())
	assert.Error(t, err)
	assert.Nil(t, reporter)
	assert.Contains(t, err.Error(), "logger cannot be nil")
}

func TestNew_Stdout(t *testing.T) {
	for _, format := range reporting.Formats {
		for _, path := range []string{"", "stdout"} {
			r, err := reporting.New(format, path, zaptest.NewLogger(t), meta())
			require.NoError(t, err, format)
			assert.NotNil(t, r)
		}
	}
}

func TestNew_File(t *testing.T) {
	for _, format := range reporting.Formats {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report."+format)
			r, err := reporting.New(format, path, zaptest.NewLogger(t), meta())
			require.NoError(t, err)
			require.NoError(t, reporting.WriteRun(r, &scanner.Run{Files: []scanner.FileResult{testResult()}}))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "crypto-iv-random")
		})
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	reporter, err := reporting.New("xml", path, zaptest.NewLogger(t), meta())
	assert.Nil(t, reporter)
	assert.ErrorIs(t, err, reporting.ErrUnknownFormat)
	assert.NoFileExists(t, path, "nothing is created for an unknown format")

	w := newWriter()
	_, err = reporting.NewWithWriter("xml", w, zaptest.NewLogger(t), meta())
	assert.ErrorIs(t, err, reporting.ErrUnknownFormat)
	assert.True(t, w.Closed)
}

func TestNew_FileCreationFailure(t *testing.T) {
	reporter, err := reporting.New("json", t.TempDir(), zaptest.NewLogger(t), meta())
	assert.Nil(t, reporter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestTextReporter(t *testing.T) {
	w := newWriter()
	r := reporting.NewTextReporter(w, zaptest.NewLogger(t))
	require.NoError(t, r.Write(testResult()))
	require.NoError(t, r.Write(scanner.FileResult{Path: "src/Clean.java"}))
	require.NoError(t, r.Close())

	lines := strings.Split(strings.TrimRight(w.Buffer.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"src/Enc.java:7:3: [critical] crypto-iv-random: Use a random IV.",
		"    IvParameterSpec spec = new IvParameterSpec(fixedBytes);",
		"    related: src/Enc.java:6:10",
		"src/Enc.java:12:3: [major] upload-size-limit: Set an explicit maximum size for uploaded files.",
		"",
		"2 findings in 1 file.",
	}, lines)

	empty := newWriter()
	require.NoError(t, reporting.NewTextReporter(empty, zaptest.NewLogger(t)).Close())
	assert.Equal(t, "No findings.\n", empty.Buffer.String())
}

func TestJSONReporter(t *testing.T) {
	w := newWriter()
	r := reporting.NewJSONReporter(w, zaptest.NewLogger(t), meta())
	require.NoError(t, r.Write(testResult()))
	require.NoError(t, r.Close())

	var doc reporting.JSONDocument
	require.NoError(t, json.Unmarshal(w.Buffer.Bytes(), &doc))
	assert.Equal(t, "tripwire", doc.Tool)
	assert.Equal(t, meta().RunID, doc.RunID)
	require.Len(t, doc.Findings, 2)
	assert.Equal(t, []int{329}, doc.Findings[0].CWE)
	assert.Equal(t, 7, doc.Findings[0].Location.Line)
	require.Len(t, doc.Findings[0].Secondary, 1)
	assert.Nil(t, doc.Findings[1].CWE, "rules outside the metadata carry no CWE")

	empty := newWriter()
	require.NoError(t, reporting.NewJSONReporter(empty, zaptest.NewLogger(t), meta()).Close())
	assert.Contains(t, empty.Buffer.String(), `"findings": []`)
}
