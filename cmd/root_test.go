package cmd_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abiy-Samson/Blazegraph/cmd"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cmd.NewRootCommand(strings.NewReader(""), &out, &out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execRoot(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "rto-cached")
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "bench")
}

func TestServeCommand_RegisteredUnderRoot(t *testing.T) {
	out, err := execRoot(t, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "/cache/stats")
}

func TestBenchCommand_RegisteredUnderRoot(t *testing.T) {
	out, err := execRoot(t, "bench", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--keys")
}
