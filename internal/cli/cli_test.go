package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/placements"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["migrate"])
	assert.True(t, names["reconcile"])
	assert.Equal(t, "test", root.Version)
	assert.Equal(t, "dev", NewRootCmd("").Version)
	assert.NotNil(t, root.PersistentFlags().Lookup("database-url"))
}

func TestReconcileFlags(t *testing.T) {
	root := NewRootCmd("")
	cmd, _, err := root.Find([]string{"reconcile"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("fix"))
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestReconcile_RejectsArgs(t *testing.T) {
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"reconcile", "extra"})
	assert.Error(t, root.Execute())
}

func TestWriteFindings(t *testing.T) {
	var buf bytes.Buffer
	writeFindings(&buf, nil)
	assert.Equal(t, "No inconsistencies found\n", buf.String())

	id := uuid.New()
	buf.Reset()
	writeFindings(&buf, []placements.Finding{{Kind: placements.FindingMultipleActive, Subject: id, Detail: "2 active foster placements"}})
	assert.Contains(t, buf.String(), "multiple_active_fosters")
	assert.Contains(t, buf.String(), id.String())
	assert.Contains(t, buf.String(), "2 active foster placements")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, nil))
	var got []placements.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "[]")
}

func TestReconcile_AgainstDatabase(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--database-url", dsn, "migrate"})
	require.NoError(t, root.Execute())

	buf.Reset()
	root.SetArgs([]string{"--database-url", dsn, "reconcile", "--fix", "--json"})
	_ = root.Execute()
	var findings []placements.Finding
	require.NoError(t, json.Unmarshal(lastJSON(buf.Bytes()), &findings))
	for _, f := range findings {
		assert.NotEqual(t, placements.FindingCountOutOfRange, f.Kind)
	}
}

// lastJSON drops any text lines printed before the JSON document.
func lastJSON(b []byte) []byte {
	if i := bytes.IndexByte(b, '['); i >= 0 {
		return b[i:]
	}
	return b
}
