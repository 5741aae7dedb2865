// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inputs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeList(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadList(t *testing.T) {
	path := writeList(t, "# venues\nACL\n\n  EMNLP  \r\n# NAACL\nCOLING")
	got, err := ReadList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACL", "EMNLP", "COLING"}, got)
}

func TestReadListMissing(t *testing.T) {
	_, err := ReadList(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorContains(t, err, "opening list file")
}

func TestVenuesKeepCase(t *testing.T) {
	path := writeList(t, "ACL\nTransactions of the ACL\nACL\n")
	got, err := Venues(path, []string{" EMNLP ", "ACL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ACL", "Transactions of the ACL", "EMNLP"}, got)
}

func TestKeywordsLowerCased(t *testing.T) {
	path := writeList(t, "Parsing\nMachine Translation\n")
	got, err := Keywords(path, []string{"parsing", "NER", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"parsing", "machine translation", "ner"}, got)
}

func TestEmptyInputs(t *testing.T) {
	got, err := Keywords("", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Venues(writeList(t, "# nothing\n\n"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
