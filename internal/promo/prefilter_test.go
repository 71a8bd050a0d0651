package promo

import (
	"os"
	"path/filepath"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCodeList(t *testing.T, dir, name string, codes []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	gz := pgzip.NewWriter(f)
	for _, code := range codes {
		_, err := gz.Write([]byte(code + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gz.Close())
	return path
}

func TestPrefilter_NilAllowsEverything(t *testing.T) {
	var p *Prefilter

	assert.True(t, p.MayContain("ANYTHING"))
	assert.True(t, p.MayContain(""))
}

func TestBuildFromCodeLists(t *testing.T) {
	dir := t.TempDir()
	p1 := writeCodeList(t, dir, "codes1.gz", []string{"PIZZA50", "FREESHIP", "ab", "WAYTOOLONGFORACODE"})
	p2 := writeCodeList(t, dir, "codes2.gz", []string{"WELCOME10"})

	p, err := BuildFromCodeLists([]string{p1, p2}, 1000, 0.001)
	require.NoError(t, err)

	assert.True(t, p.MayContain("PIZZA50"))
	assert.True(t, p.MayContain("FREESHIP"))
	assert.True(t, p.MayContain("WELCOME10"))

	// Matching is case-insensitive with whitespace trimmed.
	assert.True(t, p.MayContain("  pizza50 "))

	// Codes outside the length bounds were never added and are always
	// rejected without touching the filter.
	assert.False(t, p.MayContain("ab"))
	assert.False(t, p.MayContain("WAYTOOLONGFORACODE"))
}

func TestBuildFromCodeLists_MissingFile(t *testing.T) {
	_, err := BuildFromCodeLists([]string{"/nonexistent/codes.gz"}, 1000, 0.001)
	assert.Error(t, err)
}

func TestPrefilter_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeCodeList(t, dir, "codes.gz", []string{"PIZZA50", "FREESHIP"})

	p, err := BuildFromCodeLists([]string{src}, 1000, 0.001)
	require.NoError(t, err)

	snapshot := filepath.Join(dir, "promo.bloom")
	require.NoError(t, p.Save(snapshot))

	loaded, err := Load(snapshot)
	require.NoError(t, err)
	assert.True(t, loaded.MayContain("PIZZA50"))
	assert.True(t, loaded.MayContain("FREESHIP"))
}

func TestLoad_MissingSnapshot(t *testing.T) {
	_, err := Load("/nonexistent/promo.bloom")
	assert.Error(t, err)
}
