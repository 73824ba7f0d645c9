package patcher

import (
	"strings"
	"testing"

	"github.com/Rudd3r/sdprep/pkg/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceHostsBlock(t *testing.T) {
	block := []string{hostsHeader, "192.168.1.10 andes0", "192.168.1.11 andes1"}

	t.Run("appends when no header", func(t *testing.T) {
		in := []string{"127.0.0.1 localhost", "::1 localhost"}
		want := append(append([]string{}, in...), "")
		want = append(want, block...)
		assert.Equal(t, want, ReplaceHostsBlock(in, testHosts))
	})

	t.Run("replaces in place", func(t *testing.T) {
		in := []string{
			"127.0.0.1 localhost",
			"# autogenerated table",
			"10.0.0.1 old0",
			"10.0.0.2 old1",
			"10.0.0.3 old2",
			"",
			"ff02::1 ip6-allnodes",
		}
		want := []string{"127.0.0.1 localhost"}
		want = append(want, block...)
		want = append(want, "", "ff02::1 ip6-allnodes")
		assert.Equal(t, want, ReplaceHostsBlock(in, testHosts))
	})

	t.Run("block runs to end of file", func(t *testing.T) {
		in := []string{"127.0.0.1 localhost", "", "  # autogenerated table  ", "10.0.0.1 old0"}
		want := []string{"127.0.0.1 localhost", ""}
		want = append(want, block...)
		assert.Equal(t, want, ReplaceHostsBlock(in, testHosts))
	})

	t.Run("later headers collapse into the first", func(t *testing.T) {
		in := []string{
			"# autogenerated table",
			"10.0.0.1 old0",
			"",
			"127.0.0.1 localhost",
			"# autogenerated table",
			"10.0.0.9 stale",
		}
		got := ReplaceHostsBlock(in, testHosts)
		want := append(append([]string{}, block...), "", "127.0.0.1 localhost")
		assert.Equal(t, want, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		once := ReplaceHostsBlock([]string{"127.0.0.1 localhost"}, testHosts)
		assert.Equal(t, once, ReplaceHostsBlock(once, testHosts))
	})
}

func TestPatchHosts(t *testing.T) {
	fsys := mocks.NewMockFS()
	fsys.AddFile(hostsPath, origHosts, 0644)
	p := New(fsys, nil, nil, Options{})

	require.NoError(t, p.PatchHosts(testHosts))
	require.NoError(t, p.PatchHosts(testHosts))

	want := origHosts + "\n# autogenerated table\n192.168.1.10 andes0\n192.168.1.11 andes1\n"
	assert.Equal(t, want, content(t, fsys, hostsPath))
	assert.Equal(t, origHosts, content(t, fsys, hostsPath+BackupSuffix))
	assert.Equal(t, 1, strings.Count(content(t, fsys, hostsPath), hostsHeader))
}
