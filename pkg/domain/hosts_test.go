package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostTable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    HostTable
		wantErr error
	}{
		{
			name:  "keeps order",
			input: "andes1:192.168.1.11,andes0:192.168.1.10",
			want: HostTable{
				{Hostname: "andes1", IP: "192.168.1.11"},
				{Hostname: "andes0", IP: "192.168.1.10"},
			},
		},
		{
			name:  "tolerates spaces and trailing comma",
			input: " andes0 : 192.168.1.10 ,",
			want:  HostTable{{Hostname: "andes0", IP: "192.168.1.10"}},
		},
		{name: "missing separator", input: "andes0", wantErr: ErrUsage},
		{name: "duplicate hostname", input: "a:10.0.0.1,a:10.0.0.2", wantErr: ErrUsage},
		{name: "bad address", input: "a:10.0.0.300", wantErr: ErrUsage},
		{name: "ipv6 rejected", input: "a:fe80::1", wantErr: ErrUsage},
		{name: "empty", input: "", wantErr: ErrUsage},
		{name: "empty hostname", input: ":10.0.0.1", wantErr: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHostTable(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadHostTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads yaml inventory", func(t *testing.T) {
		path := filepath.Join(dir, "cluster.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`hosts:
  - hostname: andes0
    ip: 192.168.1.10
  - hostname: andes1
    ip: 192.168.1.11
`), 0644))

		hosts, err := HostTableFromArg(path)
		require.NoError(t, err)
		assert.Equal(t, HostTable{
			{Hostname: "andes0", IP: "192.168.1.10"},
			{Hostname: "andes1", IP: "192.168.1.11"},
		}, hosts)
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yml")
		require.NoError(t, os.WriteFile(path, []byte("hosts: [\n"), 0644))

		_, err := HostTableFromArg(path)
		require.ErrorIs(t, err, ErrUsage)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadHostTable(filepath.Join(dir, "absent.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestHostTableResolve(t *testing.T) {
	hosts, err := ParseHostTable("andes0:192.168.1.10,andes1:192.168.1.11")
	require.NoError(t, err)

	t.Run("selects by position", func(t *testing.T) {
		target, err := hosts.Resolve("1", "255.255.255.0", "192.168.1.1", "192.168.1.1")
		require.NoError(t, err)
		assert.Equal(t, Target{
			Hostname: "andes1",
			IP:       "192.168.1.11",
			Netmask:  "255.255.255.0",
			Gateway:  "192.168.1.1",
			DNS:      "192.168.1.1",
		}, target)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := hosts.Resolve("2", "255.255.255.0", "192.168.1.1", "192.168.1.1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := hosts.Resolve("-1", "255.255.255.0", "192.168.1.1", "192.168.1.1")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non numeric index", func(t *testing.T) {
		_, err := hosts.Resolve("one", "255.255.255.0", "192.168.1.1", "192.168.1.1")
		require.ErrorIs(t, err, ErrUsage)
	})

	t.Run("invalid gateway", func(t *testing.T) {
		_, err := hosts.Resolve("0", "255.255.255.0", "gateway", "192.168.1.1")
		require.ErrorIs(t, err, ErrUsage)
		assert.Contains(t, err.Error(), "gateway")
	})
}
