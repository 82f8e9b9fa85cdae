package cgroup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mountV2     = "35 24 0:30 / /sys/fs/cgroup rw,nosuid,nodev,noexec,relatime shared:9 - cgroup2 cgroup2 rw,nsdelegate\n"
	mountV1Mem  = "40 35 0:34 / /sys/fs/cgroup/memory rw,nosuid shared:15 - cgroup cgroup rw,memory\n"
	mountV1CPU  = "41 35 0:35 / /sys/fs/cgroup/cpu,cpuacct rw,nosuid shared:16 - cgroup cgroup rw,cpu,cpuacct\n"
	mountV1Name = "42 35 0:36 / /sys/fs/cgroup/systemd rw,nosuid shared:17 - cgroup cgroup rw,xattr,name=systemd\n"
	mountFS     = "22 1 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw\n"
)

func parse(t *testing.T, in string) Mounts {
	t.Helper()
	ms, err := ParseMountinfo(strings.NewReader(in))
	require.NoError(t, err)
	return ms
}

func Test_ParseMountinfo_Version(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Version
	}{
		{"v2_only", mountFS + mountV2, V2},
		{"v1_only", mountFS + mountV1Mem + mountV1CPU, V1},
		{"hybrid", mountV2 + mountV1Mem, Hybrid},
		{"none", mountFS, Unsupported},
		{"malformed_lines", "garbage\n - \nshort - cgroup2\n", Unsupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parse(t, tc.in).Version())
		})
	}
}

func Test_ParseMountinfo_Controllers(t *testing.T) {
	ms := parse(t, mountFS+mountV1Mem+mountV1CPU+mountV1Name)
	require.Len(t, ms, 3)
	assert.Equal(t, Mount{Point: "/sys/fs/cgroup/memory", Controllers: []string{"memory"}}, ms[0])
	assert.Equal(t, []string{"cpu", "cpuacct"}, ms[1].Controllers)
	assert.Empty(t, ms[2].Controllers)

	m, ok := ms.Controller("cpu")
	require.True(t, ok)
	assert.Equal(t, "/sys/fs/cgroup/cpu,cpuacct", m.Point)
	assert.False(t, m.Unified)

	_, ok = ms.Controller("pids")
	assert.False(t, ok)
}

func Test_Mounts_ControllerUnified(t *testing.T) {
	ms := parse(t, mountV2+mountV1Name)
	m, ok := ms.Controller("memory")
	require.True(t, ok)
	assert.Equal(t, "/sys/fs/cgroup", m.Point)
	assert.True(t, m.Unified)
}

func Test_Mounts_Detail(t *testing.T) {
	assert.Equal(t, "cgroup2 on /sys/fs/cgroup", parse(t, mountV2).Detail())
	assert.Equal(t, "memory on /sys/fs/cgroup/memory; named on /sys/fs/cgroup/systemd",
		parse(t, mountV1Mem+mountV1Name).Detail())
	assert.Equal(t, "no cgroup mounts found", parse(t, mountFS).Detail())
}

func Test_Version_String(t *testing.T) {
	assert.Equal(t, "cgroup v1", V1.String())
	assert.Equal(t, "cgroup v2", V2.String())
	assert.Equal(t, "cgroup hybrid", Hybrid.String())
	assert.Equal(t, "unsupported", Unsupported.String())
}

func Test_Detect_Host(t *testing.T) {
	ms, err := Detect()
	if err != nil {
		t.Skipf("mountinfo unavailable: %v", err)
	}
	t.Logf("detected %s: %s", ms.Version(), ms.Detail())
}
