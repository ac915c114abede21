package target_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-linux/lisa/internal/target"
)

func TestLoad_LinuxTarget(t *testing.T) {
	yaml := `
target-conf:
    kind: linux
    host: 192.0.2.10
    port: 2222
    username: root
    password: rootpw
    ftrace:
        events:
            - sched_switch
            - sched_wakeup
        buffer-size: 10240
    platform-info: platforms/hikey960.yml
`
	conf, err := target.LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	tc := conf.Target
	assert.Equal(t, target.KindLinux, tc.Kind)
	assert.Equal(t, "192.0.2.10", tc.Host)
	assert.Equal(t, 2222, tc.Port)
	assert.Equal(t, "root", tc.Username)
	require.NotNil(t, tc.Ftrace)
	assert.Equal(t, []string{"sched_switch", "sched_wakeup"}, tc.Ftrace.Events)
	assert.Equal(t, 10240, tc.Ftrace.BufferSize)
	assert.Equal(t, "platforms/hikey960.yml", tc.PlatformInfo)
}

func TestLoad_AndroidTarget(t *testing.T) {
	yaml := `
target-conf:
    kind: android
    device: 0123456789ABCDEF
`
	conf, err := target.LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, target.KindAndroid, conf.Target.Kind)
	assert.Equal(t, "0123456789ABCDEF", conf.Target.Device)
}

func TestLoad_HostTarget(t *testing.T) {
	yaml := "target-conf:\n    kind: host\n"
	conf, err := target.LoadFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, target.KindHost, conf.Target.Kind)
}

func TestLoad_UnknownKindRejected(t *testing.T) {
	yaml := "target-conf:\n    kind: mainframe\n"
	_, err := target.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}

func TestLoad_LinuxWithoutCredentialsRejected(t *testing.T) {
	yaml := "target-conf:\n    kind: linux\n"
	_, err := target.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	yaml := `
target-conf:
    kind: host
    hsot: typo.example.com
`
	_, err := target.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
}

func TestLoad_PortOutOfRange(t *testing.T) {
	yaml := `
target-conf:
    kind: linux
    host: a
    username: u
    port: 700000
`
	_, err := target.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestWriteThenLoadRoundTrip(t *testing.T) {
	conf := &target.Conf{Target: target.TargetConf{
		Kind:     target.KindLinux,
		Host:     "192.0.2.1",
		Username: "root",
		Keyfile:  "~/.ssh/id_rsa",
		Ftrace:   &target.FtraceConf{Events: []string{"sched_switch"}, BufferSize: 8192},
	}}

	path := filepath.Join(t.TempDir(), "target_conf.yml")
	require.NoError(t, conf.Write(path))

	loaded, err := target.Load(path)
	require.NoError(t, err)
	assert.Equal(t, conf.Target, loaded.Target)
}
