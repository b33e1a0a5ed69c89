package scan_test

import (
	"errors"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/model/inventory"
	scanModel "github.com/HectorPOsuna/escaner-red/internal/model/scan"
	"github.com/HectorPOsuna/escaner-red/internal/service/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_EmptyDeviceList(t *testing.T) {
	n := scan.NewNormalizer(0)
	for _, payload := range []string{``, `{}`, `{"Devices":[]}`, `{"Devices":null}`} {
		_, err := n.Normalize([]byte(payload))
		require.Error(t, err, payload)
		assert.True(t, errors.Is(err, scan.ErrEmptyDeviceList), payload)
		assert.True(t, scan.IsValidationError(err), payload)
	}
}

func TestNormalizer_InvalidJSON(t *testing.T) {
	_, err := scan.NewNormalizer(0).Normalize([]byte(`{"Devices":[`))
	require.Error(t, err)
	var verr *scan.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "invalid JSON payload", verr.Message)
}

func TestNormalizer_CollectsEveryProblem(t *testing.T) {
	payload := `{"Devices":[
		{"IP":"10.0.0.1"},
		{"IP":"999.1.1.1"},
		{"Hostname":"no-ip"},
		{"IP":"10.0.0.4","MAC":"not-a-mac"},
		"garbage"
	]}`

	batch, err := scan.NewNormalizer(0).Normalize([]byte(payload))
	require.Error(t, err)

	var verr *scan.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 4)
	assert.Equal(t, 3, verr.Rejected)
	assert.Contains(t, verr.Problems[0], "device #1")
	assert.Contains(t, verr.Problems[1], "device #2")
	assert.Contains(t, verr.Problems[2], "MAC 'not-a-mac'")
	assert.Contains(t, verr.Problems[3], "device #4")

	// 尽力解析: MAC 错误的主机保留但 MAC 被丢弃
	require.NotNil(t, batch)
	require.Len(t, batch.Hosts, 2)
	assert.Equal(t, "10.0.0.4", batch.Hosts[1].IP)
	assert.Nil(t, batch.Hosts[1].MAC)
}

func TestNormalizer_Fields(t *testing.T) {
	payload := `{"Devices":[{
		"ip":" 192.168.1.100 ",
		"mac":"aa-bb-cc-dd-ee-ff",
		"hostname":"PC-NAME",
		"OpenPorts":"80, 443,abc,,70000,443",
		"OS":"Windows 10",
		"TTL":"128",
		"OSHints":["smb","rdp"],
		"Manufacturer":"Acme"
	}]}`

	batch, err := scan.NewNormalizer(0).Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, batch.Hosts, 1)

	h := batch.Hosts[0]
	assert.Equal(t, "192.168.1.100", h.IP)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", h.MACValue())
	assert.Equal(t, "PC-NAME", h.Hostname)
	assert.Equal(t, []scanModel.OpenPort{{Port: 80, Protocol: "Unknown"}, {Port: 443, Protocol: "Unknown"}}, h.OpenPorts)
	assert.Equal(t, "Windows 10", h.OSRaw)
	require.NotNil(t, h.TTL)
	assert.Equal(t, 128, *h.TTL)
	assert.Equal(t, "smb|rdp", h.OSHints)
	assert.Equal(t, "Acme", h.Manufacturer)
	assert.Equal(t, "192.168.1.0/24", batch.Subnet)
	assert.False(t, batch.ScannedAt.IsZero())
}

func TestNormalizer_OpenPortShapes(t *testing.T) {
	tests := []struct {
		name  string
		ports string
		want  []scanModel.OpenPort
	}{
		{"absent", `null`, []scanModel.OpenPort{}},
		{"empty string", `""`, []scanModel.OpenPort{}},
		{"single number", `22`, []scanModel.OpenPort{{Port: 22, Protocol: "Unknown"}}},
		{"number list", `[22, "3306", 0]`, []scanModel.OpenPort{{Port: 22, Protocol: "Unknown"}, {Port: 3306, Protocol: "Unknown"}}},
		{"object list", `[{"port":22,"protocol":"SSH"},{"Port":"80","service":"http"},{"protocol":"x"}]`,
			[]scanModel.OpenPort{{Port: 22, Protocol: "SSH"}, {Port: 80, Protocol: "http"}}},
		{"duplicates keep first", `[{"port":53,"protocol":"dns"},{"port":53,"protocol":"other"}]`,
			[]scanModel.OpenPort{{Port: 53, Protocol: "dns"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := `{"Devices":[{"IP":"10.0.0.1","OpenPorts":` + tt.ports + `}]}`
			batch, err := scan.NewNormalizer(0).Normalize([]byte(payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, batch.Hosts[0].OpenPorts)
		})
	}
}

func TestNormalizer_Defaults(t *testing.T) {
	batch, err := scan.NewNormalizer(0).Normalize([]byte(`{"Devices":[{"IP":"fe80::1"},{"IP":"10.1.2.3","MAC":"00:00:00:00:00:00"}]}`))
	require.NoError(t, err)
	require.Len(t, batch.Hosts, 2)

	assert.Equal(t, inventory.UnknownHostname, batch.Hosts[0].Hostname)
	assert.Empty(t, batch.Hosts[0].OpenPorts)
	assert.Nil(t, batch.Hosts[0].TTL)
	// 占位 MAC 视为缺失
	assert.Nil(t, batch.Hosts[1].MAC)
	// 网段取第一条 IPv4
	assert.Equal(t, "10.1.2.0/24", batch.Subnet)
}

func TestNormalizer_CronFileShape(t *testing.T) {
	payload := `{"hosts":[{"ip":"10.0.0.8","mac":"00:11:22:33:44:55","hostname":"nas","open_ports":[{"port":445,"protocol":"SMB"}],"os":"Linux"}]}`

	batch, err := scan.NewNormalizer(0).Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, batch.Hosts, 1)
	h := batch.Hosts[0]
	assert.Equal(t, "nas", h.Hostname)
	assert.Equal(t, "00:11:22:33:44:55", h.MACValue())
	assert.Equal(t, []scanModel.OpenPort{{Port: 445, Protocol: "SMB"}}, h.OpenPorts)
	assert.Equal(t, "Linux", h.OSRaw)
}

func TestNormalizer_MaxDevices(t *testing.T) {
	_, err := scan.NewNormalizer(1).Normalize([]byte(`{"Devices":[{"IP":"10.0.0.1"},{"IP":"10.0.0.2"}]}`))
	require.Error(t, err)
	var verr *scan.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Rejected)
}

func TestPassthroughClassifier(t *testing.T) {
	c := scan.PassthroughClassifier{}
	assert.Equal(t, inventory.UnknownOperatingSystem, c.Classify(&scanModel.Host{}))
	assert.Equal(t, "Ubuntu", c.Classify(&scanModel.Host{OSRaw: " Ubuntu "}))
}
