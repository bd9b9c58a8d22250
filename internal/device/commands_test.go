package device

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeFullResponse(t *testing.T) {
	body := `{
		"productId": "XR100",
		"OS": "android",
		"sn": "SN-0042",
		"version": {"app": "1.2.3", "firmware": "4.5", "hardware": "rev2"},
		"attribute": ["lcd", 42, "2:1", null]
	}`
	ft := &fakeTransport{replies: [][]byte{respFrame(body)}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	info := s.Handshake()
	require.NotNil(t, info)
	assert.Equal(t, "XR100", info.ProductID)
	assert.Equal(t, "android", info.OS)
	assert.Equal(t, "SN-0042", info.Serial)
	assert.Equal(t, "1.2.3", info.AppVersion)
	assert.Equal(t, "4.5", info.Firmware)
	assert.Equal(t, "rev2", info.Hardware)
	// 非字符串元素被静默丢弃，顺序保留
	assert.Equal(t, []string{"lcd", "2:1"}, info.Attributes)
}

func TestHandshakeEmptyObject(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("{}")}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	info := s.Handshake()
	require.NotNil(t, info)
	assert.Equal(t, "unknown", info.ProductID)
	assert.Equal(t, "unknown", info.OS)
	assert.Equal(t, "unknown", info.Serial)
	assert.Equal(t, "unknown", info.AppVersion)
	assert.Equal(t, "unknown", info.Firmware)
	assert.Equal(t, "unknown", info.Hardware)
	assert.Empty(t, info.Attributes)
}

func TestHandshakeNonJSONBody(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("garbled!!")}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	assert.Nil(t, s.Handshake())
}

func TestHandshakeNoResponse(t *testing.T) {
	ft := &fakeTransport{}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	assert.Nil(t, s.Handshake())
}

// payloadOf 取第i条写出命令的JSON内容
func payloadOf(t *testing.T, ft *fakeTransport, i int) map[string]any {
	t.Helper()
	msg := frameText(t, ft.writes[i])
	sep := strings.Index(msg, "\r\n\r\n")
	require.GreaterOrEqual(t, sep, 0)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg[sep+4:]), &m))
	return m
}

func TestSetScreenConfigDoubleSend(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("{}"), respFrame(`{"second":true}`)}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	cfg := DefaultScreenConfig()
	cfg.Media = []string{"a.mp4", "b.mp4"}
	resp := s.SetScreenConfig(cfg)

	// 必须连发两次，负载完全一致
	require.Len(t, ft.writes, 2)
	first := frameText(t, ft.writes[0])
	second := frameText(t, ft.writes[1])
	firstBody := first[strings.Index(first, "\r\n\r\n")+4:]
	secondBody := second[strings.Index(second, "\r\n\r\n")+4:]
	assert.Equal(t, firstBody, secondBody)

	// 返回的是第二次的应答
	require.NotNil(t, resp)
	assert.Equal(t, `{"second":true}`, resp.Body)

	// 负载字段与固件约定一致
	m := payloadOf(t, ft, 0)
	assert.Equal(t, "Custom", m["Type"])
	assert.Equal(t, "Customization", m["id"])
	assert.Equal(t, "Full Screen", m["screenMode"])
	assert.Equal(t, "2:1", m["ratio"])
	assert.Equal(t, "Single", m["playMode"])
	assert.Equal(t, []any{"a.mp4", "b.mp4"}, m["media"])
	assert.Equal(t, []any{}, m["sysinfoDisplay"])

	settings, ok := m["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Top", settings["position"])
	assert.Equal(t, "#FFFFFF", settings["color"])
	assert.Equal(t, "Center", settings["align"])
	assert.Equal(t, []any{}, settings["badges"])
	filter, ok := settings["filter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "", filter["value"])
	assert.Equal(t, float64(0), filter["opacity"])
}

func TestSetScreenConfigEmptyMedia(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("{}"), respFrame("{}")}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	s.SetScreenConfig(DefaultScreenConfig())

	// media 必须序列化为 []，不能是 null
	m := payloadOf(t, ft, 0)
	assert.Equal(t, []any{}, m["media"])
}

func TestSetBrightness(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("{}")}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	resp := s.SetBrightness(80)
	require.NotNil(t, resp)

	m := payloadOf(t, ft, 0)
	assert.Equal(t, float64(80), m["value"])
	assert.Contains(t, frameText(t, ft.writes[0]), "POST brightness 1\r\n")
}

func TestDeleteMedia(t *testing.T) {
	ft := &fakeTransport{replies: [][]byte{respFrame("{}")}}
	s := newTestSession(ft)
	require.NoError(t, s.Connect())

	resp := s.DeleteMedia([]string{"old.mp4", "x.png"})
	require.NotNil(t, resp)

	m := payloadOf(t, ft, 0)
	assert.Equal(t, []any{"old.mp4", "x.png"}, m["include"])
	assert.Contains(t, frameText(t, ft.writes[0]), "POST mediaDelete 1\r\n")
}
