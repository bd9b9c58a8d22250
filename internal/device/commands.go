package device

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/reedlab/reed-tpse/internal/protocol/tpse"
)

// DeviceInfo 握手得到的设备标识
// 缺失的标量字段写入字面量 "unknown"，缺失的属性列表为空
type DeviceInfo struct {
	ProductID  string
	OS         string
	Serial     string
	AppVersion string
	Firmware   string
	Hardware   string
	Attributes []string
}

// ScreenConfig 一次显示更新请求
// Media 的顺序即播放顺序
type ScreenConfig struct {
	Media      []string
	ScreenMode string
	Ratio      string
	PlayMode   string
}

// DefaultScreenConfig 设备出厂约定的默认显示参数
func DefaultScreenConfig() ScreenConfig {
	return ScreenConfig{
		ScreenMode: "Full Screen",
		Ratio:      "2:1",
		PlayMode:   "Single",
	}
}

// 屏幕配置的线上JSON负载，字段名与大小写由设备固件约定
type screenFilter struct {
	Value   string  `json:"value"`
	Opacity float64 `json:"opacity"`
}

type screenSettings struct {
	Position string       `json:"position"`
	Color    string       `json:"color"`
	Align    string       `json:"align"`
	Badges   []string     `json:"badges"`
	Filter   screenFilter `json:"filter"`
}

type screenPayload struct {
	Type           string         `json:"Type"`
	ID             string         `json:"id"`
	ScreenMode     string         `json:"screenMode"`
	Ratio          string         `json:"ratio"`
	PlayMode       string         `json:"playMode"`
	Media          []string       `json:"media"`
	Settings       screenSettings `json:"settings"`
	SysinfoDisplay []string       `json:"sysinfoDisplay"`
}

type brightnessPayload struct {
	Value int `json:"value"`
}

type mediaDeletePayload struct {
	Include []string `json:"include"`
}

// Handshake 发送 conn 命令并解析设备标识
// 无应答或Body不是JSON对象时返回 nil。
// 期望的键缺失不算失败：标量补 "unknown"，
// attribute 数组里的非字符串元素静默丢弃。
func (s *Session) Handshake() *DeviceInfo {
	resp := s.SendCommand(RequestStatePost, CmdConn, "", true)
	if resp == nil || resp.JSON == nil {
		return nil
	}
	obj, ok := resp.JSON.(map[string]any)
	if !ok {
		return nil
	}

	info := &DeviceInfo{
		ProductID:  getString(obj, "productId", "unknown"),
		OS:         getString(obj, "OS", "unknown"),
		Serial:     getString(obj, "sn", "unknown"),
		AppVersion: "unknown",
		Firmware:   "unknown",
		Hardware:   "unknown",
	}

	if ver, ok := obj["version"].(map[string]any); ok {
		info.AppVersion = getString(ver, "app", "unknown")
		info.Firmware = getString(ver, "firmware", "unknown")
		info.Hardware = getString(ver, "hardware", "unknown")
	}

	if attrs, ok := obj["attribute"].([]any); ok {
		for _, a := range attrs {
			if str, ok := a.(string); ok {
				info.Attributes = append(info.Attributes, str)
			}
		}
	}

	s.log.Debug("handshake ok",
		zap.String("product", info.ProductID),
		zap.String("sn", info.Serial))
	return info
}

// SetScreenConfig 下发屏幕配置
// 同一负载连发两次、间隔 settleDelay——设备侧存在配置缓存，
// 只发一次不生效，这是实测出的固件怪癖，必须保留。
// 返回第二次发送的应答。
func (s *Session) SetScreenConfig(cfg ScreenConfig) *tpse.Response {
	media := cfg.Media
	if media == nil {
		media = []string{}
	}
	payload := screenPayload{
		Type:       "Custom",
		ID:         "Customization",
		ScreenMode: cfg.ScreenMode,
		Ratio:      cfg.Ratio,
		PlayMode:   cfg.PlayMode,
		Media:      media,
		Settings: screenSettings{
			Position: "Top",
			Color:    "#FFFFFF",
			Align:    "Center",
			Badges:   []string{},
			Filter:   screenFilter{Value: "", Opacity: 0},
		},
		SysinfoDisplay: []string{},
	}

	content, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal screen config", zap.Error(err))
		return nil
	}

	s.SendCommand(RequestStatePost, CmdScreenConfig, string(content), true)
	s.sleep(settleDelay)
	return s.SendCommand(RequestStatePost, CmdScreenConfig, string(content), true)
}

// SetBrightness 设置亮度
// 取值范围 0-100 由调用方保证，这里不做二次校验
func (s *Session) SetBrightness(value int) *tpse.Response {
	content, err := json.Marshal(brightnessPayload{Value: value})
	if err != nil {
		s.log.Error("marshal brightness", zap.Error(err))
		return nil
	}
	return s.SendCommand(RequestStatePost, CmdBrightness, string(content), true)
}

// DeleteMedia 删除设备上的媒体文件
func (s *Session) DeleteMedia(files []string) *tpse.Response {
	if files == nil {
		files = []string{}
	}
	content, err := json.Marshal(mediaDeletePayload{Include: files})
	if err != nil {
		s.log.Error("marshal media delete", zap.Error(err))
		return nil
	}
	return s.SendCommand(RequestStatePost, CmdMediaDelete, string(content), true)
}

func getString(obj map[string]any, key, def string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return def
}
