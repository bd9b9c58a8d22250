package tpse

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrFrameTooShort 帧长不足4字节
	ErrFrameTooShort = errors.New("frame too short")
	// ErrMissingMarker 帧首尾缺少0x5a标记
	ErrMissingMarker = errors.New("missing frame marker")
	// ErrPayloadTooShort 去转义后的内部数据不足3字节
	ErrPayloadTooShort = errors.New("payload too short")
)

// ParseResponse 解析一帧设备应答
// 剥掉起止标记 -> 去转义 -> 丢弃2字节长度前缀与1字节尾部校验和。
// 尾部校验和在这里不复核（见 VerifyFrameChecksum 的说明）。
// 报文含 \r\n\r\n 分隔符时，之前为头部、之后为Body，
// 头部首行按空白切出 version 与 status；Body 尝试按JSON解析。
// 分隔符缺失时仍返回Response，Body/Version/Status 为空。
func ParseResponse(data []byte) (*Response, error) {
	if len(data) < 4 {
		return nil, ErrFrameTooShort
	}
	if data[0] != FrameMarker || data[len(data)-1] != FrameMarker {
		return nil, ErrMissingMarker
	}

	payload := Unescape(data[1 : len(data)-1])
	if len(payload) < 3 {
		return nil, ErrPayloadTooShort
	}

	msg := string(payload[2 : len(payload)-1])
	resp := &Response{Raw: msg}

	sep := strings.Index(msg, "\r\n\r\n")
	if sep < 0 {
		return resp, nil
	}

	header := msg[:sep]
	resp.Body = msg[sep+4:]

	if resp.Body != "" {
		var v any
		if err := json.Unmarshal([]byte(resp.Body), &v); err == nil {
			resp.JSON = v
		}
	}

	firstLine := header
	if i := strings.Index(header, "\r\n"); i >= 0 {
		firstLine = header[:i]
	}
	fields := strings.Fields(firstLine)
	if len(fields) > 0 {
		resp.Version = fields[0]
	}
	if len(fields) > 1 {
		resp.Status = fields[1]
	}
	return resp, nil
}
