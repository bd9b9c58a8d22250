package tpse

// TPSE 协议帧结构
// 格式：5a(1) + escape[ len(2,BE) + 报文文本 + checksum(1) ] + 5a(1)
// 报文文本：
//
//	<request_state> <cmd_type> <version>\r\n
//	ContentType=json\r\n
//	ContentLength=<N>\r\n
//	AckNumber=<seq>\r\n
//	\r\n
//	<JSON内容>
//
// 帧标记 0x5a 与转义标记 0x5b 在帧内部不允许裸露出现，
// 必须按 Escape 规则转义（见 escape.go）。

const (
	// FrameMarker 帧起止标记
	FrameMarker byte = 0x5A
	// EscapeMarker 转义引导字节
	EscapeMarker byte = 0x5B

	// escCodeMarker 转义后表示 0x5a 的第二字节
	escCodeMarker byte = 0x01
	// escCodeEscape 转义后表示 0x5b 的第二字节
	escCodeEscape byte = 0x02

	// lengthOverhead 长度字段里固定附加的协议开销
	lengthOverhead = 5
)

// Command 一次待发送的命令，构造后仅在单次发送内有效
type Command struct {
	RequestState string // 固定 "POST"
	CmdType      string // conn / waterBlockScreenId / brightness / mediaDelete
	Content      string // UTF-8 JSON 文本，可为空
	Version      string // 固定 "1"
	Sequence     uint32 // 会话内单调递增的应答号
}

// Response 解析一帧应答得到的结果，构造后只读
type Response struct {
	Raw     string // 去掉长度与校验和后的完整报文文本
	Body    string // 头部分隔符之后的内容
	JSON    any    // Body 成功解析为JSON时的结构化值，否则为nil
	Version string // 首行第一个token
	Status  string // 首行第二个token
}
