package tpse

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BuildFrame 构造一个完整的下行帧
// 步骤固定为：拼报文 -> 加长度前缀 -> 算校验和 -> 转义 -> 加起止标记。
// 校验和必须在转义之前计算，转义必须在加标记之前完成，顺序不可调换。
func BuildFrame(cmd Command) []byte {
	var body bytes.Buffer
	fmt.Fprintf(&body, "%s %s %s\r\n", cmd.RequestState, cmd.CmdType, cmd.Version)
	body.WriteString("ContentType=json\r\n")
	fmt.Fprintf(&body, "ContentLength=%d\r\n", len(cmd.Content))
	fmt.Fprintf(&body, "AckNumber=%d\r\n", cmd.Sequence)
	body.WriteString("\r\n")
	body.WriteString(cmd.Content)

	msg := body.Bytes()
	total := uint16(len(msg) + lengthOverhead)

	// 长度前缀（2字节大端）+ 报文
	data := make([]byte, 0, 2+len(msg)+1)
	lenBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBytes, total)
	data = append(data, lenBytes...)
	data = append(data, msg...)

	// 校验和覆盖长度前缀与报文
	data = append(data, Checksum(data))

	escaped := Escape(data)

	frame := make([]byte, 0, len(escaped)+2)
	frame = append(frame, FrameMarker)
	frame = append(frame, escaped...)
	frame = append(frame, FrameMarker)
	return frame
}
