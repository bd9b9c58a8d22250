package tpse

// Escape 对帧内部数据做字节填充转义
// 0x5a -> 5b 01，0x5b -> 5b 02，其余字节原样通过
func Escape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		switch b {
		case FrameMarker:
			out = append(out, EscapeMarker, escCodeMarker)
		case EscapeMarker:
			out = append(out, EscapeMarker, escCodeEscape)
		default:
			out = append(out, b)
		}
	}
	return out
}

// Unescape Escape 的逆变换
// 5b 01 -> 0x5a，5b 02 -> 0x5b；
// 0x5b 后面跟其他字节或位于末尾时原样保留，不视为错误
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == EscapeMarker && i+1 < len(data) {
			switch data[i+1] {
			case escCodeMarker:
				out = append(out, FrameMarker)
				i++
				continue
			case escCodeEscape:
				out = append(out, EscapeMarker)
				i++
				continue
			}
		}
		out = append(out, data[i])
	}
	return out
}
