package tpse

import "errors"

var (
	// ErrChecksumMismatch 校验和不一致
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Checksum 计算TPSE协议校验和
// 算法：对所有字节累加，取低8位（byte溢出自动丢弃高位）
// 对字节顺序敏感：相同字节集合的不同排列可能得到不同结果
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// VerifyFrameChecksum 复核一个完整帧的尾部校验和
// data: 含起止标记的原始帧
// 解码路径不强制校验（部分固件算出的校验和不可靠），
// 该函数供会话层在调试日志里记录不一致，不用于拒收。
func VerifyFrameChecksum(data []byte) error {
	if len(data) < 4 || data[0] != FrameMarker || data[len(data)-1] != FrameMarker {
		return ErrMissingMarker
	}
	payload := Unescape(data[1 : len(data)-1])
	if len(payload) < 3 {
		return ErrPayloadTooShort
	}
	got := payload[len(payload)-1]
	want := Checksum(payload[:len(payload)-1])
	if got != want {
		return ErrChecksumMismatch
	}
	return nil
}
