package tpse

import (
	"bytes"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{
			name:     "普通字节原样通过",
			input:    []byte{0x01, 0x02, 0x59, 0x5C},
			expected: []byte{0x01, 0x02, 0x59, 0x5C},
		},
		{
			name:     "帧标记转义",
			input:    []byte{0x5A},
			expected: []byte{0x5B, 0x01},
		},
		{
			name:     "转义标记转义",
			input:    []byte{0x5B},
			expected: []byte{0x5B, 0x02},
		},
		{
			name:     "混合",
			input:    []byte{0x00, 0x5A, 0x5B, 0xFF},
			expected: []byte{0x00, 0x5B, 0x01, 0x5B, 0x02, 0xFF},
		},
		{
			name:     "空输入",
			input:    []byte{},
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Escape(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("Escape() = % X, expected % X", result, tt.expected)
			}
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{
			name:     "还原帧标记",
			input:    []byte{0x5B, 0x01},
			expected: []byte{0x5A},
		},
		{
			name:     "还原转义标记",
			input:    []byte{0x5B, 0x02},
			expected: []byte{0x5B},
		},
		{
			name:     "游离转义字节跟随其他字节原样保留",
			input:    []byte{0x5B, 0x03, 0x10},
			expected: []byte{0x5B, 0x03, 0x10},
		},
		{
			name:     "末尾游离转义字节原样保留",
			input:    []byte{0x10, 0x5B},
			expected: []byte{0x10, 0x5B},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Unescape(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("Unescape() = % X, expected % X", result, tt.expected)
			}
		})
	}
}

// TestEscapeRoundTrip 任意字节序列 Unescape(Escape(x)) == x
func TestEscapeRoundTrip(t *testing.T) {
	// 全部256个字节值，连同保留字节的各种相邻组合
	var all []byte
	for i := 0; i < 256; i++ {
		all = append(all, byte(i))
	}
	cases := [][]byte{
		all,
		{0x5A, 0x5A, 0x5A},
		{0x5B, 0x5B, 0x5B},
		{0x5A, 0x5B, 0x5A, 0x5B},
		{0x5B, 0x01, 0x5B, 0x02},
		{},
	}
	for _, c := range cases {
		got := Unescape(Escape(c))
		if !bytes.Equal(got, c) {
			t.Errorf("往返失败: 输入 % X, 得到 % X", c, got)
		}
	}
}

// TestEscapeNoReservedBytes 转义输出中0x5a不再出现，0x5b只作为转义引导
func TestEscapeNoReservedBytes(t *testing.T) {
	input := []byte{0x5A, 0x5B, 0x00, 0x5A, 0xFF}
	out := Escape(input)
	for i := 0; i < len(out); i++ {
		if out[i] == FrameMarker {
			t.Fatalf("转义输出位置%d出现裸帧标记", i)
		}
		if out[i] == EscapeMarker {
			if i+1 >= len(out) || (out[i+1] != escCodeMarker && out[i+1] != escCodeEscape) {
				t.Fatalf("转义输出位置%d的转义序列不完整", i)
			}
			i++
		}
	}
}
