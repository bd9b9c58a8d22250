package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Type 媒体文件类别
type Type int

const (
	TypeUnknown Type = iota
	TypeVideo
	TypeGif
	TypeImage
)

func (t Type) String() string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeGif:
		return "gif"
	case TypeImage:
		return "image"
	default:
		return "unknown"
	}
}

var (
	videoExts = map[string]bool{".mp4": true, ".webm": true, ".mkv": true, ".avi": true, ".mov": true}
	imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true}
)

// DetectType 按扩展名判断媒体类别，大小写不敏感
// GIF单独归类：设备固件不直接支持，上传前需转成MP4
func DetectType(path string) Type {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".gif":
		return TypeGif
	case videoExts[ext]:
		return TypeVideo
	case imageExts[ext]:
		return TypeImage
	default:
		return TypeUnknown
	}
}

// ConvertedName GIF转码后的目标文件名（同名.mp4）
func ConvertedName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp4"
}

// TmpDir 转码输出的临时目录
func TmpDir() string {
	return filepath.Join(os.TempDir(), "reed-tpse")
}

// FFmpegAvailable ffmpeg 是否可用
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ConvertGifToMP4 用 ffmpeg 把GIF转成设备可播放的MP4
// 输出尺寸对齐到偶数（yuv420p的要求）
func ConvertGifToMP4(ctx context.Context, input, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", input,
		"-movflags", "faststart",
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		output,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(string(out)))
	}

	if _, err := os.Stat(output); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	return nil
}
