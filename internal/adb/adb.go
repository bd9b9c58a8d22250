package adb

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// MediaPath 设备存储上的媒体目录（独立于串口的旁路传输通道）
const MediaPath = "/sdcard/pcMedia/"

var (
	// ErrNoDevice 没有处于device状态的ADB设备
	ErrNoDevice = errors.New("no adb device connected")
	// ErrPushFailed push 未被确认
	ErrPushFailed = errors.New("adb push failed")
	// ErrRemoveFailed 目标文件不存在或删除失败
	ErrRemoveFailed = errors.New("adb remove failed")
)

// Client 批量媒体传输客户端，包装 adb 命令行
// runner 可注入，测试不依赖真实adb
type Client struct {
	log    *zap.Logger
	runner func(args ...string) (string, error)
}

// New 创建默认客户端
func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		log: log,
		runner: func(args ...string) (string, error) {
			out, err := exec.Command("adb", args...).CombinedOutput()
			return string(out), err
		},
	}
}

// DeviceConnected 是否有处于device状态的设备
func (c *Client) DeviceConnected() bool {
	out, err := c.runner("devices")
	if err != nil {
		c.log.Debug("adb devices failed", zap.Error(err))
		return false
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "\tdevice") {
			return true
		}
	}
	return false
}

// Push 上传本地文件到设备媒体目录
func (c *Client) Push(localPath, remoteName string) error {
	out, err := c.runner("push", localPath, MediaPath+remoteName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	if !strings.Contains(out, "pushed") && !strings.Contains(out, "1 file") {
		return fmt.Errorf("%w: %s", ErrPushFailed, strings.TrimSpace(out))
	}
	c.log.Debug("pushed media", zap.String("file", remoteName))
	return nil
}

// ListMedia 列出设备媒体目录下的文件
// 目录尚不存在时返回空列表，不算错误
func (c *Client) ListMedia() ([]string, error) {
	out, err := c.runner("shell", "ls", "-1", MediaPath)
	if err != nil {
		return nil, fmt.Errorf("adb ls: %w", err)
	}
	if strings.Contains(out, "No such file") || strings.Contains(out, "error:") {
		return []string{}, nil
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r\n ")
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Remove 删除设备媒体目录下的文件
func (c *Client) Remove(name string) error {
	out, err := c.runner("shell", "rm", MediaPath+name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoveFailed, err)
	}
	if strings.Contains(out, "No such file") {
		return fmt.Errorf("%w: %s", ErrRemoveFailed, name)
	}
	return nil
}
