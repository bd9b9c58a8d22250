package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reedlab/reed-tpse/internal/config"
)

const stateFile = "display.json"

// ErrNotFound 尚未保存过显示状态
var ErrNotFound = errors.New("display state not found")

// DisplayState 最近一次成功下发的显示配置
// daemon 启动时用它恢复屏幕内容
type DisplayState struct {
	Media      []string `json:"media"`
	Ratio      string   `json:"ratio"`
	ScreenMode string   `json:"screen_mode"`
	PlayMode   string   `json:"play_mode"`
	Brightness int      `json:"brightness"`
}

// DefaultDisplayState 显示参数默认值
func DefaultDisplayState() DisplayState {
	return DisplayState{
		Ratio:      "2:1",
		ScreenMode: "Full Screen",
		PlayMode:   "Single",
		Brightness: 100,
	}
}

// Path 状态文件路径
func Path() string {
	return filepath.Join(config.StateDir(), stateFile)
}

// Load 读取保存的显示状态
// 文件不存在返回 ErrNotFound；损坏的文件视为错误
func Load() (*DisplayState, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	st := DefaultDisplayState()
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &st, nil
}

// Save 保存显示状态，目录不存在时自动创建
func Save(st DisplayState) error {
	dir := config.StateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(filepath.Join(dir, stateFile), data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}
