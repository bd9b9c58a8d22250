package device

import (
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/reedlab/reed-tpse/internal/serialport"
)

// devGlob 候选设备节点匹配模式（USB CDC-ACM）
const devGlob = "/dev/ttyACM*"

// probeSession 探测时用到的会话能力子集
type probeSession interface {
	Connect() error
	Handshake() *DeviceInfo
	Disconnect() error
}

// Finder 设备探测器
// 枚举 ttyACM 候选口并逐个试握手，接受第一个
// 返回可信产品ID的候选。glob 与 open 可注入，便于测试。
type Finder struct {
	log  *zap.Logger
	glob func() ([]string, error)
	open func(path string) probeSession
}

// NewFinder 创建默认探测器
func NewFinder(log *zap.Logger) *Finder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Finder{
		log:  log,
		glob: func() ([]string, error) { return filepath.Glob(devGlob) },
		open: func(path string) probeSession {
			return NewSession(serialport.New(path), WithLogger(log))
		},
	}
}

// Find 返回第一个通过握手验证的设备节点路径
// 候选按字典序探测，保证 ACM0 先于 ACM1，结果可复现。
// 验收条件：握手成功且产品ID非空、且不等于占位符 "unknown"。
// 被拒绝的候选在进入下一个之前必须断开，避免同时持有多个句柄。
// 没有候选或全部落选时返回 ("", false)。
func (f *Finder) Find() (string, bool) {
	candidates, err := f.glob()
	if err != nil || len(candidates) == 0 {
		f.log.Debug("no candidate serial devices", zap.Error(err))
		return "", false
	}
	sort.Strings(candidates)

	f.log.Debug("probing candidates", zap.Int("count", len(candidates)))

	for _, path := range candidates {
		sess := f.open(path)
		if err := sess.Connect(); err != nil {
			f.log.Debug("candidate open failed", zap.String("path", path), zap.Error(err))
			continue
		}

		info := sess.Handshake()
		_ = sess.Disconnect()

		if info != nil && info.ProductID != "" && info.ProductID != "unknown" {
			f.log.Info("device found",
				zap.String("path", path),
				zap.String("product", info.ProductID))
			return path, true
		}
		f.log.Debug("candidate rejected", zap.String("path", path))
	}
	return "", false
}
