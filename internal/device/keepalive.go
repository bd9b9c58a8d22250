package device

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reedlab/reed-tpse/internal/metrics"
)

// Keepalive 保活循环：周期性重发握手，让显示配置常驻
// 协作式停止：只在两次迭代之间检查 ctx，
// 已经在途的握手会先完成再退出。
type Keepalive struct {
	sess     *Session
	interval time.Duration
	// reconnects 限制握手失败后的重连频率（令牌桶）
	reconnects *rate.Limiter
	log        *zap.Logger
	metrics    *metrics.AppMetrics

	lastOK atomic.Int64 // 最近一次成功握手的unix秒，0表示尚无
}

// NewKeepalive 创建保活循环
// reconnectPerMinute <= 0 时禁用失败重连
func NewKeepalive(sess *Session, interval time.Duration, reconnectPerMinute int, log *zap.Logger, m *metrics.AppMetrics) *Keepalive {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	var limiter *rate.Limiter
	if reconnectPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(reconnectPerMinute)/60.0), 1)
	}
	return &Keepalive{
		sess:       sess,
		interval:   interval,
		reconnects: limiter,
		log:        log,
		metrics:    m,
	}
}

// LastOK 最近一次成功握手的时刻，零值表示尚未成功过
func (k *Keepalive) LastOK() time.Time {
	sec := k.lastOK.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Run 运行保活循环直到 ctx 取消
func (k *Keepalive) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.log.Info("keepalive stopping")
			return ctx.Err()
		case <-ticker.C:
			k.tick()
		}
	}
}

func (k *Keepalive) tick() {
	if k.sess.Handshake() != nil {
		k.lastOK.Store(time.Now().Unix())
		if k.metrics != nil {
			k.metrics.KeepaliveTotal.Inc()
		}
		return
	}

	k.log.Warn("keepalive handshake failed")
	if k.reconnects == nil || !k.reconnects.Allow() {
		return
	}

	if k.metrics != nil {
		k.metrics.ReconnectTotal.Inc()
	}
	_ = k.sess.Disconnect()
	if err := k.sess.Connect(); err != nil {
		k.log.Warn("keepalive reconnect failed", zap.Error(err))
	}
}
