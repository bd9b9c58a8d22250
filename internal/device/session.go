package device

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reedlab/reed-tpse/internal/metrics"
	"github.com/reedlab/reed-tpse/internal/protocol/tpse"
)

// Transport 会话依赖的串口传输能力
// 由 serialport.Port 实现；测试中用内存假实现替代
type Transport interface {
	Open() error
	ReadUntil(deadline time.Time) ([]byte, error)
	Write(data []byte) error
	Close() error
}

const (
	// RequestStatePost 本协议唯一使用的请求状态
	RequestStatePost = "POST"
	// ProtocolVersion 协议版本号
	ProtocolVersion = "1"

	// CmdConn 握手
	CmdConn = "conn"
	// CmdScreenConfig 下发屏幕配置
	CmdScreenConfig = "waterBlockScreenId"
	// CmdBrightness 设置亮度
	CmdBrightness = "brightness"
	// CmdMediaDelete 删除设备上的媒体文件
	CmdMediaDelete = "mediaDelete"

	// settleDelay 写入后设备需要的固定处理时间，实测值，不可调
	settleDelay = 500 * time.Millisecond
	// readTimeout 等待应答的读截止时长
	readTimeout = 1000 * time.Millisecond
)

// Session 设备会话：组合帧编解码与串口传输，
// 维护会话内单调递增的应答号。
// 同一时刻最多持有一个打开的串口句柄；Disconnect 之后
// 必须重新 Connect 才能继续发送。
type Session struct {
	id        string
	transport Transport
	log       *zap.Logger
	metrics   *metrics.AppMetrics
	seq       uint32
	connected bool

	// sleep 测试替换点
	sleep func(time.Duration)
}

// Option Session 可选配置
type Option func(*Session)

// WithLogger 指定日志器
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithMetrics 挂接业务指标
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// NewSession 创建未连接的会话
func NewSession(transport Transport, opts ...Option) *Session {
	s := &Session{
		id:        uuid.New().String()[:8],
		transport: transport,
		log:       zap.NewNop(),
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", s.id))
	return s
}

// Connected 返回连接状态
func (s *Session) Connected() bool { return s.connected }

// Connect 打开串口
// 已连接时先显式断开旧句柄再重开，避免句柄泄漏
func (s *Session) Connect() error {
	if s.connected {
		s.log.Debug("connect on connected session, closing previous handle")
		if err := s.Disconnect(); err != nil {
			return err
		}
	}
	if err := s.transport.Open(); err != nil {
		return err
	}
	s.connected = true
	if s.metrics != nil {
		s.metrics.ConnectedGauge.Set(1)
	}
	s.log.Debug("session connected")
	return nil
}

// Disconnect 关闭串口，重复调用安全
func (s *Session) Disconnect() error {
	if !s.connected {
		return nil
	}
	err := s.transport.Close()
	s.connected = false
	if s.metrics != nil {
		s.metrics.ConnectedGauge.Set(0)
	}
	s.log.Debug("session disconnected")
	return err
}

// SendCommand 完成一次命令收发
// 应答号先自增再使用：会话的第一条命令携带 AckNumber=1。
// wait 为 false 时只发不收（fire-and-forget），返回 nil。
// 等待应答时先固定停顿 settleDelay 再限时读取；
// 限时内无数据或解析失败都返回 nil——"没有结果"就是失败信号，
// 具体原因只进日志与指标。
func (s *Session) SendCommand(reqState, cmdType, content string, wait bool) *tpse.Response {
	if !s.connected {
		s.log.Warn("send on closed session", zap.String("cmd", cmdType))
		return nil
	}

	s.seq++
	frame := tpse.BuildFrame(tpse.Command{
		RequestState: reqState,
		CmdType:      cmdType,
		Content:      content,
		Version:      ProtocolVersion,
		Sequence:     s.seq,
	})

	s.log.Debug("sending command",
		zap.String("cmd", cmdType),
		zap.Uint32("seq", s.seq),
		zap.Int("frame_len", len(frame)))

	if err := s.transport.Write(frame); err != nil {
		s.log.Error("write frame failed", zap.String("cmd", cmdType), zap.Error(err))
		return nil
	}
	if s.metrics != nil {
		s.metrics.CommandsTotal.WithLabelValues(cmdType).Inc()
		s.metrics.BytesWritten.Add(float64(len(frame)))
	}

	if !wait {
		return nil
	}

	// 设备收到命令后需要处理时间才能应答
	s.sleep(settleDelay)

	data, err := s.transport.ReadUntil(time.Now().Add(readTimeout))
	if err != nil {
		s.log.Debug("read interrupted", zap.String("cmd", cmdType), zap.Error(err))
	}
	if len(data) == 0 {
		s.log.Debug("no response within deadline", zap.String("cmd", cmdType))
		if s.metrics != nil {
			s.metrics.ResponsesTotal.WithLabelValues("timeout").Inc()
		}
		return nil
	}

	// 尾部校验和只记录不拒收：部分固件的校验和不可靠
	if err := tpse.VerifyFrameChecksum(data); errors.Is(err, tpse.ErrChecksumMismatch) {
		s.log.Debug("response checksum mismatch, accepting anyway", zap.String("cmd", cmdType))
	}

	resp, err := tpse.ParseResponse(data)
	if err != nil {
		s.log.Debug("malformed response frame",
			zap.String("cmd", cmdType),
			zap.Int("len", len(data)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.ResponsesTotal.WithLabelValues("malformed").Inc()
		}
		return nil
	}
	if s.metrics != nil {
		s.metrics.ResponsesTotal.WithLabelValues("ok").Inc()
	}
	return resp
}
