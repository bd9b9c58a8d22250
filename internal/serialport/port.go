package serialport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/reedlab/reed-tpse/internal/protocol/tpse"
)

var (
	// ErrNotOpen 串口未打开
	ErrNotOpen = errors.New("serial port not open")
	// ErrShortWrite 驱动接受的字节数少于请求
	ErrShortWrite = errors.New("short write")
)

const (
	// BaudRate 设备固定线路参数 115200-8-N-1，无流控
	BaudRate = 115200

	// readChunk 单次read的缓冲区大小
	readChunk = 256
)

// Port 持有一个OS串口句柄，提供限时读与写后排空
// 单个Port只归属一个会话，不做内部加锁
type Port struct {
	path string
	port serial.Port

	// openFn 测试替换点，默认 serial.Open
	openFn func(path string, mode *serial.Mode) (serial.Port, error)
}

// New 创建未打开的Port
func New(path string) *Port {
	return &Port{path: path, openFn: serial.Open}
}

// Path 返回设备节点路径
func (p *Port) Path() string { return p.path }

// Open 打开设备节点并按原始二进制传输配置线路
// 115200波特率、8数据位、无校验、1停止位；
// 打开后清空驱动里残留的收发队列，避免读到上次会话的脏数据。
// 任何打开或配置失败都视为连接错误。
func (p *Port) Open() error {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := p.openFn(p.path, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return fmt.Errorf("flush input %s: %w", p.path, err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		_ = port.Close()
		return fmt.Errorf("flush output %s: %w", p.path, err)
	}
	p.port = port
	return nil
}

// ReadUntil 轮询累积读取，直到截止时刻
// 每轮按剩余时间设置读超时；超时前没有任何数据到达时返回空切片，
// 这不是错误，表示"限时内无应答"。
// 累积数据首尾字节都等于帧标记时提前返回——这是一个低成本的
// 帧完成启发式，不校验内部结构。
// 读出错时带着已累积的数据一并返回。
func (p *Port) ReadUntil(deadline time.Time) ([]byte, error) {
	if p.port == nil {
		return nil, ErrNotOpen
	}

	var acc []byte
	buf := make([]byte, readChunk)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return acc, nil
		}
		if err := p.port.SetReadTimeout(remaining); err != nil {
			return acc, fmt.Errorf("set read timeout: %w", err)
		}
		n, err := p.port.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			if len(acc) >= 2 && acc[0] == tpse.FrameMarker && acc[len(acc)-1] == tpse.FrameMarker {
				return acc, nil
			}
		}
		if err != nil {
			return acc, fmt.Errorf("read: %w", err)
		}
	}
}

// Write 整块阻塞写入，随后等待驱动把输出队列排空
// 排空保证随后的限时读不会与还在途中的发送竞争
func (p *Port) Write(data []byte) error {
	if p.port == nil {
		return ErrNotOpen
	}
	n, err := p.port.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: wrote %d of %d", ErrShortWrite, n, len(data))
	}
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// Close 关闭句柄，重复调用安全
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", p.path, err)
	}
	return nil
}
