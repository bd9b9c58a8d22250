package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reedlab/reed-tpse/internal/adb"
	cfgpkg "github.com/reedlab/reed-tpse/internal/config"
	"github.com/reedlab/reed-tpse/internal/device"
	"github.com/reedlab/reed-tpse/internal/httpserver"
	"github.com/reedlab/reed-tpse/internal/logging"
	"github.com/reedlab/reed-tpse/internal/media"
	appmetrics "github.com/reedlab/reed-tpse/internal/metrics"
	"github.com/reedlab/reed-tpse/internal/serialport"
	"github.com/reedlab/reed-tpse/internal/state"
)

const usageText = `Usage: reed-tpse <command> [options]

Commands:
  info                    Show device info
  find                    Probe serial ports and print the device path
  upload <file>           Upload media file (converts GIF to MP4)
  display <file...>       Set display to specified media files
  brightness <0-100>      Set display brightness
  list                    List media files on device
  delete <file...>        Delete media files from device
  daemon                  Run keepalive daemon in foreground

Common options:
  -port <path>            Serial port (auto-detected if not specified)
  -config <path>          Config file (default: ~/.config/reed-tpse/config.yaml)
  -verbose                Debug logging
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

// env 各子命令共享的运行环境
type env struct {
	cfg *cfgpkg.Config
	log *zap.Logger
}

func run(command string, args []string) int {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	port := fs.String("port", "", "serial port path")
	cfgPath := fs.String("config", "", "config file path")
	verbose := fs.Bool("verbose", false, "debug logging")
	ratio := fs.String("ratio", "", "display ratio (2:1 or 1:1)")
	brightness := fs.Int("brightness", -1, "brightness 0-100")
	_ = fs.Parse(args)

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	// 2) 初始化日志
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	e := &env{cfg: cfg, log: logger}
	if *port != "" {
		e.cfg.Serial.Port = *port
	}
	if *ratio != "" {
		e.cfg.Display.Ratio = *ratio
	}
	if *brightness >= 0 {
		e.cfg.Display.Brightness = *brightness
	}

	switch command {
	case "info":
		return cmdInfo(e)
	case "find":
		return cmdFind(e)
	case "upload":
		return cmdUpload(e, fs.Args())
	case "display":
		return cmdDisplay(e, fs.Args())
	case "brightness":
		return cmdBrightness(e, fs.Args())
	case "list":
		return cmdList(e)
	case "delete":
		return cmdDelete(e, fs.Args())
	case "daemon":
		return cmdDaemon(e)
	case "help", "-h", "--help":
		fmt.Print(usageText)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprint(os.Stderr, usageText)
		return 1
	}
}

// resolvePort 确定串口路径：显式指定优先，否则自动探测
func resolvePort(e *env) (string, bool) {
	if e.cfg.Serial.Port != "" {
		return e.cfg.Serial.Port, true
	}
	finder := device.NewFinder(e.log)
	path, ok := finder.Find()
	if !ok {
		fmt.Fprintln(os.Stderr, "No device found. Specify port with -port or check connection.")
		return "", false
	}
	fmt.Printf("Found device at %s\n", path)
	return path, true
}

// openSession 连接串口并返回已连接的会话
func openSession(e *env, opts ...device.Option) (*device.Session, bool) {
	port, ok := resolvePort(e)
	if !ok {
		return nil, false
	}
	sess := device.NewSession(serialport.New(port), append([]device.Option{device.WithLogger(e.log)}, opts...)...)
	if err := sess.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %s: %v\n", port, err)
		return nil, false
	}
	return sess, true
}

func cmdInfo(e *env) int {
	sess, ok := openSession(e)
	if !ok {
		return 1
	}
	defer func() { _ = sess.Disconnect() }()

	info := sess.Handshake()
	if info == nil {
		fmt.Fprintln(os.Stderr, "Failed to get device info")
		return 1
	}

	fmt.Printf("Device Information:\n")
	fmt.Printf("  Product: %s\n", info.ProductID)
	fmt.Printf("  OS: %s\n", info.OS)
	fmt.Printf("  Serial: %s\n", info.Serial)
	fmt.Printf("  App Version: %s\n", info.AppVersion)
	fmt.Printf("  Firmware: %s\n", info.Firmware)
	fmt.Printf("  Hardware: %s\n", info.Hardware)
	if len(info.Attributes) > 0 {
		fmt.Printf("  Attributes: ")
		for i, a := range info.Attributes {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Print(a)
		}
		fmt.Println()
	}
	return 0
}

func cmdFind(e *env) int {
	finder := device.NewFinder(e.log)
	path, ok := finder.Find()
	if !ok {
		fmt.Fprintln(os.Stderr, "No device found")
		return 1
	}
	fmt.Println(path)
	return 0
}

func cmdUpload(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reed-tpse upload <file>")
		return 1
	}
	file := args[0]

	if _, err := os.Stat(file); err != nil {
		fmt.Fprintf(os.Stderr, "File not found: %s\n", file)
		return 1
	}

	client := adb.New(e.log)
	if !client.DeviceConnected() {
		fmt.Fprintln(os.Stderr, "No ADB device connected")
		return 1
	}

	uploadPath := file
	remoteName := filepath.Base(file)

	if media.DetectType(file) == media.TypeGif {
		if !media.FFmpegAvailable() {
			fmt.Fprintln(os.Stderr, "ffmpeg not found. Install ffmpeg to upload GIF files.")
			return 1
		}
		remoteName = media.ConvertedName(file)
		converted := filepath.Join(media.TmpDir(), remoteName)

		fmt.Println("Converting GIF to MP4...")
		if err := media.ConvertGifToMP4(context.Background(), file, converted); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to convert GIF: %v\n", err)
			return 1
		}
		uploadPath = converted
		fmt.Printf("Converted: %s -> %s\n", filepath.Base(file), remoteName)
	}

	fmt.Printf("Uploading %s...\n", remoteName)
	if err := client.Push(uploadPath, remoteName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to upload file: %v\n", err)
		return 1
	}

	fmt.Println("Upload complete.")
	fmt.Printf("Display with: reed-tpse display %s\n", remoteName)
	return 0
}

func cmdDisplay(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reed-tpse display <file...>")
		return 1
	}
	if e.cfg.Display.Brightness < 0 || e.cfg.Display.Brightness > 100 {
		fmt.Fprintln(os.Stderr, "Brightness must be 0-100")
		return 1
	}

	// 引用GIF时按转码后的文件名下发
	var files []string
	for _, f := range args {
		if media.DetectType(f) == media.TypeGif {
			files = append(files, media.ConvertedName(f))
		} else {
			files = append(files, f)
		}
	}

	sess, ok := openSession(e)
	if !ok {
		return 1
	}
	defer func() { _ = sess.Disconnect() }()

	sess.Handshake()

	cfg := device.DefaultScreenConfig()
	cfg.Media = files
	cfg.Ratio = e.cfg.Display.Ratio
	sess.SetScreenConfig(cfg)
	sess.SetBrightness(e.cfg.Display.Brightness)

	fmt.Print("Display set to: ")
	for i, f := range files {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Print(f)
	}
	fmt.Printf("\nBrightness: %d\n", e.cfg.Display.Brightness)

	// 保存状态供daemon恢复
	st := state.DefaultDisplayState()
	st.Media = files
	st.Ratio = cfg.Ratio
	st.Brightness = e.cfg.Display.Brightness
	if err := state.Save(st); err != nil {
		e.log.Warn("save display state failed", zap.Error(err))
	}

	fmt.Println("Run 'reed-tpse daemon' to keep display persistent.")
	return 0
}

func cmdBrightness(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reed-tpse brightness <0-100>")
		return 1
	}
	value, err := strconv.Atoi(args[0])
	if err != nil || value < 0 || value > 100 {
		fmt.Fprintln(os.Stderr, "Brightness must be 0-100")
		return 1
	}

	sess, ok := openSession(e)
	if !ok {
		return 1
	}
	defer func() { _ = sess.Disconnect() }()

	sess.Handshake()
	sess.SetBrightness(value)
	fmt.Printf("Brightness set to %d\n", value)
	return 0
}

func cmdList(e *env) int {
	client := adb.New(e.log)
	if !client.DeviceConnected() {
		fmt.Fprintln(os.Stderr, "No ADB device connected")
		return 1
	}

	files, err := client.ListMedia()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list media files: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Println("No media files on device.")
		return 0
	}
	fmt.Println("Media files on device:")
	for _, f := range files {
		fmt.Printf("  %s\n", f)
	}
	return 0
}

func cmdDelete(e *env, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: reed-tpse delete <file...>")
		return 1
	}

	client := adb.New(e.log)
	if !client.DeviceConnected() {
		fmt.Fprintln(os.Stderr, "No ADB device connected")
		return 1
	}

	code := 0
	for _, f := range args {
		if err := client.Remove(f); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete: %s\n", f)
			code = 1
			continue
		}
		fmt.Printf("Deleted: %s\n", f)
	}
	return code
}

// cmdDaemon 前台daemon：恢复显示状态并保活
// 作为systemd用户服务运行时由unit文件负责拉起
func cmdDaemon(e *env) int {
	st, err := state.Load()
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			fmt.Fprintln(os.Stderr, "No display state saved. Run 'reed-tpse display <file>' first.")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load display state: %v\n", err)
		}
		return 1
	}

	// 指标
	reg := appmetrics.NewRegistry()
	m := appmetrics.NewAppMetrics(reg)

	sess, ok := openSession(e, device.WithMetrics(m))
	if !ok {
		return 1
	}
	defer func() { _ = sess.Disconnect() }()

	info := sess.Handshake()

	cfg := device.DefaultScreenConfig()
	cfg.Media = st.Media
	cfg.Ratio = st.Ratio
	cfg.ScreenMode = st.ScreenMode
	cfg.PlayMode = st.PlayMode
	sess.SetScreenConfig(cfg)
	sess.SetBrightness(st.Brightness)
	fmt.Println("Display restored. Running keepalive...")

	keepalive := device.NewKeepalive(sess,
		e.cfg.Keepalive.Interval,
		e.cfg.Keepalive.ReconnectPerMinute,
		e.log, m)

	// 状态HTTP服务（可选）
	var httpSrv *httpserver.Server
	if e.cfg.HTTP.Enable {
		product := "unknown"
		if info != nil {
			product = info.ProductID
		}
		httpSrv = httpserver.New(e.cfg.HTTP, e.cfg.Metrics.Path, appmetrics.Handler(reg), func() httpserver.Status {
			return httpserver.Status{
				Port:          e.cfg.Serial.Port,
				Product:       product,
				Connected:     sess.Connected(),
				LastKeepalive: keepalive.LastOK(),
			}
		})
		go func() {
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.log.Error("http server error", zap.Error(err))
			}
		}()
	}

	// 信号处理，迭代间协作式退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = keepalive.Run(ctx)

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	fmt.Println("Stopping.")
	return 0
}
