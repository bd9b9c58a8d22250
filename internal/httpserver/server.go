package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	cfgpkg "github.com/reedlab/reed-tpse/internal/config"
)

// Status daemon 运行状态快照
type Status struct {
	Port          string    `json:"port"`
	Product       string    `json:"product"`
	Connected     bool      `json:"connected"`
	LastKeepalive time.Time `json:"last_keepalive"`
}

// Server daemon 状态 HTTP 服务封装
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server
// 路由：/healthz 存活探针，/readyz 就绪探针（串口已连接），
// /status 运行状态JSON，metricsPath 指标。
func New(cfg cfgpkg.HTTPConfig, metricsPath string, metricsHandler http.Handler, statusFn func() Status) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if statusFn != nil && statusFn().Connected {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	r.GET("/status", func(c *gin.Context) {
		if statusFn == nil {
			c.JSON(http.StatusOK, Status{})
			return
		}
		c.JSON(http.StatusOK, statusFn())
	})
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if metricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
