// cmd/dashboard/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/r-umemoto/anomaly-dashboard/pkg/api"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/handler"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/stream"
	"github.com/r-umemoto/anomaly-dashboard/pkg/config"
	"github.com/r-umemoto/anomaly-dashboard/pkg/engine"
	"github.com/r-umemoto/anomaly-dashboard/pkg/logger"
)

func main() {
	// 1. 設定の読み込み（.env → config.yml → 環境変数）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer zl.Sync()

	// 2. 全体を安全に停止するためのコンテキスト管理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 組み立て（プッシュ配信 → エンジン → API）
	hub := stream.NewHub(zl.Named("ws"))
	eng, err := engine.BuildEngine(cfg, hub, zl)
	if err != nil {
		zl.Fatal("エンジンの組み立てに失敗しました", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	dashboard := eng.Dashboard()
	hd := handler.NewHandler(dashboard, eng, hub.Len)
	router := api.NewRouter(hd, hub, dashboard.Snapshot, cfg.HTTP.RequestTimeout)

	srv := newHTTPServer(cfg.HTTP.Addr, router)

	// 4. エンジンとHTTPサーバーの起動
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- eng.Run(ctx)
	}()

	go func() {
		zl.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	// 5. 終了待ち
	engineStopped := false
	select {
	case <-ctx.Done():
		zl.Info("中断シグナルを受信しました。終了処理に入ります")
	case err := <-engineDone:
		engineStopped = true
		zl.Error("エンジンが停止しました", zap.Error(err))
		stop()
	}

	// 6. 後片付け（新規接続を止めてからプッシュ配信を閉じる）
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http server shutdown", zap.Error(err))
	}
	hub.Close()

	if !engineStopped {
		select {
		case <-engineDone:
		case <-shutdownCtx.Done():
			zl.Warn("エンジンの停止待ちがタイムアウトしました")
		}
	}

	zl.Info("システムを安全にシャットダウンしました")
}

// newHTTPServer はヘッダ読み込みとアイドルにタイムアウトを付けたサーバーです。
// /ws の長時間接続があるので WriteTimeout は付けません
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
