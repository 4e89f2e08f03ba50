package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r-umemoto/anomaly-dashboard/pkg/api/handler"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/middleware"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/stream"
	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

// NewRouter は REST の /api/v1 とプッシュ配信の /ws をまとめます。
// /ws は長時間の接続なのでタイムアウトを掛けません
func NewRouter(hd handler.HandlerItf, hub *stream.Hub, snapshot func() usecase.Snapshot, timeout time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Error())
	v1.Use(middleware.Timeout(timeout))
	{
		v1.GET("/prices", hd.GetPrices)
		v1.GET("/heatmap", hd.GetHeatmap)
		v1.GET("/alerts", hd.GetAlerts)
		v1.GET("/chart", hd.GetChart)
		v1.GET("/chart/export", hd.GetChartExport)
		v1.POST("/selection", hd.PostSelection)
		v1.GET("/status", hd.GetStatus)
	}

	r.GET("/ws", hub.Handler(snapshot))

	return r
}
