package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/r-umemoto/anomaly-dashboard/pkg/api/constant"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/dto"
	"github.com/r-umemoto/anomaly-dashboard/pkg/domain/market"
	"github.com/r-umemoto/anomaly-dashboard/pkg/engine"
	"github.com/r-umemoto/anomaly-dashboard/pkg/usecase"
)

// ReaderItf is the read side of the dashboard stores.
type ReaderItf interface {
	Prices() []usecase.PriceRow
	Heatmap() []usecase.HeatCellView
	Alerts() []usecase.AlertView
	Chart() usecase.ChartView
	ExportCSV(w io.Writer) (string, error)
}

// ControllerItf changes the selection through the engine loop and reports the feed state.
type ControllerItf interface {
	Select(ctx context.Context, symbol string) error
	Status() market.FeedStatus
}

type HandlerItf interface {
	GetPrices(*gin.Context)
	GetHeatmap(*gin.Context)
	GetAlerts(*gin.Context)
	GetChart(*gin.Context)
	GetChartExport(*gin.Context)
	PostSelection(*gin.Context)
	GetStatus(*gin.Context)
}

type Handler struct {
	reader  ReaderItf
	ctrl    ControllerItf
	clients func() int
}

func NewHandler(reader ReaderItf, ctrl ControllerItf, clients func() int) *Handler {
	return &Handler{reader: reader, ctrl: ctrl, clients: clients}
}

func ok(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, dto.Res{
		Success: true,
		Data:    data,
	})
}

func (hd *Handler) GetPrices(ctx *gin.Context) {
	ok(ctx, hd.reader.Prices())
}

func (hd *Handler) GetHeatmap(ctx *gin.Context) {
	ok(ctx, hd.reader.Heatmap())
}

func (hd *Handler) GetAlerts(ctx *gin.Context) {
	ok(ctx, hd.reader.Alerts())
}

func (hd *Handler) GetChart(ctx *gin.Context) {
	ok(ctx, hd.reader.Chart())
}

func (hd *Handler) GetChartExport(ctx *gin.Context) {
	var buf bytes.Buffer
	name, err := hd.reader.ExportCSV(&buf)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (hd *Handler) PostSelection(ctx *gin.Context) {
	var req dto.PostSelectionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			ctx.Error(err)
			return
		}
		ctx.Error(constant.ErrInvalidBody)
		return
	}

	err := hd.ctrl.Select(ctx.Request.Context(), req.Symbol)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrEmptySymbol):
		ctx.Error(constant.ErrNoSymbol)
		return
	case errors.Is(err, engine.ErrStopped):
		ctx.Error(constant.ErrFeedStopped)
		return
	case ctx.Request.Context().Err() != nil:
		// タイムアウトの応答はミドルウェアが書く
		return
	default:
		ctx.Error(err)
		return
	}

	ok(ctx, dto.PostSelectionRes{Selected: strings.TrimSpace(req.Symbol)})
}

func (hd *Handler) GetStatus(ctx *gin.Context) {
	status := hd.ctrl.Status()
	res := dto.GetStatusRes{
		Source:    status.Source,
		Connected: status.Connected,
		Received:  status.Received,
		Dropped:   status.Dropped,
	}
	if hd.clients != nil {
		res.Clients = hd.clients()
	}
	ok(ctx, res)
}
