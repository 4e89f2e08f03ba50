package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/r-umemoto/anomaly-dashboard/pkg/api/constant"
)

func TestMiddlewareError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name           string
		handle         func(c *gin.Context)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no error",
			handle:         func(c *gin.Context) {},
			expectedStatus: http.StatusOK,
			expectedBody:   ``,
		},
		{
			name: "validation errors - empty",
			handle: func(c *gin.Context) {
				c.Error(validator.ValidationErrors{})
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"success":false,"error":[],"data":null}`,
		},
		{
			name: "validation errors - required symbol",
			handle: func(c *gin.Context) {
				type request struct {
					Symbol string `form:"symbol" binding:"required"`
				}

				var r request
				if err := c.ShouldBindQuery(&r); err != nil {
					c.Error(err)
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{"success":false,` +
				`"error":[{"field":"Symbol",` +
				`"message":"` +
				`Key: 'request.Symbol' Error:Field validation for 'Symbol' failed on the 'required' tag` +
				`"}],` +
				`"data":null}`,
		},
		{
			name: "custom error",
			handle: func(c *gin.Context) {
				c.Error(constant.ErrFeedStopped)
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody: `{"success":false,` +
				`"error":"dashboard engine is not running","data":null}`,
		},
		{
			name: "wrapped custom error",
			handle: func(c *gin.Context) {
				c.Error(errors.Join(errors.New("select"), constant.ErrNoSymbol))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{"success":false,` +
				`"error":"please provide symbol","data":null}`,
		},
		{
			name: "internal server error",
			handle: func(c *gin.Context) {
				c.Error(errors.New("unknown error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody: `{"success":false,` +
				`"error":"unknown error","data":null}`,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			_, engine := gin.CreateTestContext(recorder)

			engine.GET("/", Error(), tt.handle)
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			engine.ServeHTTP(recorder, r)

			assert.Equal(t, tt.expectedStatus, recorder.Code)
			assert.Equal(t, tt.expectedBody, recorder.Body.String())
		})
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name           string
		handle         func(c *gin.Context)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "handler returns on deadline",
			handle: func(c *gin.Context) {
				select {
				case <-c.Request.Context().Done():
					return
				case <-time.After(time.Second):
				}
				c.JSON(http.StatusOK, gin.H{"data": "late"})
			},
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   `{"success":false,"error":"request timed out","data":null}`,
		},
		{
			name: "handler ignores deadline without writing",
			handle: func(c *gin.Context) {
				time.Sleep(100 * time.Millisecond)
			},
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   `{"success":false,"error":"request timed out","data":null}`,
		},
		{
			name: "handler writes after deadline",
			handle: func(c *gin.Context) {
				time.Sleep(100 * time.Millisecond)
				c.JSON(http.StatusOK, gin.H{"data": "late"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"data":"late"}`,
		},
		{
			name: "fast handler",
			handle: func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"data": "ok"})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"data":"ok"}`,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Error())
			r.Use(Timeout(50 * time.Millisecond))
			r.GET("/", tt.handle)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestTimeoutMiddleware_HandlerFinishesBeforeResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// ハンドラが戻るまで応答は返らず、戻った後にコンテキストは触られない
	var finished atomic.Bool
	r := gin.New()
	r.Use(Error())
	r.Use(Timeout(20 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		<-c.Request.Context().Done()
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, finished.Load())
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
