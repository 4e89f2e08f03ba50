package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/r-umemoto/anomaly-dashboard/pkg/api/constant"
	"github.com/r-umemoto/anomaly-dashboard/pkg/api/dto"
)

func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctxErr := c.Request.Context().Err()
		if ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				// 締め切り後でもハンドラが書いていれば何もしない
				if c.Writer.Written() {
					return
				}
				c.AbortWithStatusJSON(http.StatusGatewayTimeout, dto.Res{
					Success: false,
					Error:   "request timed out",
				})
				return
			}
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors[0]

		// - Validation error from requests' JSON binding
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			validationErrors := make([]dto.ErrorType, 0)
			for _, fe := range ve {
				validationErrors = append(validationErrors, dto.ErrorType{
					Field:   fe.Field(),
					Message: fe.Error(),
				})
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.Res{
				Success: false,
				Error:   validationErrors,
			})
			return
		}

		// - Custom error from `constant`
		var ce constant.CustomError
		if errors.As(err, &ce) {
			c.AbortWithStatusJSON(ce.StatusCode, dto.Res{
				Success: false,
				Error:   ce.Error(),
			})
			return
		}

		// - Unknown error, likely internal server error
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.Res{
			Success: false,
			Error:   err.Error(),
		})
	}
}
