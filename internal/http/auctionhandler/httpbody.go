package auctionhandler

import (
	"net/http"

	"liveauction/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlaceBidBody struct {
	Amount int64 `json:"amount" binding:"required,gt=0" example:"550"`
} // @name PlaceBidRequest

type DecisionBody struct {
	Action       string `json:"action"       binding:"required,oneof=ACCEPT REJECT COUNTER" example:"COUNTER"`
	CounterPrice *int64 `json:"counterPrice" binding:"omitempty,gt=0"                        example:"750"`
} // @name DecisionRequest

type CounterResponseBody struct {
	Accept *bool `json:"accept" binding:"required" example:"true"`
} // @name CounterResponseRequest

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
} // @name ErrorResponse

type ListAuctionsQuery struct {
	Status   string `form:"status"           binding:"omitempty,oneof=SCHEDULED LIVE ENDED CLOSED"`
	SellerID string `form:"seller_id"`
	Limit    int    `form:"limit,default=20" binding:"gte=0,lte=100"`
	Offset   int    `form:"offset,default=0" binding:"gte=0"`
} // @name ListAuctionsQuery

type ListBidsQuery struct {
	Limit int `form:"limit,default=50" binding:"gte=0,lte=200"`
} // @name ListBidsQuery

// Fail writes err with the status its kind maps to. Internal failures are
// logged and reported without their cause.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	resp := ErrorResponse{
		Error:   err.Error(),
		Code:    apperr.KindOf(err).String(),
		Details: apperr.DetailsOf(err),
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("http.internal",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		resp.Error = "internal error"
		resp.Details = nil
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: err.Error(),
		Code:  apperr.KindValidation.String(),
	})
}
