package auctionhandler

import (
	"net/http"

	"liveauction/internal/http/middleware"
	"liveauction/internal/models"
	"liveauction/internal/ratelimit"
	"liveauction/internal/services/auction"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc        auction.IAuctionService
	bidLimiter ratelimit.Limiter
}

type Option func(*Handler)

// WithBidLimiter caps how often one actor may place bids.
func WithBidLimiter(l ratelimit.Limiter) Option {
	return func(h *Handler) { h.bidLimiter = l }
}

func New(svc auction.IAuctionService, opts ...Option) *Handler {
	h := &Handler{svc: svc}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Register(r gin.IRoutes) {
	auth := middleware.RequireActor()
	bidLimit := middleware.RateLimit(h.bidLimiter, ratelimit.BidKey)

	r.GET("/auctions", h.list)
	r.GET("/auctions/:id", h.info)
	r.GET("/auctions/:id/bids", h.bids)
	r.POST("/auctions", auth, h.create)
	r.POST("/auctions/:id/bids", auth, bidLimit, h.bid)
	r.POST("/auctions/:id/decision", auth, h.decide)
	r.POST("/auctions/:id/counter/response", auth, h.respond)
}

// @Summary		Create an auction
// @Description	Schedules a new auction owned by the caller.
// @Tags			Auctions
// @Param			body	body		auction.CreateAuctionInput	true	"Auction payload"
// @Success		201		{object}	models.Auction
// @Failure		400		{object}	ErrorResponse
// @Failure		401		{object}	ErrorResponse
// @Router			/auctions [post]
func (h *Handler) create(c *gin.Context) {
	var body auction.CreateAuctionInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	sellerID, _ := middleware.ActorID(c)

	a, err := h.svc.CreateAuction(c.Request.Context(), sellerID, body)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary		Get auction details
// @Description	Returns the auction with its current status, highest bid and negotiation state.
// @Tags			Auctions
// @Param			id	path		string	true	"Auction ID"
// @Success		200	{object}	auction.AuctionView
// @Failure		404	{object}	ErrorResponse
// @Router			/auctions/{id} [get]
func (h *Handler) info(c *gin.Context) {
	v, err := h.svc.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary		List auctions
// @Description	Retrieves a paginated list of auctions, optionally filtered by status or seller.
// @Tags			Auctions
// @Param			status		query		string	false	"Status filter"			Enums(SCHEDULED,LIVE,ENDED,CLOSED)
// @Param			seller_id	query		string	false	"Seller filter"
// @Param			limit		query		int		false	"Max results (0‑100)"	minimum(0)	maximum(100)	default(20)
// @Param			offset		query		int		false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200			{array}		auction.AuctionView
// @Failure		400			{object}	ErrorResponse
// @Failure		500			{object}	ErrorResponse
// @Router			/auctions [get]
func (h *Handler) list(c *gin.Context) {
	var q ListAuctionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.svc.ListAuctions(c.Request.Context(), auction.ListInput{
		Status:   models.Status(q.Status),
		SellerID: q.SellerID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		List bids
// @Description	Returns the bid ledger of an auction, highest first.
// @Tags			Bids
// @Param			id		path		string	true	"Auction ID"
// @Param			limit	query		int		false	"Max results (0‑200)"	minimum(0)	maximum(200)	default(50)
// @Success		200		{array}		models.Bid
// @Failure		404		{object}	ErrorResponse
// @Router			/auctions/{id}/bids [get]
func (h *Handler) bids(c *gin.Context) {
	var q ListBidsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.svc.ListBids(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Place a bid
// @Description	Caller bids on a live auction. The amount must reach the current minimum bid.
// @Tags			Bids
// @Param			id		path		string			true	"Auction ID"
// @Param			body	body		PlaceBidBody	true	"Bid payload"
// @Success		201		{object}	models.Bid
// @Failure		400		{object}	ErrorResponse
// @Failure		403		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		409		{object}	ErrorResponse
// @Failure		429		{object}	ErrorResponse
// @Router			/auctions/{id}/bids [post]
func (h *Handler) bid(c *gin.Context) {
	var body PlaceBidBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	bidderID, _ := middleware.ActorID(c)

	b, err := h.svc.PlaceBid(c.Request.Context(), c.Param("id"), bidderID, body.Amount)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary		Decide on the highest bid
// @Description	Seller accepts, rejects or counters the winning bid of an ended auction.
// @Tags			Negotiation
// @Param			id		path		string			true	"Auction ID"
// @Param			body	body		DecisionBody	true	"Decision payload"
// @Success		200		{object}	auction.NegotiationResult
// @Failure		400		{object}	ErrorResponse
// @Failure		403		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		409		{object}	ErrorResponse
// @Router			/auctions/{id}/decision [post]
func (h *Handler) decide(c *gin.Context) {
	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	actorID, _ := middleware.ActorID(c)

	res, err := h.svc.Decide(c.Request.Context(), c.Param("id"), actorID,
		models.DecisionAction(body.Action), body.CounterPrice)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary		Respond to a counter offer
// @Description	The winning bidder accepts or rejects the seller's counter offer.
// @Tags			Negotiation
// @Param			id		path		string				true	"Auction ID"
// @Param			body	body		CounterResponseBody	true	"Response payload"
// @Success		200		{object}	auction.NegotiationResult
// @Failure		403		{object}	ErrorResponse
// @Failure		404		{object}	ErrorResponse
// @Failure		409		{object}	ErrorResponse
// @Router			/auctions/{id}/counter/response [post]
func (h *Handler) respond(c *gin.Context) {
	var body CounterResponseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	actorID, _ := middleware.ActorID(c)

	res, err := h.svc.RespondToCounter(c.Request.Context(), c.Param("id"), actorID, *body.Accept)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
