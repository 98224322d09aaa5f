package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"liveauction/internal/apperr"
	"liveauction/internal/events"
	"liveauction/internal/http/middleware"
	"liveauction/internal/metrics"
	"liveauction/internal/ratelimit"
	"liveauction/internal/services/auction"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 12 * time.Second
	pingPeriod      = 3 * time.Second // must be < pongWait
	maxMessageSize  = 512
	dispatchTimeout = 1900 * time.Millisecond
)

type WsServer struct {
	hub        *Hub
	feed       Feed
	router     *Router
	upgrader   websocket.Upgrader
	auctionSvc auction.IAuctionService
	bidLimiter ratelimit.Limiter
}

type ServerOption func(*WsServer)

// WithBidLimiter applies the same per-actor bid cap as the REST route.
func WithBidLimiter(l ratelimit.Limiter) ServerOption {
	return func(s *WsServer) { s.bidLimiter = l }
}

func NewWsServer(h *Hub, feed Feed, auctionSvc auction.IAuctionService, opts ...ServerOption) *WsServer {
	srv := &WsServer{
		hub:    h,
		feed:   feed,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
		auctionSvc: auctionSvc,
	}
	for _, o := range opts {
		o(srv)
	}
	srv.registerHandlers() // all WS events configured here
	return srv
}

// ConnContext is the per-connection state handed to event handlers.
type ConnContext struct {
	UserID string

	conn      *clientConn
	mu        sync.Mutex
	auctionID string
}

func (cc *ConnContext) AuctionID() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.auctionID
}

// Handle godoc
// @Summary      Auction room websocket
// @Description  Upgrades to a websocket. With auction_id the connection joins that room right away; otherwise send auction:join.
// @Tags         realtime
// @Param        auction_id  query  string  false  "Auction to join"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (s *WsServer) Handle(ginCtx *gin.Context) {
	userID, ok := middleware.ActorID(ginCtx)
	if !ok {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	auctionID := ginCtx.Query("auction_id")
	if auctionID != "" {
		if _, err := s.auctionSvc.GetAuction(ginCtx.Request.Context(), auctionID); err != nil {
			status := apperr.HTTPStatus(err)
			if status == http.StatusNotFound {
				status = http.StatusBadRequest
			}
			ginCtx.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)

	cc := &ConnContext{UserID: userID, conn: newClientConn(rawConn)}
	go cc.conn.writePump()

	if auctionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		_, err := s.join(ctx, cc, auctionID)
		cancel()
		if err != nil {
			cc.conn.enqueue(errorFrame(err))
		}
	}

	go s.reader(cc)
}

func (s *WsServer) registerHandlers() {
	Register(
		s.router,
		events.AuctionJoin,
		func(ctx context.Context, cc *ConnContext, req JoinRequest) (JoinAck, error) {
			if req.AuctionID == "" {
				return JoinAck{}, apperr.Validation("auctionId is required")
			}
			seq, err := s.join(ctx, cc, req.AuctionID)
			return JoinAck{AuctionID: req.AuctionID, Seq: seq}, err
		},
	)

	Register(
		s.router,
		events.BidPlace,
		func(ctx context.Context, cc *ConnContext, req BidRequest) (BidAck, error) {
			id := req.AuctionID
			if id == "" {
				id = cc.AuctionID()
			}
			if id == "" {
				return BidAck{}, apperr.Validation("auctionId is required")
			}
			if err := ratelimit.Check(ctx, s.bidLimiter, ratelimit.BidKey(cc.UserID)); err != nil {
				return BidAck{}, err
			}
			bid, err := s.auctionSvc.PlaceBid(ctx, id, cc.UserID, req.Amount)
			return BidAck{Bid: bid}, err
		},
	)
}

// join moves the connection into the auction's room: the room starts
// buffering, the feed subscription is confirmed, the snapshot is read and
// only then is the connection attached.
func (s *WsServer) join(ctx context.Context, cc *ConnContext, auctionID string) (int64, error) {
	s.leave(cc)

	r := s.hub.acquire(auctionID)
	if err := s.feed.Subscribe(ctx, auctionID); err != nil {
		s.hub.release(auctionID, nil)
		return 0, apperr.Internal("subscribe to auction", err)
	}
	snap, err := s.auctionSvc.Snapshot(ctx, auctionID)
	if err != nil {
		s.feed.Unsubscribe(auctionID)
		s.hub.release(auctionID, nil)
		return 0, err
	}
	body, err := json.Marshal(snap.State)
	if err != nil {
		s.feed.Unsubscribe(auctionID)
		s.hub.release(auctionID, nil)
		return 0, apperr.Internal("encode snapshot", err)
	}
	if !r.attach(cc.conn, events.Encode(events.AuctionState, snap.Seq, body), snap.Seq) {
		s.feed.Unsubscribe(auctionID)
		s.hub.release(auctionID, cc.conn)
		return 0, apperr.Internal("connection closed", nil)
	}

	cc.mu.Lock()
	cc.auctionID = auctionID
	cc.mu.Unlock()
	metrics.RoomSubscribers.Inc()
	zap.L().Debug("ws.joined",
		zap.String("auction_id", auctionID),
		zap.String("user_id", cc.UserID),
		zap.Int64("seq", snap.Seq),
	)
	return snap.Seq, nil
}

func (s *WsServer) leave(cc *ConnContext) {
	cc.mu.Lock()
	id := cc.auctionID
	cc.auctionID = ""
	cc.mu.Unlock()
	if id == "" {
		return
	}
	s.hub.release(id, cc.conn)
	s.feed.Unsubscribe(id)
	metrics.RoomSubscribers.Dec()
}

func (s *WsServer) reader(cc *ConnContext) {
	defer func() {
		s.leave(cc)
		cc.conn.close()
	}()

	conn := cc.conn.rawConn
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			cc.conn.enqueue(errorFrame(apperr.Validation("malformed frame")))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		res, err := s.router.dispatch(ctx, cc, env.Event, env.Body)
		cancel()

		// error -> {"event":"error","body":{...}}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				zap.L().Error("ws.dispatch", zap.String("event", env.Event), zap.Error(err))
			}
			cc.conn.enqueue(errorFrame(err))
			continue
		}

		// success -> {"event":"<evt>-ack","body":{...}}
		reply, err := replyFrame(env.Event+"-ack", res)
		if err != nil {
			zap.L().Error("ws.encode_reply", zap.String("event", env.Event), zap.Error(err))
			continue
		}
		cc.conn.enqueue(reply)
	}
}
