package bidfeed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"liveauction/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	Stream       = "bids_stream"
	streamMaxLen = 100_000
	readCount    = 100
	readBlock    = 2 * time.Second
	retryDelay   = time.Second
)

// Observer consumes committed bids read back from the stream.
type Observer interface {
	OnBidAccepted(ctx context.Context, e models.BidAccepted)
}

// Producer appends every committed bid to the Redis stream. Any node in
// the consumer group may then turn it into notifications.
type Producer struct {
	rdc redis.Cmdable
}

func NewProducer(rdc redis.Cmdable) *Producer { return &Producer{rdc: rdc} }

func (p *Producer) OnBidAccepted(ctx context.Context, e models.BidAccepted) {
	if err := p.rdc.XAdd(ctx, xaddArgs(e)).Err(); err != nil {
		zap.L().Error("bidfeed.xadd",
			zap.String("auction_id", e.AuctionID),
			zap.String("bid_id", e.Bid.ID),
			zap.Error(err),
		)
	}
}

func xaddArgs(e models.BidAccepted) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: Stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: []interface{}{
			"aid", e.AuctionID,
			"title", e.AuctionTitle,
			"seller", e.SellerID,
			"bid", e.Bid.ID,
			"bidder", e.Bid.BidderID,
			"amount", strconv.FormatInt(e.Bid.Amount, 10),
			"at", strconv.FormatInt(e.Bid.CreatedAt.UnixMilli(), 10),
			"prev", e.PreviousBidderID,
			"prevamt", strconv.FormatInt(e.PreviousAmount, 10),
		},
	}
}

func parse(m redis.XMessage) (models.BidAccepted, error) {
	str := func(k string) string {
		v, _ := m.Values[k].(string)
		return v
	}
	amount, err := strconv.ParseInt(str("amount"), 10, 64)
	if err != nil {
		return models.BidAccepted{}, fmt.Errorf("entry %s: amount: %w", m.ID, err)
	}
	at, _ := strconv.ParseInt(str("at"), 10, 64)
	prevAmt, _ := strconv.ParseInt(str("prevamt"), 10, 64)

	e := models.BidAccepted{
		AuctionID:    str("aid"),
		AuctionTitle: str("title"),
		SellerID:     str("seller"),
		Bid: models.Bid{
			ID:        str("bid"),
			AuctionID: str("aid"),
			BidderID:  str("bidder"),
			Amount:    amount,
			CreatedAt: time.UnixMilli(at).UTC(),
		},
		PreviousBidderID: str("prev"),
		PreviousAmount:   prevAmt,
	}
	if e.AuctionID == "" || e.Bid.BidderID == "" {
		return e, fmt.Errorf("entry %s: missing auction or bidder", m.ID)
	}
	return e, nil
}

// Consumer reads the stream as part of a consumer group, so each bid is
// handled by exactly one node and acknowledged after handling.
type Consumer struct {
	rdc      redis.Cmdable
	group    string
	name     string
	observer Observer
	retry    time.Duration
}

func NewConsumer(rdc redis.Cmdable, group, name string, o Observer) *Consumer {
	return &Consumer{rdc: rdc, group: group, name: name, observer: o, retry: retryDelay}
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.rdc.XGroupCreateMkStream(ctx, Stream, c.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Run tails the stream until ctx is cancelled. Entries left pending by a
// crashed consumer are re-read first.
func (c *Consumer) Run(ctx context.Context) {
	if err := c.EnsureGroup(ctx); err != nil {
		zap.L().Error("bidfeed.group_create", zap.Error(err))
		return
	}
	go c.loop(ctx)
}

func (c *Consumer) loop(ctx context.Context) {
	start := "0"
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := c.ReadOnce(ctx, start)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("bidfeed.xreadgroup", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retry):
			}
			continue
		}
		if start == "0" && n == 0 {
			start = ">"
		}
	}
}

// ReadOnce reads one batch starting at id ("0" for this consumer's pending
// entries, ">" for new ones), hands each entry to the observer and acks it.
func (c *Consumer) ReadOnce(ctx context.Context, id string) (int, error) {
	res, err := c.rdc.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{Stream, id},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	if len(res) == 0 {
		return 0, nil
	}

	msgs := res[0].Messages
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		e, err := parse(m)
		if err != nil {
			zap.L().Warn("bidfeed.bad_entry", zap.Error(err))
		} else {
			c.observer.OnBidAccepted(ctx, e)
		}
		ids = append(ids, m.ID)
	}
	if len(ids) > 0 {
		if err := c.rdc.XAck(ctx, Stream, c.group, ids...).Err(); err != nil {
			return len(msgs), err
		}
	}
	return len(msgs), nil
}
