package auction_state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"liveauction/internal/highbid"
	"liveauction/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisAuctionKeyPrefix       = "auc:"
	redisAuctionGoLiveKeyPrefix = "auc_l:"
	redisAuctionTimerKeyPrefix  = "auc_t:"
)

func Key(auctionID string) string { return redisAuctionKeyPrefix + auctionID }

// EventsChannel is the pub/sub channel the Redis functions publish frames on.
func EventsChannel(auctionID string) string { return Key(auctionID) + ":events" }

func GoLiveTimerKey(auctionID string) string { return redisAuctionGoLiveKeyPrefix + auctionID }
func EndTimerKey(auctionID string) string    { return redisAuctionTimerKeyPrefix + auctionID }

// TimerAuctionID extracts the auction id from an expired timer key.
func TimerAuctionID(key string) (string, bool) {
	for _, p := range []string{redisAuctionGoLiveKeyPrefix, redisAuctionTimerKeyPrefix} {
		if strings.HasPrefix(key, p) {
			return strings.TrimPrefix(key, p), true
		}
	}
	return "", false
}

// Store is the Redis-backed register. Every mutation is a Redis Function
// from the liveauction library, so each one is atomic across processes.
type Store struct {
	rdc redis.Cmdable
	now func() time.Time
}

var _ highbid.Register = (*Store)(nil)

func New(rdc redis.Cmdable) *Store { return &Store{rdc: rdc, now: time.Now} }

func (s *Store) Load(ctx context.Context, auctionID string) (highbid.State, error) {
	data, err := s.rdc.HGetAll(ctx, Key(auctionID)).Result()
	if err != nil {
		return highbid.State{}, err
	}
	return parseState(data), nil
}

func (s *Store) CompareAndSet(ctx context.Context, auctionID string, expect int64, next highbid.Pointer,
	deadline time.Time, pub highbid.Publication) (bool, error) {

	res, err := s.rdc.FCall(ctx, "hb_cas",
		[]string{Key(auctionID)},
		expect,
		next.Amount,
		next.BidderID,
		next.BidID,
		next.PlacedAt.UnixMilli(),
		deadline.UnixMilli(),
		string(pub.Accepted),
		string(pub.Outbid),
	).Slice()
	if err != nil {
		if strings.Contains(err.Error(), "auction_closed") {
			return false, highbid.ErrAuctionClosed
		}
		return false, err
	}
	return casApplied(res)
}

func (s *Store) Revert(ctx context.Context, auctionID string, failed, restore highbid.Pointer, body []byte) (bool, error) {
	n, err := s.rdc.FCall(ctx, "hb_revert",
		[]string{Key(auctionID)},
		failed.Version,
		failed.BidID,
		restore.Amount,
		restore.BidderID,
		restore.BidID,
		restore.PlacedAt.UnixMilli(),
		string(body),
	).Int()
	return n == 1, err
}

// Seed installs p as version 1 if the hash has no pointer version, which
// happens only when Redis lost the key. It reports whether p was written.
func (s *Store) Seed(ctx context.Context, auctionID string, p highbid.Pointer) (bool, error) {
	var placedAt int64
	if p.Exists() {
		placedAt = p.PlacedAt.UnixMilli()
	}
	n, err := s.rdc.FCall(ctx, "hb_seed",
		[]string{Key(auctionID)},
		p.Amount,
		p.BidderID,
		p.BidID,
		placedAt,
	).Int()
	return n == 1, err
}

// AdvanceStatus moves the status hint forward and publishes auction:ended
// the one time the hint reaches ENDED.
func (s *Store) AdvanceStatus(ctx context.Context, auctionID string, to models.Status, endedBody []byte) (bool, error) {
	n, err := s.rdc.FCall(ctx, "status_advance",
		[]string{Key(auctionID)},
		string(to),
		string(endedBody),
	).Int()
	return n == 1, err
}

func (s *Store) Publish(ctx context.Context, auctionID, event string, body []byte) (int64, error) {
	return s.rdc.FCall(ctx, "auction_publish",
		[]string{Key(auctionID)},
		event,
		string(body),
	).Int64()
}

// ArmTimers sets expiring keys whose keyspace expiry events wake the
// auction watcher at go-live and at the end of bidding.
func (s *Store) ArmTimers(ctx context.Context, auctionID string, goLiveAt, endsAt time.Time) error {
	now := s.now()
	if ttl := goLiveAt.Sub(now); ttl > 0 {
		if err := s.rdc.Set(ctx, GoLiveTimerKey(auctionID), 1, ttl).Err(); err != nil {
			return fmt.Errorf("arm go-live timer: %w", err)
		}
	}
	if ttl := endsAt.Sub(now); ttl > 0 {
		if err := s.rdc.Set(ctx, EndTimerKey(auctionID), 1, ttl).Err(); err != nil {
			return fmt.Errorf("arm end timer: %w", err)
		}
	}
	return nil
}

func parseState(data map[string]string) highbid.State {
	st := highbid.State{
		Status: models.Status(data["st"]),
		Seq:    atoi(data["seq"]),
	}
	st.Pointer.Version = atoi(data["ver"])
	if bidder := data["hbid"]; bidder != "" {
		st.Pointer.BidderID = bidder
		st.Pointer.Amount = atoi(data["hb"])
		st.Pointer.BidID = data["bid"]
		st.Pointer.PlacedAt = time.UnixMilli(atoi(data["hbat"])).UTC()
	}
	return st
}

func casApplied(res []interface{}) (bool, error) {
	if len(res) == 0 {
		return false, fmt.Errorf("hb_cas: empty reply")
	}
	ok, isInt := res[0].(int64)
	if !isInt {
		return false, fmt.Errorf("hb_cas: unexpected reply %T", res[0])
	}
	return ok == 1, nil
}

func atoi(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
