package ledger

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func marshalForTest(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func TestCachedAdapter_ServesFromCacheOnSecondRead(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	msg := Message{
		Sender:          "0xAAAA000000000000000000000000000000000000",
		Receiver:        "0xBBBB000000000000000000000000000000000000",
		ConditionMask:   MaskTime,
		RequiredPayment: big.NewInt(0),
		PaidAmount:      big.NewInt(0),
	}

	// Seed the cache directly to avoid needing a live chain client in inner.
	ca := NewCachedAdapter(nil, rdb, time.Minute)
	raw, err := marshalForTest(msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := rdb.Set(ctx, cacheKey(big.NewInt(7)), raw, time.Minute).Err(); err != nil {
		t.Fatal(err)
	}

	got, err := ca.GetMessage(ctx, big.NewInt(7), msg.Sender)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sender != msg.Sender {
		t.Fatalf("unexpected sender: %s", got.Sender)
	}
}

func TestCachedAdapter_RejectsUnauthorizedViewer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	msg := Message{
		Sender:   "0xAAAA000000000000000000000000000000000000",
		Receiver: "0xBBBB000000000000000000000000000000000000",
	}
	ca := NewCachedAdapter(nil, rdb, time.Minute)
	raw, _ := marshalForTest(msg)
	rdb.Set(ctx, cacheKey(big.NewInt(9)), raw, time.Minute)

	_, err := ca.GetMessage(ctx, big.NewInt(9), "0xCCCC000000000000000000000000000000000000")
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
