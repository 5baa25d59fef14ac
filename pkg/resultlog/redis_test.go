package resultlog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/ruslano69/tradesync/pkg/config"
)

func TestPublish(t *testing.T) {
	mr := miniredis.RunT(t)

	p := NewRedisPublisher(config.ResultLogConfig{
		Type:    "redis",
		Address: mr.Addr(),
		TTL:     60,
	})
	defer p.Close()

	started := time.Now().Add(-2 * time.Second)
	result := SyncResult{
		Pipeline:   "trade-sync",
		Status:     "committed",
		StartedAt:  started,
		FinishedAt: time.Now(),
		DurationMs: 2000,
		RowsTotal:  120,
		RowsAdded:  5,
		Duplicates: 3,
	}

	if err := p.Publish(context.Background(), result); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	raw, err := mr.Get("tradesync:sync:trade-sync:state")
	if err != nil {
		t.Fatalf("state key not set: %v", err)
	}

	var got SyncResult
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("state payload is not valid JSON: %v", err)
	}
	if got.Status != "committed" || got.RowsAdded != 5 {
		t.Errorf("unexpected payload: %+v", got)
	}

	ttl := mr.TTL("tradesync:sync:trade-sync:state")
	if ttl <= 0 || ttl > 60*time.Second {
		t.Errorf("unexpected TTL: %v", ttl)
	}
}

func TestPublishFailedRun(t *testing.T) {
	mr := miniredis.RunT(t)

	p := NewRedisPublisher(config.ResultLogConfig{
		Type: "redis", Address: mr.Addr(), TTL: 60,
	})
	defer p.Close()

	errStr := "master update failed: bucket gone"
	result := SyncResult{
		Pipeline: "trade-sync",
		Status:   "failed",
		Error:    &errStr,
	}

	if err := p.Publish(context.Background(), result); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	raw, _ := mr.Get("tradesync:sync:trade-sync:state")
	var got SyncResult
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Error == nil || *got.Error != errStr {
		t.Errorf("error not published: %+v", got)
	}
}
