package main

import (
	"context"
	"testing"
	"time"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/dedup"
	"github.com/rs/zerolog"
)

func TestNewDeduperWithoutRedis(t *testing.T) {
	t.Parallel()
	d := newDeduper(context.Background(), config.RedisConfig{DedupTTL: time.Hour}, zerolog.Nop())
	if _, ok := d.(*dedup.Memory); !ok {
		t.Fatalf("newDeduper() = %T, want *dedup.Memory", d)
	}
}

func TestNewDeduperFallsBackWhenRedisUnreachable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d := newDeduper(ctx, config.RedisConfig{Addr: "127.0.0.1:1", DedupTTL: time.Hour}, zerolog.Nop())
	if _, ok := d.(*dedup.Memory); !ok {
		t.Fatalf("newDeduper() = %T, want *dedup.Memory", d)
	}
	seen, err := d.Seen(ctx, "7")
	if err != nil || seen {
		t.Fatalf("first Seen = %v, %v; want false, nil", seen, err)
	}
	if seen, _ := d.Seen(ctx, "7"); !seen {
		t.Fatal("second Seen = false, want true")
	}
}
