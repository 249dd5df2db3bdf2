package bucket

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkAllow_OneVisitor(b *testing.B) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for b.Loop() {
		_, _ = store.Allow(ctx, "visitor_ip:10.0.0.1", 1000, time.Minute)
	}
}

// BenchmarkAllow_ManyVisitors spreads load over distinct addresses, as a
// busy reception desk network would.
func BenchmarkAllow_ManyVisitors(b *testing.B) {
	store := NewInMemoryStore()
	ctx := context.Background()
	var n atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := n.Add(1)
			key := "visitor_ip:10.0." + strconv.FormatInt((i/256)%256, 10) + "." + strconv.FormatInt(i%256, 10)
			_, _ = store.Allow(ctx, key, 30, time.Minute)
		}
	})
}
