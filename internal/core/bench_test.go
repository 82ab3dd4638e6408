package core

import (
	"context"
	"fmt"
	"testing"
)

func benchmarkDirectDelivery(b *testing.B, senders int) {
	r := NewRegistry()
	ctx := context.Background()

	target := NewOutbox(DefaultQueueSize)
	if err := r.Register(0, "target", target, func() {}); err != nil {
		b.Fatal(err)
	}
	for i := 1; i <= senders; i++ {
		if err := r.Register(ConnID(i), fmt.Sprintf("sender-%d", i), NewOutbox(1), func() {}); err != nil {
			b.Fatal(err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _i := 0; _i < b.N; _i++ {
			<-target.C()
		}
	}()

	router := NewRouter(r, "")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender := ConnID(i%senders + 1)
		out := router.Route(sender, "sender", "TO target payload")
		for _, d := range out.Deliveries {
			if err := r.Deliver(ctx, d.To, d.Payload); err != nil {
				b.Fatal(err)
			}
		}
	}
	<-done
}

func BenchmarkDirectDelivery_1(b *testing.B)   { benchmarkDirectDelivery(b, 1) }
func BenchmarkDirectDelivery_100(b *testing.B) { benchmarkDirectDelivery(b, 100) }
