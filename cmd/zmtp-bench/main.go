// Command zmtp-bench repeats handshake+send/recv against one or more
// PLAIN-secured ZMTP endpoints for a configured duration and reports
// throughput, exercising session.Client, its EndpointPool, circuit
// breaker, and endpoint selector together.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zmtp/zmtp/session"
	"github.com/go-zmtp/zmtp/wire"
)

func main() {
	var (
		endpoints   = flag.String("endpoints", "127.0.0.1:5555", "comma-separated list of ZMTP endpoints")
		username    = flag.String("username", "", "PLAIN username")
		password    = flag.String("password", "", "PLAIN password")
		duration    = flag.Duration("duration", 5*time.Second, "how long to run the benchmark")
		concurrency = flag.Int("concurrency", 4, "number of concurrent workers")
		maxConns    = flag.Int("max-conns", 8, "maximum pooled connections per endpoint")
		payloadSize = flag.Int("payload-size", 64, "application message payload size in bytes")
	)
	flag.Parse()

	endpointList := strings.Split(*endpoints, ",")

	client, err := session.NewClient(session.Config{
		Endpoints: endpointList,
		Username:  *username,
		Password:  *password,
		MaxSize:   int32(*maxConns),
		NewCircuitBreaker: session.NewCircuitBreakerConfig(
			10, 30*time.Second, 10*time.Second,
		),
	})
	if err != nil {
		log.Fatalf("zmtp-bench: building client: %v", err)
	}
	defer client.Close()

	payload := make([]byte, *payloadSize)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	var successes, failures int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			key := fmt.Sprintf("worker-%d", worker)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				var msg wire.Message
				if err := msg.InitSize(len(payload)); err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				copy(msg.Data(), payload)

				_, err := client.Send(ctx, key, &msg)
				msg.Close()
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				atomic.AddInt64(&successes, 1)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	total := successes + failures
	fmt.Printf("endpoints:    %s\n", *endpoints)
	fmt.Printf("duration:     %v\n", elapsed)
	fmt.Printf("concurrency:  %d\n", *concurrency)
	fmt.Printf("total ops:    %d\n", total)
	fmt.Printf("successes:    %d\n", successes)
	fmt.Printf("failures:     %d\n", failures)
	fmt.Printf("ops/sec:      %.1f\n", float64(total)/elapsed.Seconds())

	for _, stats := range client.Stats() {
		fmt.Printf("endpoint %s: total=%d idle=%d active=%d created=%d destroyed=%d breaker=%s\n",
			stats.Addr, stats.PoolStats.TotalConns, stats.PoolStats.IdleConns, stats.PoolStats.ActiveConns,
			stats.PoolStats.CreatedConns, stats.PoolStats.DestroyedConns, stats.CircuitBreakerState)
	}
}
