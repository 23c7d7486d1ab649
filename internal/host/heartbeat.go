package host

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/polycephaly/internal/logging"
	"github.com/Iron-Ham/polycephaly/internal/messenger"
	"github.com/Iron-Ham/polycephaly/internal/threads"
)

// Payload kinds used by the built-in heartbeat exchange.
const (
	KindHeartbeat = "heartbeat"
	KindAck       = "ack"
)

// HeartbeatStats is a snapshot of one process's heartbeat counters.
type HeartbeatStats struct {
	Sent          uint64
	SendFailures  uint64
	Answered      uint64
	Acked         uint64
	LastRoundTrip time.Duration
}

type heartbeatCounters struct {
	sent          atomic.Uint64
	sendFailures  atomic.Uint64
	answered      atomic.Uint64
	acked         atomic.Uint64
	lastRoundTrip atomic.Int64
}

func (c *heartbeatCounters) snapshot() HeartbeatStats {
	return HeartbeatStats{
		Sent:          c.sent.Load(),
		SendFailures:  c.sendFailures.Load(),
		Answered:      c.answered.Load(),
		Acked:         c.acked.Load(),
		LastRoundTrip: time.Duration(c.lastRoundTrip.Load()),
	}
}

// heartbeatWorker sends one heartbeat to every peer per interval until ctx ends.
func heartbeatWorker(router *messenger.Router, name string, peers []string, interval time.Duration,
	counters *heartbeatCounters, logger *logging.Logger) threads.Worker {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var seq uint64
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			seq++
			for _, peer := range peers {
				_, err := router.Send(ctx, name, messenger.Envelope{
					Recipient: peer,
					Payload: map[string]any{
						"kind":    KindHeartbeat,
						"seq":     seq,
						"sent_at": time.Now(),
					},
				})
				if err != nil {
					counters.sendFailures.Add(1)
					logger.Warn("heartbeat not sent", "peer", peer, "seq", seq, "error", err)
					continue
				}
				counters.sent.Add(1)
			}
		}
	}
}

// heartbeatFilters returns the filters answering heartbeats and recording acks
// for the named process.
func heartbeatFilters(router *messenger.Router, name string, counters *heartbeatCounters) []messenger.Filter {
	answer := func(ctx context.Context, env *messenger.Envelope) error {
		reply := messenger.Reply(env, nil)
		reply.Payload = map[string]any{
			"kind":    KindAck,
			"seq":     env.Payload["seq"],
			"sent_at": env.Payload["sent_at"],
		}
		if _, err := router.Send(ctx, name, reply); err != nil {
			return err
		}
		counters.answered.Add(1)
		return nil
	}

	record := func(_ context.Context, env *messenger.Envelope) error {
		counters.acked.Add(1)
		if sentAt, ok := env.Payload["sent_at"].(time.Time); ok {
			counters.lastRoundTrip.Store(int64(time.Since(sentAt)))
		}
		return nil
	}

	return []messenger.Filter{
		{Process: name, Name: KindHeartbeat, Match: messenger.MatchKind(KindHeartbeat), Callback: answer},
		{Process: name, Name: KindAck, Match: messenger.MatchKind(KindAck), Callback: record},
	}
}
