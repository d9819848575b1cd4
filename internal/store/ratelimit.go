package store

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/wednerevents/inquiry-backend/internal/ratelimit"
)

// allowQuery counts one request in a single statement. The row lock taken by
// ON CONFLICT DO UPDATE makes the check-and-increment atomic per key across
// every process sharing the database.
//
// $4 is the oldest window_start still considered live; anything at or before
// it has expired and is restarted at $3 with hits = 1. hits saturates at $5
// (max + 1) so a rejected client does not grow the counter forever.
const allowQuery = `
INSERT INTO rate_limit_windows AS w (client_key, client_addr, window_start, hits)
VALUES ($1, $2, $3, 1)
ON CONFLICT (client_key) DO UPDATE SET
	client_addr  = EXCLUDED.client_addr,
	window_start = CASE WHEN w.window_start <= $4 THEN EXCLUDED.window_start ELSE w.window_start END,
	hits         = CASE WHEN w.window_start <= $4 THEN 1 ELSE LEAST(w.hits + 1, $5) END
RETURNING window_start, hits`

const sweepQuery = `DELETE FROM rate_limit_windows WHERE window_start <= $1`

// Allow satisfies ratelimit.Limiter.
func (s *Store) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	now := s.now().UTC()

	var (
		start time.Time
		hits  int
	)
	err := s.pool.QueryRowContext(ctx, allowQuery,
		key,
		clientAddr(key),
		now,
		now.Add(-s.window),
		s.max+1,
	).Scan(&start, &hits)
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("store: count request: %w", err)
	}

	return ratelimit.NewDecision(hits, s.max, start, s.window), nil
}

// Sweep satisfies ratelimit.Sweeper.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	res, err := s.pool.ExecContext(ctx, sweepQuery, s.now().UTC().Add(-s.window))
	if err != nil {
		return 0, fmt.Errorf("store: sweep windows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: sweep rows affected: %w", err)
	}
	return int(n), nil
}

// clientAddr stores the key in the INET column when it is an IP address.
// Keys that are not addresses (e.g. behind an unusual proxy) leave it NULL.
func clientAddr(key string) pqtype.Inet {
	ip := net.ParseIP(key)
	if ip == nil {
		return pqtype.Inet{}
	}
	bits := 8 * net.IPv6len
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 8*net.IPv4len
	}
	return pqtype.Inet{
		IPNet: net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}
