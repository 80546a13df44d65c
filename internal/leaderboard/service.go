// Package leaderboard ranks riders by the points they earned in the current
// ISO week.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/ride"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Weekly keys outlive their week by a day so late reads still resolve.
const keyTTL = 8 * 24 * time.Hour

type ProfileSource interface {
	Get(ctx context.Context, userID string) (profile.Profile, error)
}

type StatsSource interface {
	Weekly(ctx context.Context, userID string) (ride.CoachStats, error)
}

type Board struct {
	rdb      *redis.Client
	profiles ProfileSource
	stats    StatsSource
	log      logrus.FieldLogger
	now      func() time.Time

	// local mirrors this process's credits for the current week only. It is
	// the board when rdb is nil and the fallback when Redis is unreachable.
	mu    sync.Mutex
	local map[string]map[string]int
}

// NewBoard keeps scores in Redis when rdb is non-nil and in process otherwise.
func NewBoard(rdb *redis.Client, profiles ProfileSource, stats StatsSource, log logrus.FieldLogger) *Board {
	return &Board{
		rdb:      rdb,
		profiles: profiles,
		stats:    stats,
		log:      log,
		now:      time.Now,
		local:    map[string]map[string]int{},
	}
}

func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("leaderboard:%d-W%02d", year, week)
}

// Add credits points to userID for the current week.
func (b *Board) Add(ctx context.Context, userID string, points int) error {
	key := WeekKey(b.now())
	b.addLocal(key, userID, points)
	if b.rdb == nil {
		return nil
	}

	pipe := b.rdb.TxPipeline()
	pipe.ZIncrBy(ctx, key, float64(points), userID)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard add: %w", err)
	}
	return nil
}

// Top returns the n best riders of the current week, rank 1 first.
func (b *Board) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	key := WeekKey(b.now())

	var entries []Entry
	if b.rdb == nil {
		entries = b.localTop(key, n)
	} else {
		zs, err := b.rdb.ZRevRangeWithScores(ctx, key, 0, int64(n-1)).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("leaderboard top: %w", err)
		case err != nil:
			b.log.WithError(err).Warn("leaderboard redis unavailable, serving local scores")
			entries = b.localTop(key, n)
		default:
			entries = make([]Entry, 0, len(zs))
			for _, z := range zs {
				member, _ := z.Member.(string)
				entries = append(entries, Entry{UserID: member, Points: int(z.Score)})
			}
		}
	}

	for i := range entries {
		entries[i].Rank = i + 1
		b.enrich(ctx, &entries[i])
	}
	return entries, nil
}

// addLocal drops every week but key, so the mirror never outgrows one week.
func (b *Board) addLocal(key, userID string, points int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	week, ok := b.local[key]
	if !ok {
		for old := range b.local {
			delete(b.local, old)
		}
		week = map[string]int{}
		b.local[key] = week
	}
	week[userID] += points
}

func (b *Board) localTop(key string, n int) []Entry {
	b.mu.Lock()
	week := b.local[key]
	entries := make([]Entry, 0, len(week))
	for userID, points := range week {
		entries = append(entries, Entry{UserID: userID, Points: points})
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// enrich fills display fields; lookup failures fall back to defaults.
func (b *Board) enrich(ctx context.Context, e *Entry) {
	e.Name = profile.Default().Name
	if b.profiles != nil {
		if p, err := b.profiles.Get(ctx, e.UserID); err == nil {
			e.Name = p.Name
		}
	}
	if b.stats != nil {
		if s, err := b.stats.Weekly(ctx, e.UserID); err == nil {
			e.SafetyScore = s.AvgSafetyScore
		}
	}
}
