// Package leaderboard ranks students by total XP.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Entry is one ranked student.
type Entry struct {
	StudentID string `json:"student_id"`
	XP        int    `json:"xp"`
	Rank      int    `json:"rank"`
}

// Board keeps XP totals per student.
type Board interface {
	// Add increments the student's XP by delta.
	Add(ctx context.Context, studentID string, delta int) error
	// Top returns the best n students, highest XP first.
	Top(ctx context.Context, n int) ([]Entry, error)
	// Rank returns the student's 1-based rank, or -1 when unranked.
	Rank(ctx context.Context, studentID string) (int, error)
}

// Redis stores the board in a sorted set.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis creates a board stored under key.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	return &Redis{client: client, key: key}
}

func (b *Redis) Add(ctx context.Context, studentID string, delta int) error {
	if err := b.client.ZIncrBy(ctx, b.key, float64(delta), studentID).Err(); err != nil {
		return fmt.Errorf("leaderboard add: %w", err)
	}
	return nil
}

func (b *Redis) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	results, err := b.client.ZRevRangeWithScores(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		entries[i] = Entry{StudentID: member, XP: int(z.Score), Rank: i + 1}
	}
	return entries, nil
}

func (b *Redis) Rank(ctx context.Context, studentID string) (int, error) {
	rank, err := b.client.ZRevRank(ctx, b.key, studentID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return int(rank) + 1, nil
}

// Memory is an in-process board for single-node deployments and tests.
type Memory struct {
	mu sync.Mutex
	xp map[string]int
}

// NewMemory creates an empty board.
func NewMemory() *Memory {
	return &Memory{xp: make(map[string]int)}
}

func (b *Memory) Add(_ context.Context, studentID string, delta int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.xp[studentID] += delta
	return nil
}

func (b *Memory) Top(_ context.Context, n int) ([]Entry, error) {
	ranked := b.ranked()
	if n < len(ranked) {
		ranked = ranked[:max(n, 0)]
	}
	return ranked, nil
}

func (b *Memory) Rank(_ context.Context, studentID string) (int, error) {
	for _, e := range b.ranked() {
		if e.StudentID == studentID {
			return e.Rank, nil
		}
	}
	return -1, nil
}

// ranked orders by XP descending then id descending, matching ZREVRANGE.
func (b *Memory) ranked() []Entry {
	b.mu.Lock()
	entries := make([]Entry, 0, len(b.xp))
	for id, xp := range b.xp {
		entries = append(entries, Entry{StudentID: id, XP: xp})
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].StudentID > entries[j].StudentID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
