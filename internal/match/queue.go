package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

type QueueEntry struct {
	Conn       string
	Player     string
	Key        QueueKey
	EnqueuedAt time.Time
}

// EnqueueResult is either Waiting (Paired false) or a pairing of the oldest
// waiting entry (Opponent) with the new one (Entry).
type EnqueueResult struct {
	Paired   bool
	Opponent QueueEntry
	Entry    QueueEntry
}

type BucketDepth struct {
	GameType string `json:"game_type"`
	Stake    int64  `json:"stake"`
	Waiting  int    `json:"waiting"`
}

// Queue holds FIFO buckets of waiting connections.
type Queue struct {
	mu       sync.Mutex
	buckets  map[QueueKey][]QueueEntry
	byConn   map[string]QueueKey
	byPlayer map[string]string
	now      func() time.Time
}

func NewQueue() *Queue {
	return &Queue{
		buckets:  map[QueueKey][]QueueEntry{},
		byConn:   map[string]QueueKey{},
		byPlayer: map[string]string{},
		now:      time.Now,
	}
}

func (q *Queue) Enqueue(e QueueEntry) (EnqueueResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byConn[e.Conn]; ok {
		return EnqueueResult{}, ErrAlreadyActive
	}
	if _, ok := q.byPlayer[e.Player]; ok {
		return EnqueueResult{}, ErrAlreadyActive
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = q.now()
	}

	bucket := q.buckets[e.Key]
	if len(bucket) > 0 {
		opponent := bucket[0]
		q.setBucket(e.Key, bucket[1:])
		delete(q.byConn, opponent.Conn)
		delete(q.byPlayer, opponent.Player)
		queueWaiting.Add(-1)
		return EnqueueResult{Paired: true, Opponent: opponent, Entry: e}, nil
	}

	q.buckets[e.Key] = append(bucket, e)
	q.byConn[e.Conn] = e.Key
	q.byPlayer[e.Player] = e.Conn
	queueWaiting.Add(1)
	return EnqueueResult{Entry: e}, nil
}

// Dequeue removes the connection's entry. Absent connections are a no-op.
func (q *Queue) Dequeue(conn string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key, ok := q.byConn[conn]
	if !ok {
		return false
	}
	bucket := q.buckets[key]
	for i, e := range bucket {
		if e.Conn != conn {
			continue
		}
		delete(q.byPlayer, e.Player)
		rest := make([]QueueEntry, 0, len(bucket)-1)
		rest = append(rest, bucket[:i]...)
		rest = append(rest, bucket[i+1:]...)
		q.setBucket(key, rest)
		break
	}
	delete(q.byConn, conn)
	queueWaiting.Add(-1)
	return true
}

func (q *Queue) Queued(conn string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byConn[conn]
	return ok
}

func (q *Queue) Depths() []BucketDepth {
	q.mu.Lock()
	out := lo.MapToSlice(q.buckets, func(k QueueKey, entries []QueueEntry) BucketDepth {
		return BucketDepth{GameType: k.GameType, Stake: k.Stake, Waiting: len(entries)}
	})
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].GameType != out[j].GameType {
			return out[i].GameType < out[j].GameType
		}
		return out[i].Stake < out[j].Stake
	})
	return out
}

// ConnectionClosed drops any waiting entry held by the connection.
func (q *Queue) ConnectionClosed(_ context.Context, conn, _ string) {
	q.Dequeue(conn)
}

func (q *Queue) setBucket(key QueueKey, entries []QueueEntry) {
	if len(entries) == 0 {
		delete(q.buckets, key)
		return
	}
	q.buckets[key] = entries
}
