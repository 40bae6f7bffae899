package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/models"
)

const ratingTopSize = 3

// StarValue is the collection value of one revealed magnet per star tier.
var StarValue = map[int]int{1: 150, 2: 350, 3: 700}

// RatingEntry is one participant in the rating.
type RatingEntry struct {
	ClientID        uuid.UUID `json:"-"`
	Name            string    `json:"name"`
	TotalMagnets    int       `json:"total_magnets"`
	CollectionValue int       `json:"collection_value"`
	lastMagnetAt    time.Time
}

// Rating is a client's position among registered participants.
type Rating struct {
	RankMagnets       *int          `json:"rank_magnets"`
	RankValue         *int          `json:"rank_value"`
	TotalParticipants int           `json:"total_participants"`
	MyCollectionValue int           `json:"my_collection_value"`
	TopMagnets        []RatingEntry `json:"top_magnets"`
	TopValue          []RatingEntry `json:"top_value"`
}

type ratingSnapshot struct {
	byMagnets []RatingEntry
	byValue   []RatingEntry
	builtAt   time.Time
}

// RatingCache keeps the participant rating in memory for a TTL.
// Concurrent refreshes are collapsed into one query.
type RatingCache struct {
	db    *gorm.DB
	clock Clock
	ttl   time.Duration

	mu         sync.RWMutex
	snapshot   *ratingSnapshot
	generation uint64

	group singleflight.Group
}

// NewRatingCache constructs RatingCache.
func NewRatingCache(db *gorm.DB, clock Clock, ttl time.Duration) *RatingCache {
	if clock == nil {
		clock = SystemClock
	}
	return &RatingCache{db: db, clock: clock, ttl: ttl}
}

// Invalidate drops the cached snapshot.
func (c *RatingCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.generation++
	c.mu.Unlock()
}

// Rating returns the rating as seen by a client. Ranks are nil for clients
// that are not registered or not found.
func (c *RatingCache) Rating(ctx context.Context, clientID uuid.UUID) (*Rating, error) {
	snap, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	rating := &Rating{
		TotalParticipants: len(snap.byMagnets),
		TopMagnets:        topEntries(snap.byMagnets),
		TopValue:          topEntries(snap.byValue),
	}
	for i, e := range snap.byMagnets {
		if e.ClientID == clientID {
			rank := i + 1
			rating.RankMagnets = &rank
			rating.MyCollectionValue = e.CollectionValue
			break
		}
	}
	for i, e := range snap.byValue {
		if e.ClientID == clientID {
			rank := i + 1
			rating.RankValue = &rank
			break
		}
	}
	return rating, nil
}

func topEntries(entries []RatingEntry) []RatingEntry {
	n := min(len(entries), ratingTopSize)
	top := make([]RatingEntry, n)
	copy(top, entries[:n])
	return top
}

func (c *RatingCache) current(ctx context.Context) (*ratingSnapshot, error) {
	c.mu.RLock()
	snap := c.snapshot
	c.mu.RUnlock()
	if snap != nil && c.clock.Now().Sub(snap.builtAt) < c.ttl {
		return snap, nil
	}

	v, err, _ := c.group.Do("rating", func() (any, error) {
		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()

		built, err := c.build(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.generation == gen {
			c.snapshot = built
		}
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, fmt.Errorf("build rating: %w", err)
	}
	return v.(*ratingSnapshot), nil
}

func (c *RatingCache) build(ctx context.Context) (*ratingSnapshot, error) {
	db := c.db.WithContext(ctx)

	var clients []models.Client
	if err := db.Select("id", "name", "created_at").
		Where("registered = ?", true).
		Order("created_at ASC").
		Find(&clients).Error; err != nil {
		return nil, err
	}

	var magnets []models.ClientMagnet
	if err := db.Select("client_id", "stars", "given_at").
		Where("status = ? AND client_id IN (?)", models.MagnetStatusRevealed,
			db.Model(&models.Client{}).Select("id").Where("registered = ?", true)).
		Find(&magnets).Error; err != nil {
		return nil, err
	}

	entries := make([]RatingEntry, len(clients))
	index := make(map[uuid.UUID]int, len(clients))
	for i, cl := range clients {
		entries[i] = RatingEntry{ClientID: cl.ID, Name: cl.Name}
		index[cl.ID] = i
	}
	for _, m := range magnets {
		i, ok := index[m.ClientID]
		if !ok {
			continue
		}
		e := &entries[i]
		e.TotalMagnets++
		e.CollectionValue += StarValue[m.Stars]
		if m.GivenAt.After(e.lastMagnetAt) {
			e.lastMagnetAt = m.GivenAt
		}
	}

	byMagnets := append([]RatingEntry(nil), entries...)
	sort.SliceStable(byMagnets, func(i, j int) bool {
		a, b := byMagnets[i], byMagnets[j]
		if a.TotalMagnets != b.TotalMagnets {
			return a.TotalMagnets > b.TotalMagnets
		}
		return earlierLastMagnet(a, b)
	})

	byValue := append([]RatingEntry(nil), entries...)
	sort.SliceStable(byValue, func(i, j int) bool {
		a, b := byValue[i], byValue[j]
		if a.CollectionValue != b.CollectionValue {
			return a.CollectionValue > b.CollectionValue
		}
		return earlierLastMagnet(a, b)
	})

	return &ratingSnapshot{byMagnets: byMagnets, byValue: byValue, builtAt: c.clock.Now()}, nil
}

// earlierLastMagnet orders ties by who reached their collection first;
// clients without magnets go last.
func earlierLastMagnet(a, b RatingEntry) bool {
	if a.lastMagnetAt.IsZero() || b.lastMagnetAt.IsZero() {
		return !a.lastMagnetAt.IsZero() && b.lastMagnetAt.IsZero()
	}
	return a.lastMagnetAt.Before(b.lastMagnetAt)
}
