package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/joywood/internal/database/dbtest"
	"github.com/example/joywood/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	clock   *fakeClock
	guard   *InventoryGuard
	ratings *RatingCache
	ledger  *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	clock := newFakeClock()
	guard := NewInventoryGuard(db)
	ratings := NewRatingCache(db, clock, 5*time.Minute)
	ledger := NewLedger(db, guard, LedgerOptions{
		Clock:   clock,
		Welcome: WelcomeGift{Breed: "Падук", Stars: 2, Category: "Особенный"},
		Ratings: ratings,
	})
	return &fixture{ctx: context.Background(), db: db, clock: clock, guard: guard, ratings: ratings, ledger: ledger}
}

func (f *fixture) stock(t *testing.T, breed string, stars, stock int, active bool) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.MagnetInventory{
		Breed:    breed,
		Stars:    stars,
		Category: "Обычный",
		Stock:    stock,
		Active:   active,
	}).Error)
}

func (f *fixture) bonusStock(t *testing.T, reward string, stock int) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.BonusStock{Reward: reward, Stock: stock}).Error)
}

func (f *fixture) client(t *testing.T, name, phone string, registered bool) *models.Client {
	t.Helper()
	client := models.Client{Name: name, Phone: phone, Registered: registered}
	require.NoError(t, f.db.Create(&client).Error)
	return &client
}

func (f *fixture) stockOf(t *testing.T, breed string) int {
	t.Helper()
	var inv models.MagnetInventory
	require.NoError(t, f.db.Take(&inv, "breed = ?", breed).Error)
	return inv.Stock
}

func (f *fixture) bonusStockOf(t *testing.T, reward string) int {
	t.Helper()
	var row models.BonusStock
	require.NoError(t, f.db.Take(&row, "reward = ?", reward).Error)
	return row.Stock
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) issue(t *testing.T, client *models.Client, breed string, stars int) *IssuedMagnet {
	t.Helper()
	issued, err := f.ledger.IssueMagnet(f.ctx, IssueMagnetInput{ClientID: client.ID, Breed: breed, Stars: stars, Category: "Обычный"})
	require.NoError(t, err)
	return issued
}
