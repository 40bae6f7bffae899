package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joywood/internal/models"
)

func TestRatingRanksAndTies(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "Дуб", 1, 10, true)
	f.stock(t, "Эбен", 3, 10, true)
	f.stock(t, "Венге", 2, 10, true)

	anna := f.client(t, "Анна", "+79120000001", true)
	boris := f.client(t, "Борис", "+79120000002", true)
	vera := f.client(t, "Вера", "+79120000003", true)
	guest := f.client(t, "Client 1", "+79120000004", false)

	reveal := func(c *models.Client, breed string, stars int) {
		f.issue(t, c, breed, stars)
		_, err := f.ledger.Scan(f.ctx, c.Phone, breed)
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}
	reveal(boris, "Дуб", 1)
	reveal(anna, "Дуб", 1)
	reveal(anna, "Венге", 2)
	reveal(vera, "Эбен", 3)
	reveal(boris, "Венге", 2)
	reveal(guest, "Эбен", 3)

	rating, err := f.ratings.Rating(f.ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rating.TotalParticipants)
	require.NotNil(t, rating.RankMagnets)
	assert.Equal(t, 1, *rating.RankMagnets)
	assert.Equal(t, 500, rating.MyCollectionValue)

	require.Len(t, rating.TopMagnets, 3)
	assert.Equal(t, []string{"Анна", "Борис", "Вера"}, []string{rating.TopMagnets[0].Name, rating.TopMagnets[1].Name, rating.TopMagnets[2].Name})
	assert.Equal(t, []string{"Вера", "Анна", "Борис"}, []string{rating.TopValue[0].Name, rating.TopValue[1].Name, rating.TopValue[2].Name})

	guestRating, err := f.ratings.Rating(f.ctx, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, guestRating.RankMagnets)
	assert.Nil(t, guestRating.RankValue)
}

func TestRatingCacheTTLAndInvalidate(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "Дуб", 1, 10, true)
	anna := f.client(t, "Анна", "+79120000001", true)
	issued := f.issue(t, anna, "Дуб", 1)

	rating, err := f.ratings.Rating(f.ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.MyCollectionValue)

	require.NoError(t, f.db.Model(&models.ClientMagnet{}).Where("id = ?", issued.ID).Update("status", models.MagnetStatusRevealed).Error)

	rating, err = f.ratings.Rating(f.ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rating.MyCollectionValue, "served from cache")

	f.clock.Advance(5 * time.Minute)
	rating, err = f.ratings.Rating(f.ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, rating.MyCollectionValue)

	boris := f.client(t, "Борис", "+79120000002", true)
	rating, err = f.ratings.Rating(f.ctx, boris.ID)
	require.NoError(t, err)
	assert.Nil(t, rating.RankMagnets)

	f.ratings.Invalidate()
	rating, err = f.ratings.Rating(f.ctx, boris.ID)
	require.NoError(t, err)
	require.NotNil(t, rating.RankMagnets)
	assert.Equal(t, 2, *rating.RankMagnets)
}
