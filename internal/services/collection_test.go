package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joywood/internal/models"
)

func TestCalcRaccoon(t *testing.T) {
	magnets := func(stars ...int) []models.ClientMagnet {
		out := make([]models.ClientMagnet, 0, len(stars))
		for _, s := range stars {
			out = append(out, models.ClientMagnet{Stars: s})
		}
		return out
	}

	tests := []struct {
		name     string
		revealed []models.ClientMagnet
		xp       int
		level    int
		nextXP   int
	}{
		{name: "empty", revealed: nil, xp: 0, level: 1, nextXP: 50},
		{name: "just below second", revealed: magnets(1, 1, 1, 1), xp: 40, level: 1, nextXP: 50},
		{name: "second", revealed: magnets(2, 2), xp: 50, level: 2, nextXP: 200},
		{name: "fourth", revealed: magnets(3, 3, 3, 3, 3, 3, 3, 3, 3), xp: 450, level: 4, nextXP: 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CalcRaccoon(tt.revealed)
			assert.Equal(t, tt.xp, r.XP)
			assert.Equal(t, tt.level, r.Level)
			require.NotNil(t, r.NextXP)
			assert.Equal(t, tt.nextXP, *r.NextXP)
		})
	}

	top := CalcRaccoon(magnets(3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3))
	assert.Equal(t, 6, top.Level)
	assert.Equal(t, "Резчик по легендам", top.LevelName)
	assert.Nil(t, top.NextXP)
	assert.Equal(t, 1.0, top.Progress)
}

func TestCollectionHidesInTransitBreeds(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "Дуб", 1, 5, true)
	f.stock(t, "Эбен", 3, 5, true)
	f.stock(t, "Бальса", 1, 0, false)
	client := f.client(t, "Анна", "+79123456789", true)
	f.issue(t, client, "Дуб", 1)
	f.issue(t, client, "Эбен", 3)

	collections := NewCollectionService(f.db, f.ratings, NewSettingsService(f.db))

	view, err := collections.Collection(f.ctx, "8 912 345 67 89")
	require.NoError(t, err)
	assert.Equal(t, "Анна", view.ClientName)
	assert.Empty(t, view.Magnets)
	require.Len(t, view.InTransit, 2)
	assert.Equal(t, []string{"Бальса"}, view.InactiveBreeds)
	assert.Equal(t, 0, view.Raccoon.XP)
	assert.False(t, view.Consent.Needed)

	_, err = f.ledger.Scan(f.ctx, "+79123456789", "Эбен")
	require.NoError(t, err)

	view, err = collections.Collection(f.ctx, "+79123456789")
	require.NoError(t, err)
	require.Len(t, view.Magnets, 1)
	assert.Equal(t, "Эбен", view.Magnets[0].Breed)
	assert.Len(t, view.InTransit, 1)
	assert.Equal(t, 50, view.Raccoon.XP)
	require.NotNil(t, view.Rating)
	require.NotNil(t, view.Rating.RankValue)
	assert.Equal(t, 1, *view.Rating.RankValue)
	assert.Equal(t, 700, view.Rating.MyCollectionValue)
}

func TestCollectionUnknownPhone(t *testing.T) {
	f := newFixture(t)
	collections := NewCollectionService(f.db, f.ratings, NewSettingsService(f.db))

	_, err := collections.Collection(f.ctx, "+70000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, f.count(t, &models.LookupLog{}, "event = ?", EventNotFound))

	_, err = collections.Collection(f.ctx, "123")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCollectionConsentStatus(t *testing.T) {
	f := newFixture(t)
	client := f.client(t, "Анна", "+79123456789", true)
	settings := NewSettingsService(f.db)
	consents := NewConsentService(f.db)
	collections := NewCollectionService(f.db, f.ratings, settings)

	require.NoError(t, settings.Set(f.ctx, models.SettingPrivacyPolicyURL, "https://joywood.example/privacy"))
	require.NoError(t, settings.Set(f.ctx, models.SettingPrivacyPolicyUpdatedAt, "2025-03-01"))

	view, err := collections.Collection(f.ctx, client.Phone)
	require.NoError(t, err)
	assert.True(t, view.Consent.Needed)
	assert.Equal(t, "2025-03-01", view.Consent.PolicyVersion)

	require.NoError(t, consents.Save(f.ctx, ConsentInput{Phone: "89123456789", PolicyVersion: "2025-03-01", IPAddress: "10.0.0.1", UserAgent: "test"}))

	view, err = collections.Collection(f.ctx, client.Phone)
	require.NoError(t, err)
	assert.False(t, view.Consent.Needed)

	require.NoError(t, settings.Set(f.ctx, models.SettingPrivacyPolicyUpdatedAt, "2025-04-01"))
	f.clock.Advance(time.Minute)

	view, err = collections.Collection(f.ctx, client.Phone)
	require.NoError(t, err)
	assert.True(t, view.Consent.Needed)
}
