package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-ledger/internal/domain/shared"
)

func TestInitializePlatformHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the config singleton with no active season", func(t *testing.T) {
		store := newMemStore()
		handler := NewInitializePlatformHandler(store, &capturePublisher{})

		result, err := handler.Handle(ctx, InitializePlatformCommand{
			Authority:        testAuthority,
			BackendSigner:    testSigner,
			MaxDailyXP:       testMaxDailyXP,
			MaxAchievementXP: testMaxAchievementXP,
			Timestamp:        testNow,
		})
		require.NoError(t, err)

		assert.Equal(t, uint16(0), result.CurrentSeason)

		st := store.snapshot()
		require.NotNil(t, st.config)
		assert.True(t, st.config.SeasonClosed)
		assert.False(t, st.config.SeasonActive())
	})

	t.Run("rejects a second initialization", func(t *testing.T) {
		store := newMemStore()
		handler := NewInitializePlatformHandler(store, &capturePublisher{})

		cmd := InitializePlatformCommand{
			Authority:     testAuthority,
			BackendSigner: testSigner,
			MaxDailyXP:    testMaxDailyXP,
			Timestamp:     testNow,
		}
		_, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)

		_, err = handler.Handle(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrPlatformAlreadyInitialized)
	})

	t.Run("rejects a zero daily cap", func(t *testing.T) {
		store := newMemStore()
		handler := NewInitializePlatformHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, InitializePlatformCommand{
			Authority:     testAuthority,
			BackendSigner: testSigner,
			MaxDailyXP:    0,
			Timestamp:     testNow,
		})
		assert.Error(t, err)
	})
}

func TestUpdateConfigHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a partial patch and reports changed fields", func(t *testing.T) {
		store := seededStore()
		publisher := &capturePublisher{}
		handler := NewUpdateConfigHandler(store, publisher)

		newSigner := "backend-signer-2"
		newCap := uint32(900)
		result, err := handler.Handle(ctx, UpdateConfigCommand{
			Actor:         testAuthority,
			BackendSigner: &newSigner,
			MaxDailyXP:    &newCap,
			Timestamp:     testNow,
		})
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"backend_signer", "max_daily_xp"}, result.ChangedFields)

		st := store.snapshot()
		assert.Equal(t, newSigner, st.config.BackendSigner)
		assert.Equal(t, newCap, st.config.MaxDailyXP)
		assert.Equal(t, uint32(testMaxAchievementXP), st.config.MaxAchievementXP)

		require.Len(t, publisher.byType(shared.EventConfigUpdated), 1)
	})

	t.Run("rejects a non-authority actor", func(t *testing.T) {
		store := seededStore()
		handler := NewUpdateConfigHandler(store, &capturePublisher{})

		newSigner := "rogue-signer"
		_, err := handler.Handle(ctx, UpdateConfigCommand{
			Actor:         testSigner,
			BackendSigner: &newSigner,
			Timestamp:     testNow,
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("rejects an empty patch", func(t *testing.T) {
		store := seededStore()
		handler := NewUpdateConfigHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, UpdateConfigCommand{Actor: testAuthority, Timestamp: testNow})
		assert.Error(t, err)
	})
}

func TestSeasonHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("seasons open and close strictly in sequence", func(t *testing.T) {
		store := newMemStore()
		initHandler := NewInitializePlatformHandler(store, &capturePublisher{})
		_, err := initHandler.Handle(ctx, InitializePlatformCommand{
			Authority:     testAuthority,
			BackendSigner: testSigner,
			MaxDailyXP:    testMaxDailyXP,
			Timestamp:     testNow,
		})
		require.NoError(t, err)

		publisher := &capturePublisher{}
		createHandler := NewCreateSeasonHandler(store, publisher)
		closeHandler := NewCloseSeasonHandler(store, publisher)

		// Season 2 cannot open before season 1.
		_, err = createHandler.Handle(ctx, CreateSeasonCommand{
			Actor: testAuthority, Season: 2, Mint: "mint-2", Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrInvalidSeasonNumber)

		_, err = createHandler.Handle(ctx, CreateSeasonCommand{
			Actor: testAuthority, Season: 1, Mint: testMint, Timestamp: testNow,
		})
		require.NoError(t, err)

		st := store.snapshot()
		assert.True(t, st.config.SeasonActive())
		assert.Equal(t, shared.MintID(testMint), st.config.CurrentMint)

		// Season 2 cannot open while season 1 is still running.
		_, err = createHandler.Handle(ctx, CreateSeasonCommand{
			Actor: testAuthority, Season: 2, Mint: "mint-2", Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrSeasonNotClosed)

		closeResult, err := closeHandler.Handle(ctx, CloseSeasonCommand{Actor: testAuthority, Timestamp: testNow})
		require.NoError(t, err)
		assert.Equal(t, uint16(1), closeResult.Season)

		_, err = createHandler.Handle(ctx, CreateSeasonCommand{
			Actor: testAuthority, Season: 2, Mint: "mint-2", Timestamp: testNow,
		})
		require.NoError(t, err)

		st = store.snapshot()
		assert.Equal(t, uint16(2), st.config.CurrentSeason)
		assert.Equal(t, shared.MintID("mint-2"), st.config.CurrentMint)

		require.Len(t, publisher.byType(shared.EventSeasonCreated), 2)
		require.Len(t, publisher.byType(shared.EventSeasonClosed), 1)
	})

	t.Run("closing twice is tolerated", func(t *testing.T) {
		store := seededStore()
		handler := NewCloseSeasonHandler(store, &capturePublisher{})

		_, err := handler.Handle(ctx, CloseSeasonCommand{Actor: testAuthority, Timestamp: testNow})
		require.NoError(t, err)
		_, err = handler.Handle(ctx, CloseSeasonCommand{Actor: testAuthority, Timestamp: testNow})
		assert.NoError(t, err)
	})

	t.Run("season lifecycle requires the platform authority", func(t *testing.T) {
		store := seededStore()
		createHandler := NewCreateSeasonHandler(store, &capturePublisher{})
		closeHandler := NewCloseSeasonHandler(store, &capturePublisher{})

		_, err := createHandler.Handle(ctx, CreateSeasonCommand{
			Actor: testSigner, Season: 2, Mint: "mint-2", Timestamp: testNow,
		})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)

		_, err = closeHandler.Handle(ctx, CloseSeasonCommand{Actor: testSigner, Timestamp: testNow})
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})
}
