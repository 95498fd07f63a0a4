package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

func TestUserProfileIsCachedUntilUpdate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	c := cache.NewMemoryCache(100)
	service := NewUserService(store.Users, c)
	user := createUser(t, store)

	profile, err := service.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.Email)

	_, cached, err := c.Get(ctx, profileKey(user.ID))
	require.NoError(t, err)
	assert.True(t, cached)

	updated, err := service.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{Name: "New Name", City: "Dhaka"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, cached, err = c.Get(ctx, profileKey(user.ID))
	require.NoError(t, err)
	assert.False(t, cached)

	profile, err = service.Profile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", profile.Name)
	assert.Equal(t, "Dhaka", profile.City)
}

func TestUserProfileNotFound(t *testing.T) {
	service := NewUserService(repository.NewMemoryStore().Users, cache.NewMemoryCache(10))

	_, err := service.Profile(context.Background(), uuid.New())
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindNotFound, appErr.Kind)
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	service := NewUserService(store.Users, cache.NewMemoryCache(10))
	user := createUser(t, store)

	err := service.UpdatePassword(ctx, user.ID, &UpdatePasswordRequest{
		CurrentPassword:      "not-my-password",
		Password:             "Changed1234",
		PasswordConfirmation: "Changed1234",
	})
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Current password is incorrect", appErr.Message)

	require.NoError(t, service.UpdatePassword(ctx, user.ID, &UpdatePasswordRequest{
		CurrentPassword:      testPassword,
		Password:             "Changed1234",
		PasswordConfirmation: "Changed1234",
	}))

	stored, err := store.Users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("Changed1234"))
}
