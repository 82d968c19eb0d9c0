package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

func TestRegister(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	svc := service.NewUserService(db)
	ctx := context.Background()

	req := &types.RegisterRequest{
		Email:     "Alice@Example.com",
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "Liddell",
		Password:  "wonderland",
	}
	user, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "wonderland", user.PasswordHash)
	assert.True(t, service.CheckPassword(user.PasswordHash, "wonderland"))

	_, err = svc.Register(ctx, req)
	errs, ok := validation.AsErrors(err)
	require.True(t, ok, "%v", err)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "username")

	_, err = svc.Register(ctx, &types.RegisterRequest{Email: "nope", Username: "bad name!", Password: "short"})
	errs, ok = validation.AsErrors(err)
	require.True(t, ok, "%v", err)
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.Contains(t, errs, field)
	}
}

func TestSetPassword(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	svc := service.NewUserService(db)
	ctx := context.Background()
	user := testhelpers.CreateUser(t, db, "alice")

	err := svc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{CurrentPassword: "wrong", NewPassword: "new-password"})
	errs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Contains(t, errs, "current_password")

	require.NoError(t, svc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{
		CurrentPassword: testhelpers.TestPassword,
		NewPassword:     "new-password",
	}))

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, service.CheckPassword(stored.PasswordHash, "new-password"))
}

func TestListUsers(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	svc := service.NewUserService(db)
	for _, name := range []string{"alice", "bob", "carol"} {
		testhelpers.CreateUser(t, db, name)
	}

	users, total, err := svc.ListUsers(context.Background(), types.Page{Number: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].Username)

	_, err = svc.GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSubscriptions(t *testing.T) {
	db := testhelpers.SetupSQLiteDB(t)
	svc := service.NewUserService(db)
	ctx := context.Background()
	alice := testhelpers.CreateUser(t, db, "alice")
	bob := testhelpers.CreateUser(t, db, "bob")
	carol := testhelpers.CreateUser(t, db, "carol")

	_, err := svc.Subscribe(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, service.ErrSelfSubscription)

	author, err := svc.Subscribe(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, author.ID)

	_, err = svc.Subscribe(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, service.ErrAlreadyExists)

	_, err = svc.Subscribe(ctx, alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, alice.ID, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	subscribed, err := svc.IsSubscribed(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, subscribed)

	subscribed, err = svc.IsSubscribed(ctx, 0, bob.ID)
	require.NoError(t, err)
	assert.False(t, subscribed)

	authors, err := svc.SubscribedAuthors(ctx, alice.ID, []uint{bob.ID, carol.ID, alice.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{bob.ID: true, carol.ID: true}, authors)

	list, total, err := svc.ListSubscriptions(ctx, alice.ID, types.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, bob.ID, list[0].ID)

	require.NoError(t, svc.Unsubscribe(ctx, alice.ID, bob.ID))
	err = svc.Unsubscribe(ctx, alice.ID, bob.ID)
	var relErr *service.RelationError
	require.ErrorAs(t, err, &relErr)
	assert.Equal(t, "You are not subscribed to this author.", relErr.Message)
	assert.ErrorIs(t, err, service.ErrNotInList)
}
