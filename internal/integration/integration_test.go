// Package integration runs the whole server against PostgreSQL in a container.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func (c *client) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func (c *client) json(w *httptest.ResponseRecorder) map[string]interface{} {
	c.t.Helper()
	var body map[string]interface{}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (c *client) register(username string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  username,
		"password":   "long-enough-password",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())

	return c.login(username+"@example.com", "long-enough-password")
}

func (c *client) login(email, password string) string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	return c.json(w)["auth_token"].(string)
}

func TestRecipeFlowOnPostgres(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	admin := testhelpers.CreateAdmin(t, db, "admin")
	flour := testhelpers.CreateIngredient(t, db, "flour", "g")
	sugar := testhelpers.CreateIngredient(t, db, "sugar", "g")

	cfg := &config.Config{
		JWTSecret:         "integration-secret",
		TokenTTL:          time.Hour,
		StorageBackend:    "local",
		MediaRoot:         t.TempDir(),
		MediaURL:          "/media/",
		PageSize:          6,
		RecipeCreateLimit: 30,
	}
	srv, err := server.New(context.Background(), cfg, db, nil)
	require.NoError(t, err)
	c := &client{t: t, handler: srv.Handler()}

	adminToken := c.login(admin.Email, testhelpers.TestPassword)
	w := c.do(http.MethodPost, "/api/tags/", adminToken, map[string]string{
		"name": "Dessert", "color": "#F2C94C", "slug": "dessert",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tagID := c.json(w)["id"]

	author := c.register("author")
	reader := c.register("reader")

	recipe := map[string]interface{}{
		"ingredients": []map[string]interface{}{
			{"id": flour.ID, "amount": 100},
			{"id": sugar.ID, "amount": 20},
			{"id": flour.ID, "amount": 50},
		},
		"tags":         []interface{}{tagID, tagID},
		"image":        testhelpers.PNGDataURI,
		"name":         "Shortbread",
		"text":         "Rub, press and bake.",
		"cooking_time": 40,
	}
	w = c.do(http.MethodPost, "/api/recipes/", author, recipe)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := c.json(w)
	recipeID := int(created["id"].(float64))
	assert.Len(t, created["tags"], 1)
	assert.Len(t, created["ingredients"], 2)

	image := created["image"].(string)
	require.True(t, strings.HasPrefix(image, "/media/recipes/"), image)
	w = c.do(http.MethodGet, image, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodPost, "/api/recipes/"+strconv.Itoa(recipeID)+"/shopping_cart/", reader, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = c.do(http.MethodPost, "/api/recipes/"+strconv.Itoa(recipeID)+"/favorite/", reader, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/recipes/?is_favorited=1&is_in_shopping_cart=1", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, c.json(w)["count"])

	w = c.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flour (g) - 150")
	assert.Contains(t, w.Body.String(), "sugar (g) - 20")

	w = c.do(http.MethodPost, "/api/users/"+authorID(t, c, author)+"/subscribe/", reader, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 1, c.json(w)["recipes_count"])

	w = c.do(http.MethodDelete, "/api/recipes/"+strconv.Itoa(recipeID)+"/", reader, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = c.do(http.MethodDelete, "/api/recipes/"+strconv.Itoa(recipeID)+"/", author, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "flour")
}

func TestSQLMigrationsOnPostgres(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	ctx := context.Background()

	// start from the SQL files alone
	require.NoError(t, db.Migrator().DropTable(models.All()...))

	migrator := database.NewMigrator(sqlDB, "../../migrations")
	applied, err := migrator.Up(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, applied)

	_, err = sqlDB.ExecContext(ctx, `INSERT INTO tags (name, color, slug) VALUES ('Grey', '#GGG', 'grey')`)
	assert.True(t, database.IsCheckViolation(err), "%v", err)
	_, err = sqlDB.ExecContext(ctx, `INSERT INTO tags (name, color, slug) VALUES ('Amber', '#fa0', 'amber')`)
	require.NoError(t, err)

	statuses, err := migrator.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, s.File)
	}

	again, err := migrator.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	name, err := migrator.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, statuses[len(statuses)-1].File, name)
}

func authorID(t *testing.T, c *client, token string) string {
	w := c.do(http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return strconv.Itoa(int(c.json(w)["id"].(float64)))
}
