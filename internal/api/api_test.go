package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/export"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupSQLiteDB(t)
	renderer, err := export.NewRenderer("")
	require.NoError(t, err)

	auth := service.NewAuthService(db, "test-secret", time.Hour, nil)
	recipes := service.NewRecipeService(db, testhelpers.NewMockImageStore())

	router := gin.New()
	router.NoRoute(middleware.NotFound())
	api.RegisterRoutes(router, db, api.Services{
		Auth:        auth,
		Users:       service.NewUserService(db),
		Tags:        service.NewTagService(db),
		Ingredients: service.NewIngredientService(db),
		Recipes:     recipes,
		Shopping:    service.NewShoppingService(db),
		Renderer:    renderer,
		PageSize:    6,
	})

	return &testAPI{t: t, router: router, db: db, auth: auth}
}

func (a *testAPI) token(user *models.User) string {
	a.t.Helper()
	token, err := a.auth.GenerateToken(user.ID)
	require.NoError(a.t, err)
	return token
}

func (a *testAPI) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func recipeBody(ingredients []map[string]interface{}, tags []uint) map[string]interface{} {
	return map[string]interface{}{
		"ingredients":  ingredients,
		"tags":         tags,
		"image":        testhelpers.PNGDataURI,
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 20,
	}
}

func (a *testAPI) createRecipe(token string, ingredientID uint, amount int, tagID uint) uint {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/recipes/", token, recipeBody(
		[]map[string]interface{}{{"id": ingredientID, "amount": amount}},
		[]uint{tagID},
	))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(a.t, w)["id"].(float64))
}

func TestRegisterLoginLogout(t *testing.T) {
	a := setupAPI(t)

	w := a.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      "cook@example.com",
		"username":   "cook",
		"first_name": "Ann",
		"last_name":  "Cook",
		"password":   "secret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "cook", created["username"])
	assert.NotContains(t, created, "password")

	w = a.do(http.MethodPost, "/api/users/", "", map[string]string{
		"email":      "cook@example.com",
		"username":   "cook2",
		"first_name": "Ann",
		"last_name":  "Cook",
		"password":   "secret-pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "email")

	w = a.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": "cook@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "non_field_errors")

	w = a.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": "cook@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["auth_token"].(string)
	require.NotEmpty(t, token)

	w = a.do(http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cook@example.com", decode(t, w)["email"])

	w = a.do(http.MethodPost, "/api/auth/token/logout/", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, "/api/users/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSetPassword(t *testing.T) {
	a := setupAPI(t)
	user := testhelpers.CreateUser(t, a.db, "alice")
	token := a.token(user)

	w := a.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": "not-it",
		"new_password":     "brand-new-pass",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "current_password")

	w = a.do(http.MethodPost, "/api/users/set_password/", token, map[string]string{
		"current_password": testhelpers.TestPassword,
		"new_password":     "brand-new-pass",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodPost, "/api/auth/token/login/", "", map[string]string{"email": user.Email, "password": "brand-new-pass"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserListPagination(t *testing.T) {
	a := setupAPI(t)
	for i := 0; i < 3; i++ {
		testhelpers.CreateUser(t, a.db, fmt.Sprintf("user%d", i))
	}

	w := a.do(http.MethodGet, "/api/users/?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, body["results"], 2)
	assert.Contains(t, body["next"], "page=2")
	assert.Nil(t, body["previous"])

	w = a.do(http.MethodGet, "/api/users/?limit=2&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["results"], 1)
	assert.Nil(t, body["next"])
	assert.NotNil(t, body["previous"])

	w = a.do(http.MethodGet, "/api/users/?limit=2&page=5", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// page numbers whose offset does not fit in an int
	for _, path := range []string{
		"/api/users/?page=9223372036854775807",
		"/api/users/?limit=100&page=92233720368547759",
		"/api/recipes/?page=9223372036854775807",
	} {
		w = a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Invalid page.", decode(t, w)["detail"], path)
	}
}

func TestTagsAdminOnly(t *testing.T) {
	a := setupAPI(t)
	user := testhelpers.CreateUser(t, a.db, "bob")
	admin := testhelpers.CreateAdmin(t, a.db, "root")

	body := map[string]string{"name": "Breakfast", "color": "#FFAA00", "slug": "breakfast"}
	w := a.do(http.MethodPost, "/api/tags/", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/tags/", a.token(user), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/tags/", a.token(admin), map[string]string{"name": "Red", "color": "red", "slug": "red"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "color")

	w = a.do(http.MethodPost, "/api/tags/", a.token(admin), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))

	w = a.do(http.MethodGet, "/api/tags/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tags []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "breakfast", tags[0]["slug"])

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/tags/%d/", id), a.token(admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/tags/%d/", id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Not found."}`, w.Body.String())
}

func TestIngredientSearch(t *testing.T) {
	a := setupAPI(t)
	testhelpers.CreateIngredient(t, a.db, "sugar", "g")
	testhelpers.CreateIngredient(t, a.db, "salt", "g")
	testhelpers.CreateIngredient(t, a.db, "flour", "g")

	w := a.do(http.MethodGet, "/api/ingredients/?name=S", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found, 2)
	assert.Equal(t, "salt", found[0]["name"])
	assert.Equal(t, "sugar", found[1]["name"])

	w = a.do(http.MethodGet, "/api/ingredients/abc/", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	a := setupAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	other := testhelpers.CreateUser(t, a.db, "other")
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	eggs := testhelpers.CreateIngredient(t, a.db, "eggs", "pcs")
	tag := testhelpers.CreateTag(t, a.db, "Breakfast", "#fa0", "breakfast")

	w := a.do(http.MethodPost, "/api/recipes/", "", recipeBody(nil, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/recipes/", a.token(author), recipeBody([]map[string]interface{}{}, []uint{tag.ID}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "ingredients")

	w = a.do(http.MethodPost, "/api/recipes/", a.token(author), recipeBody(
		[]map[string]interface{}{{"id": flour.ID, "amount": 0}}, []uint{tag.ID}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/recipes/", a.token(author), recipeBody(
		[]map[string]interface{}{{"id": 999, "amount": 1}}, []uint{tag.ID}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "ingredients")

	w = a.do(http.MethodPost, "/api/recipes/", a.token(author), recipeBody(
		[]map[string]interface{}{
			{"id": flour.ID, "amount": 100},
			{"id": eggs.ID, "amount": 2},
			{"id": flour.ID, "amount": 50},
		}, []uint{tag.ID, tag.ID}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := uint(created["id"].(float64))
	ingredients := created["ingredients"].([]interface{})
	require.Len(t, ingredients, 2)
	assert.EqualValues(t, 150, ingredients[0].(map[string]interface{})["amount"])
	assert.Len(t, created["tags"], 1)
	assert.Equal(t, "author", created["author"].(map[string]interface{})["username"])

	w = a.do(http.MethodGet, fmt.Sprintf("/api/recipes/%d/", id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["is_favorited"])

	update := recipeBody([]map[string]interface{}{{"id": eggs.ID, "amount": 3}}, []uint{tag.ID})
	delete(update, "image")
	update["name"] = "Omelette"

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/recipes/%d/", id), a.token(other), update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPatch, fmt.Sprintf("/api/recipes/%d/", id), a.token(author), update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "Omelette", updated["name"])
	assert.Len(t, updated["ingredients"], 1)

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", id), a.token(other), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/recipes/%d/", id), a.token(author), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/recipes/%d/", id), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeBodyTooLarge(t *testing.T) {
	a := setupAPI(t)
	author := testhelpers.CreateUser(t, a.db, "author")
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	tag := testhelpers.CreateTag(t, a.db, "Breakfast", "#fa0", "breakfast")

	body := recipeBody([]map[string]interface{}{{"id": flour.ID, "amount": 1}}, []uint{tag.ID})
	body["image"] = "data:image/png;base64," + strings.Repeat("A", 8<<20)

	w := a.do(http.MethodPost, "/api/recipes/", a.token(author), body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request body too large.", decode(t, w)["detail"])

	var count int64
	require.NoError(t, a.db.Model(&models.Recipe{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecipeFilters(t *testing.T) {
	a := setupAPI(t)
	alice := testhelpers.CreateUser(t, a.db, "alice")
	bob := testhelpers.CreateUser(t, a.db, "bob")
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	breakfast := testhelpers.CreateTag(t, a.db, "Breakfast", "#FFAA00", "breakfast")
	dinner := testhelpers.CreateTag(t, a.db, "Dinner", "#0000FF", "dinner")

	first := a.createRecipe(a.token(alice), flour.ID, 10, breakfast.ID)
	a.createRecipe(a.token(bob), flour.ID, 10, dinner.ID)

	count := func(path, token string) float64 {
		w := a.do(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode(t, w)["count"].(float64)
	}

	assert.EqualValues(t, 2, count("/api/recipes/", ""))
	assert.EqualValues(t, 1, count(fmt.Sprintf("/api/recipes/?author=%d", alice.ID), ""))
	assert.EqualValues(t, 1, count("/api/recipes/?tags=dinner", ""))
	assert.EqualValues(t, 2, count("/api/recipes/?tags=dinner&tags=breakfast", ""))
	assert.EqualValues(t, 0, count("/api/recipes/?is_favorited=1", ""))

	w := a.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/favorite/", first), a.token(bob), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.EqualValues(t, 1, count("/api/recipes/?is_favorited=1", a.token(bob)))
	assert.EqualValues(t, 0, count("/api/recipes/?is_in_shopping_cart=1", a.token(bob)))

	w = a.do(http.MethodGet, "/api/recipes/?author=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFavoritesAndCart(t *testing.T) {
	a := setupAPI(t)
	user := testhelpers.CreateUser(t, a.db, "alice")
	token := a.token(user)
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	tag := testhelpers.CreateTag(t, a.db, "Breakfast", "#FFAA00", "breakfast")
	id := a.createRecipe(token, flour.ID, 10, tag.ID)

	path := fmt.Sprintf("/api/recipes/%d/favorite/", id)
	w := a.do(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	short := decode(t, w)
	assert.EqualValues(t, id, short["id"])
	assert.NotContains(t, short, "ingredients")

	w = a.do(http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "errors")

	w = a.do(http.MethodGet, fmt.Sprintf("/api/recipes/%d/", id), token, nil)
	assert.Equal(t, true, decode(t, w)["is_favorited"])

	w = a.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/recipes/999/shopping_cart/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	a := setupAPI(t)
	user := testhelpers.CreateUser(t, a.db, "alice")
	token := a.token(user)
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	tag := testhelpers.CreateTag(t, a.db, "Breakfast", "#FFAA00", "breakfast")

	first := a.createRecipe(token, flour.ID, 100, tag.ID)
	second := a.createRecipe(token, flour.ID, 50, tag.ID)
	for _, id := range []uint{first, second} {
		w := a.do(http.MethodPost, fmt.Sprintf("/api/recipes/%d/shopping_cart/", id), token, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.do(http.MethodGet, "/api/recipes/download_shopping_cart/?format=txt", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flour (g) - 150")

	w = a.do(http.MethodGet, "/api/recipes/download_shopping_cart/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=shopping_list.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = a.do(http.MethodGet, "/api/recipes/download_shopping_cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptions(t *testing.T) {
	a := setupAPI(t)
	reader := testhelpers.CreateUser(t, a.db, "reader")
	author := testhelpers.CreateUser(t, a.db, "author")
	token := a.token(reader)
	flour := testhelpers.CreateIngredient(t, a.db, "flour", "g")
	tag := testhelpers.CreateTag(t, a.db, "Breakfast", "#FFAA00", "breakfast")
	for i := 0; i < 3; i++ {
		a.createRecipe(a.token(author), flour.ID, 10, tag.ID)
	}

	w := a.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", reader.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "errors")

	w = a.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/?recipes_limit=1", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sub := decode(t, w)
	assert.Equal(t, true, sub["is_subscribed"])
	assert.Len(t, sub["recipes"], 1)
	assert.EqualValues(t, 3, sub["recipes_count"])

	w = a.do(http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/users/%d/", author.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_subscribed"])

	w = a.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 1, page["count"])
	results := page["results"].([]interface{})
	assert.Len(t, results[0].(map[string]interface{})["recipes"], 2)

	w = a.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe/", author.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/users/999/subscribe/", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	a := setupAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}
