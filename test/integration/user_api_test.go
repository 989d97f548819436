package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"user-registry-service/internal/adapter/db/postgres"
	"user-registry-service/internal/adapter/gin/handler"
	"user-registry-service/internal/adapter/gin/router"
	"user-registry-service/internal/usecase/user"
	"user-registry-service/pkg/security"
)

// setupAPI wires the real stack end to end: store-backed repository,
// bcrypt hashing, signed tokens, and the full route table. Only the
// Redis-backed pieces (cache, rate limiter) are left out.
func setupAPI(t *testing.T) *gin.Engine {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(db))

	log := zaptest.NewLogger(t)
	repo := postgres.NewUserRepoPG(db, log)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens := security.NewTokenManager("integration-secret", time.Minute)
	uc := user.New(repo, hasher, tokens, log)
	h := handler.NewUserHandler(uc, log)

	return router.SetupRouter(h, tokens, nil, log)
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type apiUser struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Age     int       `json:"age"`
	Gender  string    `json:"gender"`
	Email   string    `json:"email"`
	Friends []apiUser `json:"friends"`
	Enemies []apiUser `json:"enemies"`
}

type resultsBody struct {
	Results []apiUser `json:"results"`
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) resultsBody {
	var body resultsBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func register(t *testing.T, r *gin.Engine, name, email, passwd string) apiUser {
	w := do(t, r, http.MethodPost, "/users/register", "", gin.H{
		"name": name, "age": 30, "gender": "other", "email": email, "passwd": passwd,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotContains(t, w.Body.String(), passwd)
	body := decodeResults(t, w)
	require.Len(t, body.Results, 1)
	return body.Results[0]
}

func login(t *testing.T, r *gin.Engine, email, passwd string) string {
	w := do(t, r, http.MethodPost, "/users/login", "", gin.H{"email": email, "passwd": passwd})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestAPI_RegisterAndLogin(t *testing.T) {
	r := setupAPI(t)

	created := register(t, r, "Alice", "alice@example.com", "s3cret")
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Alice", created.Name)
	assert.Empty(t, created.Friends)
	assert.Empty(t, created.Enemies)

	token := login(t, r, "alice@example.com", "s3cret")
	assert.NotEmpty(t, token)

	t.Run("wrong password", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/users/login", "", gin.H{"email": "alice@example.com", "passwd": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Password not match")
	})

	t.Run("unknown email", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/users/login", "", gin.H{"email": "nobody@example.com", "passwd": "s3cret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Email not found")
	})

	t.Run("register without password", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/users/register", "", gin.H{"email": "bob@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid Email or password")
	})
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	r := setupAPI(t)

	w := do(t, r, http.MethodGet, "/users", "", nil)
	assert.Equal(t, 498, w.Code)
	assert.Contains(t, w.Body.String(), "Token not found")
	assert.Contains(t, w.Body.String(), "Token Required")
}

func TestAPI_ListAndGet(t *testing.T) {
	r := setupAPI(t)

	alice := register(t, r, "Alice", "alice@example.com", "s3cret")
	register(t, r, "Bob", "bob@example.com", "s3cret")
	token := login(t, r, "alice@example.com", "s3cret")

	t.Run("list", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/users", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeResults(t, w)
		assert.Len(t, body.Results, 2)
	})

	t.Run("get by id", func(t *testing.T) {
		w := do(t, r, http.MethodGet, fmt.Sprintf("/users/%d", alice.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeResults(t, w)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "Alice", body.Results[0].Name)
	})

	t.Run("get missing id", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/users/999", token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("search", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/users/search?key=name&value=Bob", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeResults(t, w)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "Bob", body.Results[0].Name)
	})
}

func TestAPI_UpdateAndDelete(t *testing.T) {
	r := setupAPI(t)

	alice := register(t, r, "Alice", "alice@example.com", "s3cret")
	token := login(t, r, "alice@example.com", "s3cret")

	t.Run("partial update keeps the other fields", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), token, gin.H{"name": "Alicia"})
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeResults(t, w)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "Alicia", body.Results[0].Name)
		assert.Equal(t, "alice@example.com", body.Results[0].Email)
	})

	t.Run("password change takes effect on next login", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/%d", alice.ID), token, gin.H{"passwd": "newpass"})
		require.Equal(t, http.StatusOK, w.Code)

		login(t, r, "alice@example.com", "newpass")

		w = do(t, r, http.MethodPost, "/users/login", "", gin.H{"email": "alice@example.com", "passwd": "s3cret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		bob := register(t, r, "Bob", "bob@example.com", "s3cret")

		w := do(t, r, http.MethodDelete, fmt.Sprintf("/users/%d", bob.ID), token, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, r, http.MethodGet, fmt.Sprintf("/users/%d", bob.ID), token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_Relations(t *testing.T) {
	r := setupAPI(t)

	register(t, r, "Alice", "alice@example.com", "s3cret")
	bob := register(t, r, "Bob", "bob@example.com", "s3cret")
	carol := register(t, r, "Carol", "carol@example.com", "s3cret")
	token := login(t, r, "alice@example.com", "s3cret")

	t.Run("add friend", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/addfriend/%d", bob.ID), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeResults(t, w)
		require.Len(t, body.Results, 1)
		require.Len(t, body.Results[0].Friends, 1)
		assert.Equal(t, "Bob", body.Results[0].Friends[0].Name)
	})

	t.Run("adding the same friend twice fails and leaves one entry", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/addfriend/%d", bob.ID), token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "user already registered")

		alice := findByEmail(t, r, token, "alice@example.com")
		assert.Len(t, alice.Friends, 1)
	})

	t.Run("add enemy via body id", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/addenemy/%d", carol.ID), token, gin.H{"id": carol.ID})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decodeResults(t, w)
		require.Len(t, body.Results[0].Enemies, 1)
		assert.Equal(t, "Carol", body.Results[0].Enemies[0].Name)
	})

	t.Run("relation target must exist", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, "/users/addfriend/999", token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "user not found")
	})

	t.Run("without token", func(t *testing.T) {
		w := do(t, r, http.MethodPatch, fmt.Sprintf("/users/addfriend/%d", bob.ID), "", nil)
		assert.Equal(t, 498, w.Code)
	})
}

func findByEmail(t *testing.T, r *gin.Engine, token, email string) apiUser {
	w := do(t, r, http.MethodGet, "/users/search?key=email&value="+email, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeResults(t, w)
	require.Len(t, body.Results, 1)

	// search results come back unpopulated; fetch the full record
	w = do(t, r, http.MethodGet, fmt.Sprintf("/users/%d", body.Results[0].ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	full := decodeResults(t, w)
	require.Len(t, full.Results, 1)
	return full.Results[0]
}

func TestAPI_Health(t *testing.T) {
	r := setupAPI(t)

	w := do(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
