package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-registry-service/internal/adapter/gin/middleware"
	domain "user-registry-service/internal/domain/user"
	"user-registry-service/internal/usecase/user"
	apperrors "user-registry-service/pkg/errors"
)

type mockUsecase struct {
	mock.Mock
}

func (m *mockUsecase) ListUsers(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *mockUsecase) Register(ctx context.Context, in user.RegisterRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUsecase) Login(ctx context.Context, in user.LoginRequest) (*user.LoginResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.LoginResponse), args.Error(1)
}

func (m *mockUsecase) GetUser(ctx context.Context, in user.GetUserRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUsecase) UpdateUser(ctx context.Context, in user.UpdateUserRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUsecase) DeleteUser(ctx context.Context, in user.DeleteUserRequest) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockUsecase) SearchUsers(ctx context.Context, in user.SearchUsersRequest) ([]user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *mockUsecase) AddFriend(ctx context.Context, in user.AddRelationRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUsecase) AddEnemy(ctx context.Context, in user.AddRelationRequest) (*user.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

// withIdentity injects an authenticated identity the way the auth
// middleware would.
func withIdentity(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.IdentityKey, domain.Identity{ID: id, Email: "alice@example.com", Role: "user"})
		c.Next()
	}
}

func setupHandlerTest(t *testing.T) (*mockUsecase, *UserHandler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	uc := new(mockUsecase)
	h := NewUserHandler(uc, zaptest.NewLogger(t))
	return uc, h, gin.New()
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Message    string `json:"message"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUserHandler_GetAll(t *testing.T) {
	uc, h, r := setupHandlerTest(t)
	r.GET("/users", h.GetAll)

	uc.On("ListUsers", mock.Anything).Return([]user.User{
		{ID: 1, Name: "Alice", Friends: []user.User{}, Enemies: []user.User{}},
		{ID: 2, Name: "Bob", Friends: []user.User{}, Enemies: []user.User{}},
	}, nil)

	w := doJSON(t, r, http.MethodGet, "/users", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ResultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Alice", resp.Results[0].Name)
}

func TestUserHandler_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.POST("/users/register", h.Register)

		uc.On("Register", mock.Anything, user.RegisterRequest{
			Name: "Alice", Age: 30, Email: "alice@example.com", Password: "s3cret",
		}).Return(&user.User{ID: 1, Name: "Alice", Email: "alice@example.com"}, nil)

		w := doJSON(t, r, http.MethodPost, "/users/register", gin.H{
			"name": "Alice", "age": 30, "email": "alice@example.com", "passwd": "s3cret",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp ResultsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, int64(1), resp.Results[0].ID)
	})

	t.Run("usecase rejection becomes the error envelope", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.POST("/users/register", h.Register)

		uc.On("Register", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewBadRequestError("Invalid Email or password"))

		w := doJSON(t, r, http.MethodPost, "/users/register", gin.H{"passwd": "s3cret"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, http.StatusBadRequest, body.Status)
		assert.Equal(t, "Bad Request", body.StatusText)
		assert.Equal(t, "Invalid Email or password", body.Message)
	})
}

func TestUserHandler_Login(t *testing.T) {
	t.Run("accepted with token", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.POST("/users/login", h.Login)

		uc.On("Login", mock.Anything, user.LoginRequest{Email: "alice@example.com", Password: "s3cret"}).
			Return(&user.LoginResponse{Token: "signed-token"}, nil)

		w := doJSON(t, r, http.MethodPost, "/users/login", gin.H{"email": "alice@example.com", "passwd": "s3cret"})

		assert.Equal(t, http.StatusAccepted, w.Code)
		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "signed-token", resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.POST("/users/login", h.Login)

		uc.On("Login", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewUnauthorizedError("Password not match"))

		w := doJSON(t, r, http.MethodPost, "/users/login", gin.H{"email": "alice@example.com", "passwd": "nope"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Password not match", decodeError(t, w).Message)
	})
}

func TestUserHandler_GetUser(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.GET("/users/:id", h.GetUser)

		uc.On("GetUser", mock.Anything, user.GetUserRequest{ID: 1}).
			Return(&user.User{ID: 1, Name: "Alice"}, nil)

		w := doJSON(t, r, http.MethodGet, "/users/1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("garbage id", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.GET("/users/:id", h.GetUser)

		w := doJSON(t, r, http.MethodGet, "/users/abc", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User ID must be a valid number", decodeError(t, w).Message)
		uc.AssertNotCalled(t, "GetUser")
	})

	t.Run("not found", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.GET("/users/:id", h.GetUser)

		uc.On("GetUser", mock.Anything, user.GetUserRequest{ID: 9}).
			Return(nil, apperrors.NewNotFoundError("user", "user not found: id=9"))

		w := doJSON(t, r, http.MethodGet, "/users/9", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Not Found", decodeError(t, w).StatusText)
	})
}

func TestUserHandler_DeleteUser(t *testing.T) {
	uc, h, r := setupHandlerTest(t)
	r.DELETE("/users/:id", h.DeleteUser)

	uc.On("DeleteUser", mock.Anything, user.DeleteUserRequest{ID: 1}).Return(nil)

	w := doJSON(t, r, http.MethodDelete, "/users/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestUserHandler_SearchUsers(t *testing.T) {
	uc, h, r := setupHandlerTest(t)
	r.GET("/users/search", h.SearchUsers)

	uc.On("SearchUsers", mock.Anything, user.SearchUsersRequest{Key: "name", Value: "Alice"}).
		Return([]user.User{{ID: 1, Name: "Alice"}}, nil)

	w := doJSON(t, r, http.MethodGet, "/users/search?key=name&value=Alice", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ResultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
}

func TestUserHandler_AddFriend(t *testing.T) {
	t.Run("target from body", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.PATCH("/users/addfriend/:id", withIdentity(1), h.AddFriend)

		uc.On("AddFriend", mock.Anything, user.AddRelationRequest{ActorID: 1, TargetID: 2}).
			Return(&user.User{ID: 1, Friends: []user.User{{ID: 2}}}, nil)

		w := doJSON(t, r, http.MethodPatch, "/users/addfriend/99", gin.H{"id": 2})

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ResultsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		require.Len(t, resp.Results[0].Friends, 1)
	})

	t.Run("target from path when body is empty", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.PATCH("/users/addfriend/:id", withIdentity(1), h.AddFriend)

		uc.On("AddFriend", mock.Anything, user.AddRelationRequest{ActorID: 1, TargetID: 3}).
			Return(&user.User{ID: 1, Friends: []user.User{{ID: 3}}}, nil)

		w := doJSON(t, r, http.MethodPatch, "/users/addfriend/3", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.PATCH("/users/addfriend/:id", h.AddFriend)

		w := doJSON(t, r, http.MethodPatch, "/users/addfriend/2", gin.H{"id": 2})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Information incomplete", decodeError(t, w).Message)
		uc.AssertNotCalled(t, "AddFriend")
	})

	t.Run("no target anywhere", func(t *testing.T) {
		uc, h, r := setupHandlerTest(t)
		r.PATCH("/users/addfriend", withIdentity(1), h.AddFriend)

		w := doJSON(t, r, http.MethodPatch, "/users/addfriend", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Information incomplete", decodeError(t, w).Message)
		uc.AssertNotCalled(t, "AddFriend")
	})
}

func TestUserHandler_AddEnemy(t *testing.T) {
	uc, h, r := setupHandlerTest(t)
	r.PATCH("/users/addenemy/:id", withIdentity(1), h.AddEnemy)

	uc.On("AddEnemy", mock.Anything, user.AddRelationRequest{ActorID: 1, TargetID: 2}).
		Return(nil, apperrors.NewBadRequestError("user already registered"))

	w := doJSON(t, r, http.MethodPatch, "/users/addenemy/2", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user already registered", decodeError(t, w).Message)
}
