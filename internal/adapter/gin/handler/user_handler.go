package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"user-registry-service/internal/adapter/gin/middleware"
	"user-registry-service/internal/usecase/user"
	apperrors "user-registry-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for user registry operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// RegisterRequest represents the HTTP request body for registering a user.
// The password travels under the "passwd" key, matching the public contract.
type RegisterRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Email  string `json:"email"`
	Passwd string `json:"passwd"`
}

// LoginRequest represents the HTTP request body for logging in
type LoginRequest struct {
	Email  string `json:"email"`
	Passwd string `json:"passwd"`
}

// UpdateUserRequest represents the HTTP request body for a partial update
type UpdateUserRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Email  string `json:"email"`
	Passwd string `json:"passwd"`
}

// RelationRequest carries the target user for a friend/enemy mutation
type RelationRequest struct {
	ID int64 `json:"id"`
}

// UserResponse represents the HTTP response for user data. The password
// hash is never part of it.
type UserResponse struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	Age     int            `json:"age"`
	Gender  string         `json:"gender"`
	Email   string         `json:"email"`
	Friends []UserResponse `json:"friends"`
	Enemies []UserResponse `json:"enemies"`
}

// ResultsResponse is the envelope every successful data response uses
type ResultsResponse struct {
	Results []UserResponse `json:"results"`
}

// TokenResponse carries the token issued on login
type TokenResponse struct {
	Token string `json:"token"`
}

// GetAll handles GET /users
func (h *UserHandler) GetAll(c *gin.Context) {
	users, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{Results: toResponses(users)})
}

// Register handles POST /users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid register request body", zap.Error(err))
		h.respondError(c, apperrors.NewBadRequestError("Invalid Email or password"))
		return
	}

	created, err := h.uc.Register(c.Request.Context(), user.RegisterRequest{
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
		Email:    req.Email,
		Password: req.Passwd,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ResultsResponse{Results: []UserResponse{toResponse(*created)}})
}

// Login handles POST /users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid login request body", zap.Error(err))
		h.respondError(c, apperrors.NewBadRequestError("Invalid Email or password"))
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), user.LoginRequest{
		Email:    req.Email,
		Password: req.Passwd,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, TokenResponse{Token: resp.Token})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	u, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{Results: []UserResponse{toResponse(*u)}})
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("invalid update request body", zap.Error(err))
		h.respondError(c, apperrors.NewBadRequestError("invalid request body"))
		return
	}

	updated, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:       id,
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
		Email:    req.Email,
		Password: req.Passwd,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{Results: []UserResponse{toResponse(*updated)}})
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id}); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SearchUsers handles GET /users/search?key=...&value=...
func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.uc.SearchUsers(c.Request.Context(), user.SearchUsersRequest{
		Key:   c.Query("key"),
		Value: c.Query("value"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{Results: toResponses(users)})
}

// AddFriend handles PATCH /users/addfriend/:id
func (h *UserHandler) AddFriend(c *gin.Context) {
	h.addRelation(c, h.uc.AddFriend)
}

// AddEnemy handles PATCH /users/addenemy/:id
func (h *UserHandler) AddEnemy(c *gin.Context) {
	h.addRelation(c, h.uc.AddEnemy)
}

// addRelation resolves the acting user from the authenticated identity and
// the target from the body (path param as fallback), then applies the
// mutation and returns the updated record.
func (h *UserHandler) addRelation(c *gin.Context, mutate func(ctx context.Context, in user.AddRelationRequest) (*user.User, error)) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		h.log.Warn("relation mutation without identity", zap.String("path", c.Request.URL.Path))
		h.respondError(c, apperrors.NewUnauthorizedError("Information incomplete"))
		return
	}

	var req RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Warn("invalid relation request body", zap.Error(err))
		h.respondError(c, apperrors.NewUnauthorizedError("Information incomplete"))
		return
	}

	targetID := req.ID
	if targetID == 0 {
		if raw := c.Param("id"); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
				targetID = parsed
			}
		}
	}
	if targetID == 0 {
		h.respondError(c, apperrors.NewUnauthorizedError("Information incomplete"))
		return
	}

	updated, err := mutate(c.Request.Context(), user.AddRelationRequest{
		ActorID:  identity.ID,
		TargetID: targetID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{Results: []UserResponse{toResponse(*updated)}})
}

// pathID parses the :id path parameter, responding with 400 on garbage.
func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.log.Warn("invalid user id in path", zap.String("id", idStr), zap.Error(err))
		h.respondError(c, apperrors.NewBadRequestError("User ID must be a valid number"))
		return 0, false
	}
	return id, true
}

// respondError is the centralized error responder: every failure funnels
// through here and serializes as {status, statusText, message}.
func (h *UserHandler) respondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(appErr.Status, gin.H{
		"status":     appErr.Status,
		"statusText": apperrors.StatusText(appErr.Status),
		"message":    appErr.Message,
	})
}

func toResponse(u user.User) UserResponse {
	return UserResponse{
		ID:      u.ID,
		Name:    u.Name,
		Age:     u.Age,
		Gender:  u.Gender,
		Email:   u.Email,
		Friends: toResponses(u.Friends),
		Enemies: toResponses(u.Enemies),
	}
}

func toResponses(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toResponse(u)
	}
	return out
}
