package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-user-registry/internal/application"
	"github.com/oksasatya/go-user-registry/internal/domain/entity"
	"github.com/oksasatya/go-user-registry/pkg/response"
	"github.com/oksasatya/go-user-registry/pkg/validation"
)

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
	// BasePath is the mounted path of the user routes, used for Location headers.
	BasePath string
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, basePath string) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, BasePath: basePath}
}

type createUserRequest struct {
	Name      string `json:"name" binding:"required,min=3,max=100"`
	Email     string `json:"email" binding:"required,email,max=100"`
	Password  string `json:"password" binding:"required,min=6"`
	BirthDate string `json:"birth_date" binding:"required,birthdate,adult"`
	Phone     string `json:"phone" binding:"omitempty,max=15,phone_br"`
}

type updateUserRequest struct {
	Name      string `json:"name" binding:"required,min=3,max=100"`
	Email     string `json:"email" binding:"required,email,max=100"`
	Password  string `json:"password" binding:"omitempty,min=6"`
	BirthDate string `json:"birth_date" binding:"required,birthdate,adult"`
	Phone     string `json:"phone" binding:"omitempty,max=15,phone_br"`
	Active    *bool  `json:"active"`
}

type emailQuery struct {
	Value string `form:"value" binding:"required,email,max=100"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size"`
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list users failed", err)
		return
	}
	response.Success(c, http.StatusOK, users, "users", nil)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	u, found, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "get user failed", err)
		return
	}
	if !found {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "user", nil)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	birth, _ := validation.ParseBirthDate(req.BirthDate)

	u, err := h.Svc.Create(c.Request.Context(), userapp.CreateInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BirthDate: birth,
		Phone:     req.Phone,
	})
	if err != nil {
		h.writeError(c, "create user failed", err)
		return
	}
	c.Header("Location", h.BasePath+"/"+strconv.FormatInt(u.ID, 10))
	response.Success(c, http.StatusCreated, u, "user created", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	birth, _ := validation.ParseBirthDate(req.BirthDate)

	u, err := h.Svc.Update(c.Request.Context(), id, userapp.UpdateInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		BirthDate: birth,
		Phone:     req.Phone,
		Active:    req.Active,
	})
	if err != nil {
		h.writeError(c, "update user failed", err)
		return
	}
	response.Success(c, http.StatusOK, u, "user updated", nil)
}

// Delete deactivates the user; the record stays readable.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	removed, err := h.Svc.Remove(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "deactivate user failed", err)
		return
	}
	if !removed {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) EmailTaken(c *gin.Context) {
	var q emailQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	taken, err := h.Svc.EmailTaken(c.Request.Context(), q.Value)
	if err != nil {
		h.internalError(c, "email lookup failed", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"email": entity.NormalizeEmail(q.Value),
		"taken": taken,
	}, "email availability", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	users, err := h.Svc.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.internalError(c, "search users failed", err)
		return
	}
	response.Success(c, http.StatusOK, users, "search results", nil)
}

// pathID parses :id. Anything that is not a positive integer cannot name a
// user, so it answers 404 like an unknown id would.
func (h *UserHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return 0, false
	}
	return id, true
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, userapp.ErrDuplicateEmail), errors.Is(err, userapp.ErrUnderAge):
		return http.StatusConflict
	case errors.Is(err, userapp.ErrUserNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *UserHandler) writeError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.internalError(c, msg, err)
		return
	}
	response.Error[any](c, status, http.StatusText(status), err.Error())
}

func (h *UserHandler) internalError(c *gin.Context, msg string, err error) {
	if h.Logger != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error(msg)
	}
	response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
}
