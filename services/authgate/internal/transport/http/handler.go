// services/authgate/internal/transport/http/handler.go
package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/authctx"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/autherr"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/middleware"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/response"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	uc      usecase.Handler
	cookies middleware.CookieConfig
	log     *logger.Logger
}

func NewHandler(uc usecase.Handler, cookies middleware.CookieConfig, log *logger.Logger) *Handler {
	return &Handler{uc: uc, cookies: cookies, log: log.Named("handler")}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.log.WithContext(r.Context()).Debug("bad request body", zap.String("path", r.URL.Path), zap.Error(err))
		return autherr.Invalid("invalid json")
	}
	return nil
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req usecase.LoginInput
	if err := h.decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	sess, err := h.uc.Login.Handle(r.Context(), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.SetTokens(w, sess.AccessToken, sess.RefreshToken, sess.TTL.Access, sess.TTL.Refresh)
	response.JSON(w, http.StatusOK, loginResponse{AccessToken: sess.AccessToken, TokenType: "bearer"})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterInput
	if err := h.decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if _, err := h.uc.Register.Handle(r.Context(), req); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, messageResponse{Message: "User created successfully"})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := authctx.CurrentUser(r.Context())
	if !ok {
		response.Error(w, autherr.New(autherr.TokenMissing))
		return
	}
	if err := h.uc.Logout.Handle(r.Context(), user.ID); err != nil {
		response.Error(w, err)
		return
	}
	h.cookies.ClearTokens(w)
	response.JSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := authctx.CurrentUser(r.Context())
	if !ok {
		response.Error(w, autherr.New(autherr.TokenMissing))
		return
	}
	response.JSON(w, http.StatusOK, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, autherr.Invalid("invalid user id"))
		return
	}
	user, err := h.uc.Users.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, user)
}

func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}
