package v1handler

import (
	"io"
	"net/http"
	"strconv"

	"userapi/internal/users"
	"userapi/pkg/domain"
	"userapi/pkg/logger"
	"userapi/pkg/serrors"

	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// MaxBodyBytes caps the size of request bodies.
const MaxBodyBytes = 1 << 20

const malformedUserBody = "Malformed user payload."

type Deps struct {
	Users users.Service
}

type Handler struct {
	deps Deps
	sec  *SecHandler
}

// New creates a Handler. A nil sec disables authentication.
func New(deps Deps, sec *SecHandler) *Handler {
	if sec == nil {
		sec = &SecHandler{}
	}

	return &Handler{deps: deps, sec: sec}
}

// Register adds the v1 routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{id}", h.GetUser)
	mux.HandleFunc("POST /users", h.sec.Require(h, h.CreateUser))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "User ID must be an integer."))

		return
	}

	user, err := h.deps.Users.User(r.Context(), domain.UserID(id))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	h.writeUser(w, r, http.StatusOK, user)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "Could not read request body."))

		return
	}

	// one JSON value and nothing after it
	if !jx.Valid(body) {
		h.writeError(w, r, serrors.With(serrors.ErrBadRequest, malformedUserBody))

		return
	}

	in, err := DecodeUser(jx.DecodeBytes(body))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, malformedUserBody))

		return
	}

	user, err := h.deps.Users.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	logger.Info(r.Context(), "user created", zap.Int64("userID", int64(user.ID)))
	w.Header().Set("Location", "/users/"+strconv.FormatInt(int64(user.ID), 10))
	h.writeUser(w, r, http.StatusCreated, user)
}

func (h *Handler) writeUser(w http.ResponseWriter, r *http.Request, status int, user *domain.User) {
	var e jx.Encoder
	EncodeUser(&e, user)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		logger.Warn(r.Context(), "could not write response", zap.Error(err))
	}
}
