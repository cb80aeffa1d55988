package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"agrisahayak.in/agri-sahayak/internal/core"
	"agrisahayak.in/agri-sahayak/internal/store"
)

// Pinger reports whether the user directory is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type APIHandler struct {
	directory *core.DirectoryService
	queries   *core.QueryService
	db        Pinger
	logger    *zap.Logger
}

func NewAPIHandler(ds *core.DirectoryService, qs *core.QueryService, db Pinger, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{directory: ds, queries: qs, db: db, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	_, err := h.directory.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
	case errors.Is(err, core.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.logger.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

type SignupRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	StateID    *int   `json:"stateId"`
	DistrictID *int   `json:"districtId"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.StateID == nil || req.DistrictID == nil {
		Error(w, http.StatusBadRequest, "Username, password, stateId, and districtId are required.")
		return
	}

	_, err := h.directory.Signup(r.Context(), req.Username, req.Password, *req.StateID, *req.DistrictID)
	switch {
	case err == nil:
		JSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
	case errors.Is(err, store.ErrUsernameTaken):
		Error(w, http.StatusConflict, "Username already exists.")
	case errors.Is(err, core.ErrPasswordTooLong):
		Error(w, http.StatusBadRequest, "Password must be at most 72 bytes.")
	default:
		h.logger.Error("signup failed", zap.String("username", req.Username), zap.Error(err))
		Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

type UpdateRequest struct {
	Username   string  `json:"username"`
	Password   *string `json:"password,omitempty"`
	StateID    *int    `json:"stateId,omitempty"`
	DistrictID *int    `json:"districtId,omitempty"`
}

func (h *APIHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		Error(w, http.StatusBadRequest, "Username is required.")
		return
	}

	err := h.directory.UpdateUser(r.Context(), req.Username, core.ProfileChange{
		Password:   req.Password,
		StateID:    req.StateID,
		DistrictID: req.DistrictID,
	})
	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
	case errors.Is(err, store.ErrNoFields):
		Error(w, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, core.ErrPasswordTooLong):
		Error(w, http.StatusBadRequest, "Password must be at most 72 bytes.")
	case errors.Is(err, store.ErrUserNotFound):
		Error(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("profile update failed", zap.String("username", req.Username), zap.Error(err))
		Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (h *APIHandler) UserHandler(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		Error(w, http.StatusBadRequest, "Username is required.")
		return
	}

	user, err := h.directory.GetUser(r.Context(), username)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, user)
	case errors.Is(err, store.ErrUserNotFound):
		Error(w, http.StatusNotFound, "User not found.")
	default:
		h.logger.Error("user lookup failed", zap.String("username", username), zap.Error(err))
		Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func (h *APIHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		Error(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	req := &core.QueryRequest{
		Query:    r.FormValue("query"),
		Language: r.FormValue("language"),
		Fields:   r.MultipartForm.Value,
	}
	if req.Query == "" {
		Error(w, http.StatusBadRequest, "Query is required")
		return
	}

	if file, hdr, err := r.FormFile("image"); err == nil {
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			Error(w, http.StatusBadRequest, "Invalid image upload")
			return
		}
		req.Image = &core.Image{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		Error(w, http.StatusBadRequest, "Invalid image upload")
		return
	}

	resp, err := h.queries.Query(r.Context(), req)
	if err != nil {
		var be *core.BackendError
		switch {
		case errors.As(err, &be):
			Error(w, be.StatusCode, "Backend service error")
		case errors.Is(err, core.ErrMissingQuery):
			Error(w, http.StatusBadRequest, "Query is required")
		default:
			Error(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	JSON(w, http.StatusOK, json.RawMessage(resp))
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
