package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
	"github.com/nazeru/materials-marketplace-go/internal/user"
)

// DefaultTokenTTL applies when Config.TokenTTL is zero.
const DefaultTokenTTL = 7 * 24 * time.Hour

// UserService is satisfied by *user.Service.
type UserService interface {
	Register(ctx context.Context, r user.Registration) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	Profile(ctx context.Context, c domain.Caller) (domain.User, error)
	UpdateProfile(ctx context.Context, c domain.Caller, p domain.ProfilePatch) (domain.User, error)
}

type accountHandler struct {
	svc    UserService
	secret []byte
	ttl    time.Duration
}

// profileView is a user without the password hash.
type profileView struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         domain.Role      `json:"role"`
	Phone        string           `json:"phone,omitempty"`
	Address      string           `json:"address,omitempty"`
	BusinessName string           `json:"businessName,omitempty"`
	Location     *domain.GeoPoint `json:"location,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func viewOf(u domain.User) profileView {
	return profileView{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Phone:        u.Phone,
		Address:      u.Address,
		BusinessName: u.BusinessName,
		Location:     u.Location,
		CreatedAt:    u.CreatedAt,
	}
}

type accountResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
	User    profileView `json:"user"`
}

// withToken answers with u and a fresh token carrying its current name and address.
func (h *accountHandler) withToken(w http.ResponseWriter, code int, message string, u domain.User, failure string) {
	token, err := IssueToken(h.secret, u.Caller(), h.ttl)
	if err != nil {
		writeError(w, err, failure)
		return
	}
	writeJSON(w, code, accountResponse{Success: true, Message: message, Token: token, User: viewOf(u)})
}

func (h *accountHandler) register(w http.ResponseWriter, r *http.Request) {
	var req user.Registration
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeError(w, err, "Failed to register user")
		return
	}
	h.withToken(w, http.StatusCreated, "User registered successfully", u, "Failed to register user")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *accountHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err, "Failed to login")
		return
	}
	h.withToken(w, http.StatusOK, "Login successful", u, "Failed to login")
}

func (h *accountHandler) profile(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	u, err := h.svc.Profile(r.Context(), c)
	if err != nil {
		writeError(w, err, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{Success: true, User: viewOf(u)})
}

func (h *accountHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	c, _ := CallerFrom(r.Context())
	var patch domain.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), c, patch)
	if err != nil {
		writeError(w, err, "Failed to update profile")
		return
	}
	h.withToken(w, http.StatusOK, "Profile updated successfully", u, "Failed to update profile")
}
