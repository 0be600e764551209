package blog

import (
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
)

type credentialsRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type userInfoResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	RememberMe bool      `json:"rememberMe"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[credentialsRequest](w, r)
	if !ok {
		return
	}

	user, err := a.users.Register(req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, user)
}

// Login checks the password and issues a session of the requested class.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[credentialsRequest](w, r)
	if !ok {
		return
	}

	user, err := a.users.Authenticate(req.Username, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	tok, err := a.gate.IssueSession(r.Context(), map[string]any{
		"id":       user.ID,
		"username": user.Username,
	}, req.RememberMe)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, tok)
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := goGate.IdentityFromContext(r.Context())
	if err := a.gate.Logout(r.Context(), id.Token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, goGate.CodeSuccess, "logged out")
}

// Refresh rotates the caller's token. The old token stops working immediately.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	id, _ := goGate.IdentityFromContext(r.Context())
	tok, err := a.gate.Refresh(r.Context(), id.Token)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeData(w, tok)
}

// UpdatePassword changes the password and revokes the current session.
func (a *API) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[updatePasswordRequest](w, r)
	if !ok {
		return
	}

	id, _ := goGate.IdentityFromContext(r.Context())
	if err := a.users.UpdatePassword(id.UserID, req.OldPassword, req.NewPassword); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.gate.Revoke(r.Context(), id.Token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, goGate.CodeSuccess, "password updated, please log in again")
}

func (a *API) UserInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := goGate.IdentityFromContext(r.Context())
	writeData(w, userInfoResponse{
		ID:         id.UserID,
		Username:   id.Username,
		RememberMe: id.RememberMe,
		ExpiresAt:  id.ExpiresAt,
	})
}
