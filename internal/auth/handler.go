package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"noshow-predictor/internal/httpjson"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func RegisterHandler(a *Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		err := a.Register(r.Context(), req.Username, req.Password)
		switch {
		case errors.Is(err, ErrInvalidInput):
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, ErrUsernameTaken):
			httpjson.Error(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			httpjson.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
	}
}

func LoginHandler(a *Authenticator, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		s, err := a.Login(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			httpjson.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			httpjson.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		tokenString, err := tokens.Issue(s.Username)
		if err != nil {
			httpjson.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		httpjson.Write(w, http.StatusOK, map[string]string{"token": tokenString})
	}
}
