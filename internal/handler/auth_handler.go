/*
Package handler provides the HTTP handlers and routing setup for the messaging hub.

This file contains the account registration and login handlers that issue the
JWTs the session gateway verifies on connect.
*/
package handler

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"cesuchat/internal/app/db"
	"cesuchat/internal/pkg/auth/jwt"
	"cesuchat/internal/pkg/errs"
	"cesuchat/internal/pkg/logx"
	"cesuchat/internal/pkg/req"
	"cesuchat/internal/pkg/resp"
)

const minPasswordLength = 8

type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// HandleRegister creates an HTTP HandlerFunc to process account registration.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Email = strings.TrimSpace(strings.ToLower(input.Email))
		if input.Email == "" || !strings.Contains(input.Email, "@") || len(input.Password) < minPasswordLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			logx.Error(err, "Failed to hash password")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		userID, err := deps.Users.CreateAccount(r.Context(), input.Email, input.Name, string(hash))
		if err != nil {
			if db.IsUniqueViolation(err) {
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}
			logx.Error(err, "Failed to create account", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"id":    userID,
			"email": input.Email,
		}
		resp.RespondSuccess(w, r, data)
	}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin checks credentials and issues a signed identity token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Email = strings.TrimSpace(strings.ToLower(input.Email))

		account, err := deps.Users.FindAccountByEmail(r.Context(), input.Email)
		if err != nil {
			logx.Error(err, "Account lookup failed", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if account == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		payload := &jwt.Payload{
			ID:    account.ID,
			Email: account.Email,
		}

		tokenString, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.IdentityExpiration)
		if err != nil {
			logx.Error(err, "Failed to generate token", "user_id", account.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"token": tokenString,
			"user": map[string]any{
				"id":    account.ID,
				"email": account.Email,
				"name":  account.Name,
			},
		}
		resp.RespondSuccess(w, r, data)
	}
}
