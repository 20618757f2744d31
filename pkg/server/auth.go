package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chatlens/chatlens/pkg/api"
	"github.com/chatlens/chatlens/pkg/auth"
)

const (
	msgLoginRequired      = "กรุณาเข้าสู่ระบบ"
	msgInvalidCredentials = "ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง"
	msgLockedOut          = "พยายามเข้าสู่ระบบผิดหลายครั้งเกินไป กรุณาลองใหม่ในอีก %d นาที"
	msgForbidden          = "คุณไม่มีสิทธิ์เข้าถึงส่วนนี้"
	msgWeakPassword       = "รหัสผ่านไม่ปลอดภัยเพียงพอ"
)

// bearerToken reads the session token from the Authorization header. Browsers
// cannot set headers on websocket requests, so the token query parameter is
// accepted as well.
func bearerToken(req *http.Request) string {
	if h := req.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return req.URL.Query().Get("token")
}

// authorize rejects requests without a live session of at least the required role.
func (s *Server) authorize(required auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		session, ok := s.auth.Authenticate(bearerToken(req))
		if !ok {
			failureResponse(w, http.StatusUnauthorized, msgLoginRequired)
			return
		}
		if !session.Role.Allows(required) {
			log.WithFields(log.Fields{
				"user":     session.Username,
				"role":     session.Role,
				"required": required,
				"path":     req.URL.Path,
			}).Warning("request denied")
			failureResponse(w, http.StatusForbidden, msgForbidden)
			return
		}
		next(w, req.WithContext(auth.WithSession(req.Context(), session)))
	}
}

type userResponse struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	Role        auth.Role `json:"role"`
	RoleDisplay string    `json:"role_display"`
}

func sessionUser(s auth.Session) userResponse {
	return userResponse{
		ID:          s.UserID,
		Username:    s.Username,
		FullName:    s.FullName,
		Role:        s.Role,
		RoleDisplay: s.Role.DisplayName(),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func (s *Server) login(w http.ResponseWriter, req *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	session, err := s.auth.Login(req.Context(), in.Username, in.Password)
	var limited *auth.ErrRateLimited
	switch {
	case errors.As(err, &limited):
		minutes := int(math.Ceil(limited.RetryAfter.Minutes()))
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		failureResponse(w, http.StatusTooManyRequests, fmt.Sprintf(msgLockedOut, minutes))
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		failureResponse(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	case err != nil:
		log.WithError(err).Error("login failed")
		failureResponse(w, http.StatusInternalServerError, "login failed")
		return
	}

	api.RespondWithJSON(http.StatusOK, w, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      sessionUser(*session),
	})
}

func (s *Server) logout(w http.ResponseWriter, req *http.Request) {
	s.auth.Logout(bearerToken(req))
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{"success": true})
}

func (s *Server) me(w http.ResponseWriter, req *http.Request) {
	session, _ := auth.FromContext(req.Context())
	api.RespondWithJSON(http.StatusOK, w, sessionUser(session))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) changePassword(w http.ResponseWriter, req *http.Request) {
	var in changePasswordRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	session, _ := auth.FromContext(req.Context())

	err := s.auth.ChangePassword(req.Context(), session, in.CurrentPassword, in.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		failureResponse(w, http.StatusBadRequest, "รหัสผ่านปัจจุบันไม่ถูกต้อง")
		return
	case errors.Is(err, auth.ErrWeakPassword):
		failureResponse(w, http.StatusBadRequest, msgWeakPassword)
		return
	case err != nil:
		log.WithError(err).Error("password change failed")
		failureResponse(w, http.StatusInternalServerError, "password change failed")
		return
	}
	api.RespondWithJSON(http.StatusOK, w, map[string]interface{}{"success": true})
}

type createUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     auth.Role `json:"role"`
}

func (s *Server) createUser(w http.ResponseWriter, req *http.Request) {
	var in createUserRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		failureResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	session, _ := auth.FromContext(req.Context())

	user, err := s.auth.CreateUser(req.Context(), session, auth.NewUser{
		Username: in.Username,
		Password: in.Password,
		Email:    in.Email,
		FullName: in.FullName,
		Role:     in.Role,
	})
	switch {
	case errors.Is(err, auth.ErrForbidden):
		failureResponse(w, http.StatusForbidden, msgForbidden)
		return
	case errors.Is(err, auth.ErrWeakPassword):
		failureResponse(w, http.StatusBadRequest, msgWeakPassword+": "+err.Error())
		return
	case errors.Is(err, auth.ErrInvalidUser):
		failureResponse(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.WithError(err).Error("user creation failed")
		failureResponse(w, http.StatusInternalServerError, "user creation failed")
		return
	}
	api.RespondWithJSON(http.StatusCreated, w, user)
}
