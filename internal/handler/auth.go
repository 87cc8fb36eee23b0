package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/balloon-tour-booking/internal/config"
	"github.com/iliyamo/balloon-tour-booking/internal/middleware"
	"github.com/iliyamo/balloon-tour-booking/internal/model"
	"github.com/iliyamo/balloon-tour-booking/internal/repository"
	"github.com/iliyamo/balloon-tour-booking/internal/utils"
	"github.com/iliyamo/balloon-tour-booking/internal/validation"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	if users == nil {
		panic("nil user store passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type userPart struct {
	ID       string     `json:"id"`
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Role     string     `json:"role"`
	Created  *time.Time `json:"createdAt,omitempty"`
}

type loginResp struct {
	Success bool     `json:"success"`
	User    userPart `json:"user"`
	Token   string   `json:"token"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

func (h *AuthHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	t := h.Cfg.StoreTimeout
	if t <= 0 {
		t = DefaultTimeouts.Store
	}
	return context.WithTimeout(c.Request().Context(), t)
}

func (h *AuthHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cfg.Production(),
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge > 0 {
		ck.MaxAge = int(maxAge / time.Second)
		ck.Expires = time.Now().Add(maxAge)
	} else {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
	}
	return ck
}

// Login handles POST /api/auth/login.  It checks the credentials, sets the
// session cookie and echoes the token in the body.  Unknown emails and wrong
// passwords get the same 401 and take the same bcrypt time.
func (h *AuthHandler) Login(c echo.Context) error {
	var req validation.LoginInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if msg := validation.ValidateLogin(req); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.BurnPasswordCheck(req.Password)
			return fail(c, http.StatusUnauthorized, "Invalid credentials")
		}
		c.Logger().Errorf("login: lookup %s: %v", req.Email, err)
		return fail(c, http.StatusInternalServerError, "An error occurred during login")
	}
	if !utils.VerifyPassword(u.Password, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid credentials")
	}

	ttl := h.Cfg.SessionTTL
	if req.RememberMe {
		ttl = h.Cfg.RememberMeTTL
	}
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, utils.Identity{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role}, ttl)
	if err != nil {
		c.Logger().Errorf("login: %v", err)
		return fail(c, http.StatusInternalServerError, "An error occurred during login")
	}
	c.SetCookie(h.sessionCookie(tok.Token, ttl))

	return c.JSON(http.StatusOK, loginResp{
		Success: true,
		User:    userPart{ID: u.ID.Hex(), Email: u.Email, Username: u.Username, Role: u.Role},
		Token:   tok.Token,
	})
}

// Logout handles POST /api/auth/logout by expiring the session cookie.
// Tokens are stateless, so a copied token stays valid until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", 0))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// CreateAdmin handles POST /api/auth/admin.  Only an authenticated admin
// may create another admin, except while the users collection is empty:
// the very first account can be created without a token.  The route runs
// behind OptionalJWT so the identity, if any, is already in the context.
func (h *AuthHandler) CreateAdmin(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	n, err := h.Users.Count(ctx)
	if err != nil {
		c.Logger().Errorf("create admin: count users: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to create admin account")
	}
	if n > 0 {
		if !middleware.Authenticated(c) {
			return fail(c, http.StatusUnauthorized, "You are not authenticated!")
		}
		if !middleware.HasRole(c, model.RoleAdmin) {
			return fail(c, http.StatusForbidden, "Unauthorized: Only admins can create new admin accounts")
		}
	}

	var req validation.AdminInput
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if errs := validation.ValidateAdmin(req); !errs.OK() {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "Validation failed", "errors": []string(errs)})
	}
	username := strings.TrimSpace(req.Username)

	existing, err := h.Users.FindByUsernameOrEmail(ctx, username, req.Email)
	switch {
	case err == nil:
		field := "email"
		if existing.Username == username {
			field = "username"
		}
		return userExists(c, field)
	case !errors.Is(err, repository.ErrUserNotFound):
		c.Logger().Errorf("create admin: lookup: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to create admin account")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		c.Logger().Errorf("create admin: hash: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to create admin account")
	}
	u := &model.User{Username: username, Email: req.Email, Password: hash, Role: model.RoleAdmin}
	if err := h.Users.Create(ctx, u); err != nil {
		var dup *repository.ErrUserExists
		if errors.As(err, &dup) {
			return userExists(c, dup.Field)
		}
		c.Logger().Errorf("create admin: insert: %v", err)
		return fail(c, http.StatusInternalServerError, "Failed to create admin account")
	}
	c.Logger().Infof("admin account %s created", u.Username)

	created := u.CreatedAt
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    userPart{ID: u.ID.Hex(), Email: u.Email, Username: u.Username, Role: u.Role, Created: &created},
	})
}

func userExists(c echo.Context, field string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "User already exists", "field": field})
}
