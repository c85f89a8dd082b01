package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/app/repository"
	"github.com/lumichat/lumichat/internal/pkg/auth"
	"github.com/lumichat/lumichat/internal/pkg/cache"
	"github.com/lumichat/lumichat/internal/pkg/database"
	"github.com/lumichat/lumichat/internal/pkg/env"
	"github.com/lumichat/lumichat/internal/pkg/middleware"
	"github.com/lumichat/lumichat/internal/pkg/referral"
	"github.com/lumichat/lumichat/internal/pkg/utils"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
	"gorm.io/gorm"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitation_code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a user account. Registration requires a valid
// invitation code; the resulting referral edges are immutable afterwards.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return respondFail(c, fiber.StatusBadRequest, "email and password are required")
	}
	if req.InvitationCode == "" {
		return respondFail(c, fiber.StatusBadRequest, "invitation code is required")
	}

	db := database.GetDB()
	userRepo := repository.GetGlobalRepositories().User

	inviter, err := userRepo.GetByInviteCode(req.InvitationCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondFail(c, fiber.StatusBadRequest, "invalid invitation code")
		}
		return respondFail(c, fiber.StatusInternalServerError, "registration failed")
	}

	if _, err := userRepo.GetByEmail(req.Email); err == nil {
		return respondFail(c, fiber.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondFail(c, fiber.StatusInternalServerError, "registration failed")
	}

	user, err := models.CreateUser(req.Email, req.Password)
	if err != nil {
		return respondFail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := userRepo.Create(user); err != nil {
		return respondFail(c, fiber.StatusInternalServerError, "registration failed")
	}

	cascade := referral.NewCascadeFromEnv(referral.NewRepository(db), wallet.NewLedger(db))
	if err := cascade.RecordEdges(context.Background(), inviter.ID, user.ID); err != nil {
		// The account exists; missing edges only cost future rewards and
		// are recoverable by support.
		log.Printf("failed to record referral edges for user %d: %v", user.ID, err)
	}

	return respondSuccess(c, fiber.Map{"id": user.ID, "invite_code": user.InviteCode})
}

// HandleLogin verifies credentials and issues a JWT mirrored into Redis.
// A still-valid cached token is reused instead of minting a new one.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondFail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return respondFail(c, fiber.StatusBadRequest, "email and password are required")
	}

	user, err := repository.GetGlobalRepositories().User.GetByEmail(req.Email)
	if err != nil {
		return respondFail(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !user.CheckPassword(req.Password) {
		return respondFail(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !user.IsActive() {
		return respondFail(c, fiber.StatusForbidden, "account disabled")
	}

	token, err := cache.Get(middleware.TokenCacheKey(user.Email))
	if err != nil || token == "" {
		token, err = auth.GenerateToken(user.ID, user.Email, user.Role)
		if err != nil {
			return respondFail(c, fiber.StatusInternalServerError, "login failed")
		}
		if err := cache.Set(middleware.TokenCacheKey(user.Email), token, auth.TokenTTL); err != nil {
			return respondFail(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(auth.TokenTTL),
		HTTPOnly: true,
	})
	return respondSuccess(c, fiber.Map{
		"token":  token,
		"avatar": utils.GetGravatarURL(user.Email, 200),
	})
}

// HandleLogout drops the Redis token mirror and clears the cookie.
func HandleLogout(c *fiber.Ctx) error {
	token := c.Cookies("token")
	if token != "" {
		if claims, err := auth.ParseToken(token); err == nil {
			_ = cache.Delete(middleware.TokenCacheKey(claims.Email))
		}
	}
	c.ClearCookie("token")
	return respondSuccess(c, nil)
}

// HandleSession reports whether server-side auth is configured and which
// chat model is active.
func HandleSession(c *fiber.Ctx) error {
	hasAuth := env.GetEnv("AUTH_SECRET", "") != ""
	return respondSuccess(c, fiber.Map{
		"auth":  hasAuth,
		"model": env.GetEnv("OPENAI_API_MODEL", "gpt-3.5-turbo"),
	})
}
