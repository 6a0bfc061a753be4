package handlers

import (
	"errors"

	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/middleware"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Register(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// VerifyOTC settles a pending code. Signup verification returns a session
// token; reset verification returns an assertion the client presents back
// with the new password.
func (h *AuthHandler) VerifyOTC(c *fiber.Ctx) error {
	var req dto.VerifyOTCRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	auth, verified, err := h.authService.VerifyOTC(c.Context(), &req)
	if err != nil {
		// Surface the email so the client can offer a one-tap resend.
		if errors.Is(err, services.ErrCodeExpired) || errors.Is(err, services.ErrNoActiveCode) {
			return c.Status(statusFor(err)).JSON(dto.ErrorResponse{
				Error: true, Code: codeOf(err), Message: err.Error(), Email: req.Email,
			})
		}
		return respondError(c, err)
	}
	if verified != nil {
		return c.JSON(verified)
	}
	return c.JSON(auth)
}

func (h *AuthHandler) ResendOTC(c *fiber.Ctx) error {
	var req dto.ResendOTCRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.ResendOTC(c.Context(), &req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "a new code has been sent to your email"})
}

func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "a reset code has been sent to your email"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.ResetPassword(c.Context(), &req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "password updated; you can now log in"})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Login(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// OwnerLogin is the content-owner door: same credentials, owner or admin
// role required.
func (h *AuthHandler) OwnerLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Login(c.Context(), &req, models.RoleOwner, models.RoleAdmin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) GoogleSignIn(c *fiber.Ctx) error {
	var req dto.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.GoogleSignIn(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.authService.GetAccount(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) GetAccount(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid account id")
	}
	if !caller.Can(targetID) {
		return respondError(c, services.ErrForbidden)
	}

	resp, err := h.authService.GetAccount(c.Context(), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) UpdateAccount(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid account id")
	}

	var req dto.UpdateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.UpdateAccount(c.Context(), caller, targetID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	caller, err := middleware.GetPrincipal(c)
	if err != nil {
		return unauthorized(c)
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badParam(c, "invalid account id")
	}

	if err := h.authService.DeleteAccount(c.Context(), caller, targetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "account deleted"})
}
