package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socialpulse/backend/internal/app/service/auth"
	"github.com/socialpulse/backend/pkg/response"
	"github.com/socialpulse/backend/pkg/types"
)

type requestCodeReq struct {
	Email   string `json:"email" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
}

type registerReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	Code     string `json:"code" binding:"required"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type resetPasswordReq struct {
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type sessionResp struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// @Summary      Request verification code
// @Description  Emails a 6-digit code for registration or password reset.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body requestCodeReq true "Code request"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/auth/request-code [post]
func ApiRequestCode(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requestCodeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := a.RequestVerificationCode(c.Request.Context(), types.VerificationPurpose(req.Purpose), req.Email); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Register
// @Description  Creates an account once the emailed code is confirmed.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body registerReq true "Registration"
// @Success      200  {object}  response.APIResponse[sessionResp]
// @Router       /api/v1/auth/register [post]
func ApiRegister(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		user, token, err := a.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Code)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sessionResp{Token: token, User: user}))
	}
}

// @Summary      Login
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body loginReq true "Credentials"
// @Success      200  {object}  response.APIResponse[sessionResp]
// @Router       /api/v1/auth/login [post]
func ApiLogin(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		user, token, err := a.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sessionResp{Token: token, User: user}))
	}
}

// @Summary      Logout
// @Description  Revokes the presented token until it expires.
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/auth/logout [post]
func ApiLogout(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get("claims")
		claims, ok := v.(*auth.Claims)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "no session"))
			return
		}
		if err := a.Logout(c.Request.Context(), claims); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Change password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body changePasswordReq true "Passwords"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/auth/change-password [post]
func ApiChangePassword(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := a.ChangePassword(c.Request.Context(), userID(c), req.CurrentPassword, req.NewPassword); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Reset password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body resetPasswordReq true "Reset"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/auth/reset-password [post]
func ApiResetPassword(a *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resetPasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := a.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAuthRoutes(r gin.IRouter, protected gin.IRouter, a *auth.Service) {
	r.POST("/request-code", ApiRequestCode(a))
	r.POST("/register", ApiRegister(a))
	r.POST("/login", ApiLogin(a))
	r.POST("/reset-password", ApiResetPassword(a))
	protected.POST("/logout", ApiLogout(a))
	protected.POST("/change-password", ApiChangePassword(a))
}
