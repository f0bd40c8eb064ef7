// Package httpapi exposes the engine over HTTP with gin. The surface is a
// thin translation layer: request binding, bearer-token extraction, and the
// mapping from the engine's error taxonomy to status codes.
package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/authkit-go/authkit"
)

// Server carries the handlers' dependencies.
type Server struct {
	engine *authkit.Engine
	log    *slog.Logger
}

// NewServer builds a Server around engine.
func NewServer(engine *authkit.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, log: log}
}

// Router builds the gin engine with all auth routes mounted under /auth.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	auth := router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.handleLogout)
		auth.POST("/forgot-password", s.handleForgotPassword)
		auth.POST("/reset-password", s.handleResetPassword)
		auth.GET("/me", s.RequireAuth(), s.handleMe)
	}

	return router
}

// statusFor maps taxonomy codes to HTTP statuses.
func statusFor(err *authkit.Error) int {
	switch err {
	case authkit.ErrUserExists, authkit.ErrValidation, authkit.ErrResetInvalid:
		return http.StatusBadRequest
	case authkit.ErrAccountNotFound:
		return http.StatusNotFound
	case authkit.ErrInvalidCredentials, authkit.ErrTokenInvalid:
		return http.StatusUnauthorized
	case authkit.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	pub := authkit.PublicError(err)
	if pub == authkit.ErrStoreUnavailable {
		s.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.AbortWithStatusJSON(statusFor(pub), gin.H{
		"code":    pub.Code,
		"message": pub.Message,
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, authkit.ErrValidation)
		return
	}

	user, err := s.engine.Register(c.Request.Context(), authkit.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, authkit.ErrValidation)
		return
	}

	pair, err := s.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, authkit.ErrValidation)
		return
	}

	pair, err := s.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// handleLogout accepts the access token either as a bearer header or in the
// body, and always answers 204: logout cannot fail from the client's view.
func (s *Server) handleLogout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		var req struct {
			AccessToken string `json:"accessToken"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.AccessToken
		}
	}

	if token != "" {
		s.engine.Logout(c.Request.Context(), token)
	}
	c.Status(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, authkit.ErrValidation)
		return
	}

	if err := s.engine.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reset link sent"})
}

type resetPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, authkit.ErrValidation)
		return
	}

	if err := s.engine.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

const userContextKey = "authkit.user"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// RequireAuth authenticates the bearer token and stores the user in the
// request context for downstream handlers.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			s.writeError(c, authkit.ErrTokenInvalid)
			return
		}

		user, err := s.engine.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by [Server.RequireAuth], or nil.
func CurrentUser(c *gin.Context) *authkit.User {
	if v, ok := c.Get(userContextKey); ok {
		if u, ok := v.(*authkit.User); ok {
			return u
		}
	}
	return nil
}

func (s *Server) handleMe(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		s.writeError(c, authkit.ErrTokenInvalid)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
