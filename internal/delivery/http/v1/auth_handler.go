package v1

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go-panel-backend/internal/delivery/http/middleware"
	"go-panel-backend/internal/delivery/http/response"
	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/auth"
	"go-panel-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

type AuthHandler struct {
	sessionUC   domain.SessionUsecase
	cookies     middleware.SessionCookies
	sockets     *Sockets
	frontendURL string
	maxUpload   int64
}

type AuthHandlerConfig struct {
	Cookies     middleware.SessionCookies
	Sockets     *Sockets
	FrontendURL string
	MaxUpload   int64
	// Strict guards credential endpoints, Upload guards the avatar upload.
	Strict gin.HandlerFunc
	Upload gin.HandlerFunc
}

func NewAuthHandler(public *gin.RouterGroup, sessionUC domain.SessionUsecase, cfg AuthHandlerConfig) {
	handler := &AuthHandler{
		sessionUC:   sessionUC,
		cookies:     cfg.Cookies,
		sockets:     cfg.Sockets,
		frontendURL: cfg.FrontendURL,
		maxUpload:   cfg.MaxUpload,
	}

	strict := orPass(cfg.Strict)
	upload := orPass(cfg.Upload)

	authGroup := public.Group("/auth")
	{
		authGroup.POST("/register", strict, upload, handler.Register)
		authGroup.POST("/login", strict, handler.Login)
		authGroup.GET("/google/login", handler.GoogleLogin)
		authGroup.GET("/google/callback", handler.GoogleCallback)
		authGroup.POST("/password-reset", strict, handler.ResetPassword)
		authGroup.POST("/password-reset/confirm", strict, handler.ConfirmPasswordReset)
		authGroup.POST("/logout", handler.Logout)
		authGroup.GET("/session", handler.Session)
		authGroup.GET("/session/watch", handler.WatchSession)
	}
	public.GET("/shell", handler.Shell)
}

func orPass(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type ConfirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Register godoc
// @Summary      Register with email and password
// @Description  Creates the account, uploads the optional avatar and stores the profile. The client slot is signed in on success.
// @Tags         auth
// @Accept       multipart/form-data
// @Produce      json
// @Param        email     formData  string  true   "Email"
// @Param        password  formData  string  true   "Password (min 6 characters)"
// @Param        username  formData  string  false  "Display username"
// @Param        avatar    formData  file    false  "Avatar image"
// @Success      201  {object}  response.Response{data=domain.Session}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var input domain.RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		c.Error(apperror.BadRequest(apperror.MsgUnexpected))
		return
	}

	avatar, err := formUpload(c, "avatar", h.maxUpload)
	if err != nil {
		c.Error(apperror.BadRequest(apperror.MsgStorageFailed))
		return
	}
	input.Avatar = avatar

	cs, ok := h.signInSlot(c)
	if !ok {
		return
	}
	session, err := h.sessionUC.Register(c.Request.Context(), cs, input)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Cuenta creada", session)
}

// Login godoc
// @Summary      Sign in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        login  body      LoginRequest  true  "Credentials"
// @Success      200    {object}  response.Response{data=domain.Session}
// @Failure      400    {object}  response.Response
// @Failure      401    {object}  response.Response
// @Failure      429    {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(apperror.MsgUnexpected))
		return
	}

	cs, ok := h.signInSlot(c)
	if !ok {
		return
	}
	session, err := h.sessionUC.Login(c.Request.Context(), cs, req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Sesión iniciada", session)
}

// GoogleLogin godoc
// @Summary      Start Google sign-in
// @Description  Redirects to the Google consent screen. The callback completes the sign-in and returns to the frontend.
// @Tags         auth
// @Success      302
// @Failure      403  {object}  response.Response
// @Router       /auth/google/login [get]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		c.Error(apperror.Internal(err))
		return
	}

	consentURL, err := h.sessionUC.GoogleConsentURL(state)
	if err != nil {
		c.Error(err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int(oauthStateTTL.Seconds()), "/", "", h.cookies.Secure, true)
	c.Redirect(http.StatusFound, consentURL)
}

// GoogleCallback godoc
// @Summary      Google sign-in callback
// @Description  Exchanges the authorization code and redirects to the frontend. Failures carry auth_error and message query parameters.
// @Tags         auth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  false  "Opaque state"
// @Param        error  query  string  false  "Consent error"
// @Success      302
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	expected, _ := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cookies.Secure, true)

	if c.Query("error") != "" {
		h.redirectAuthError(c, apperror.CodePopupClosed)
		return
	}
	if expected == "" || c.Query("state") != expected {
		h.redirectAuthError(c, apperror.CodeCancelledPopup)
		return
	}

	cs, ok := h.signInSlot(c)
	if !ok {
		return
	}
	_, err := h.sessionUC.LoginWithGoogle(c.Request.Context(), cs, c.Query("code"))
	if err != nil {
		code := apperror.AuthCodeOf(err)
		if code == "" {
			logger.Log.Error("google sign-in failed", "error", err)
			code = apperror.CodeInternal
		}
		h.redirectAuthError(c, code)
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"/")
}

// signInSlot rotates the client_session cookie before a sign-in binds an
// account, so a slot id held before authentication is never the one that
// ends up signed in.
func (h *AuthHandler) signInSlot(c *gin.Context) (domain.ClientSession, bool) {
	cs, err := h.cookies.Rotate(c)
	if err != nil {
		c.Error(apperror.Internal(err))
		return domain.ClientSession{}, false
	}
	return cs, true
}

func (h *AuthHandler) redirectAuthError(c *gin.Context, code string) {
	q := url.Values{}
	q.Set("auth_error", code)
	q.Set("message", apperror.AuthMessage(code))
	c.Redirect(http.StatusFound, h.frontendURL+"/login?"+q.Encode())
}

// ResetPassword godoc
// @Summary      Send a password reset email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ResetPasswordRequest  true  "Account email"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/password-reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(apperror.MsgUnexpected))
		return
	}

	if err := h.sessionUC.ResetPassword(c.Request.Context(), req.Email); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Te enviamos un correo para restablecer tu contraseña.", nil)
}

// ConfirmPasswordReset godoc
// @Summary      Set a new password with a reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      ConfirmResetRequest  true  "Token and new password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /auth/password-reset/confirm [post]
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req ConfirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(apperror.MsgUnexpected))
		return
	}

	if err := h.sessionUC.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Tu contraseña fue actualizada.", nil)
}

// Logout godoc
// @Summary      Sign out the current client slot
// @Description  Always succeeds locally; the slot cookie is rotated.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessionUC.Logout(c.Request.Context(), middleware.ClientSessionFrom(c)); err != nil {
		c.Error(err)
		return
	}
	if _, err := h.cookies.Rotate(c); err != nil {
		logger.Log.Error("client session rotation failed", "error", err)
	}

	response.Success(c, http.StatusOK, "Sesión cerrada", nil)
}

// Session godoc
// @Summary      Current merged session
// @Description  data is null when the client slot is signed out.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Session}
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	session, err := h.sessionUC.CurrentSession(c.Request.Context(), middleware.ClientSessionFrom(c))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "OK", session)
}

// Shell godoc
// @Summary      Navigation shell
// @Description  Screens to render, the current session, and whether to show the login prompt.
// @Tags         shell
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.Shell}
// @Router       /shell [get]
func (h *AuthHandler) Shell(c *gin.Context) {
	response.Success(c, http.StatusOK, "OK", h.sessionUC.Shell(c.Request.Context(), middleware.ClientSessionFrom(c)))
}

// WatchSession godoc
// @Summary      Live session stream (websocket)
// @Description  Sends {"type":"session","session":...} right away and after every sign-in, sign-out or profile refresh of the client slot. session is omitted when signed out.
// @Tags         auth
// @Success      101
// @Router       /auth/session/watch [get]
func (h *AuthHandler) WatchSession(c *gin.Context) {
	sock, err := h.sockets.upgrade(c)
	if err != nil {
		logger.Log.Warn("session websocket upgrade failed", "error", err)
		return
	}
	defer sock.conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	unsubscribe := h.sessionUC.ObserveSession(ctx, middleware.ClientSessionFrom(c), func(s *domain.Session) {
		frame := Frame{Type: "session"}
		if s != nil {
			frame.Session = s
		}
		if err := sock.write(frame); err != nil {
			cancel()
		}
	})
	defer unsubscribe()

	go sock.keepAlive(ctx, cancel)

	// The client never sends anything meaningful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := sock.conn.NextReader(); err != nil {
				return
			}
		}
	}()

	<-ctx.Done()
}
