package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"

	"tourhub/config"
	"tourhub/internal/logger"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "oauth_state"

type GoogleOAuthHandler struct {
	cfg     *config.Config
	authSvc *service.AuthService
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		respondFail(c, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return false
	}
	return true
}

// Redirect sends the browser to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		respondFail(c, http.StatusInternalServerError, "Something went wrong")
		return
	}
	state := hex.EncodeToString(buf)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code, loads the Google profile and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	if state, _ := c.Cookie(oauthStateCookie); state == "" || state != c.Query("state") {
		respondFail(c, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		respondFail(c, http.StatusBadRequest, "Missing code")
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Code exchange failed")
		return
	}
	resp, err := conf.Client(ctx, tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		respondFail(c, http.StatusBadGateway, "Failed to get user info")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondFail(c, http.StatusBadGateway, "Failed to get user info")
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		respondFail(c, http.StatusBadGateway, "Invalid user info")
		return
	}
	h.signIn(c, info.ID, info.Email, info.Name, info.Picture)
}

// tokeninfoResponse is the response from https://oauth2.googleapis.com/tokeninfo?id_token=...
type tokeninfoResponse struct {
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Token accepts an ID token obtained by a mobile client.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, "id_token is required")
		return
	}
	httpReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet,
		"https://oauth2.googleapis.com/tokeninfo?id_token="+url.QueryEscape(req.IDToken), nil)
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Invalid id_token")
		return
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		respondFail(c, http.StatusBadGateway, "Token verification failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondFail(c, http.StatusUnauthorized, "Invalid id_token")
		return
	}
	var info tokeninfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		respondFail(c, http.StatusBadGateway, "Invalid token response")
		return
	}
	if info.Sub == "" || info.Email == "" || info.Aud != h.cfg.OAuth.GoogleClientID {
		respondFail(c, http.StatusUnauthorized, "Invalid id_token")
		return
	}
	h.signIn(c, info.Sub, info.Email, info.Name, info.Picture)
}

func (h *GoogleOAuthHandler) signIn(c *gin.Context, googleID, email, name, picture string) {
	u, tokens, isNew, err := h.authSvc.LoginWithGoogle(googleID, email, name, picture)
	if err != nil {
		respondError(c, err)
		return
	}
	if isNew {
		logger.For("auth").WithField("user_id", u.ID).Info("tourist registered with google")
	}
	c.SetCookie(refreshCookie, tokens.RefreshToken, 0, "/", "", c.Request.TLS != nil, true)
	respondOK(c, "Logged in successfully", gin.H{
		"user":          u,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"is_new":        isNew,
	})
}
