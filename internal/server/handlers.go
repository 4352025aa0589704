package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/donia1222/remix-crypto-sub000/internal/auth"
	"github.com/donia1222/remix-crypto-sub000/internal/connection"
	"github.com/donia1222/remix-crypto-sub000/internal/dashboard"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/pricestore"
	"github.com/donia1222/remix-crypto-sub000/internal/router"
	"github.com/donia1222/remix-crypto-sub000/internal/storage"
	"github.com/donia1222/remix-crypto-sub000/internal/version"
)

type healthResponse struct {
	Status   string               `json:"status"` // "ok" when the feed is live, else "degraded"
	Instance string               `json:"instance,omitempty"`
	Version  version.Info         `json:"version"`
	Feed     connection.FeedStats `json:"feed"`
	Store    pricestore.Stats     `json:"store"`
	Router   *router.RouterStats  `json:"router,omitempty"`
}

type marketsResponse struct {
	State       connection.State  `json:"state"`
	HasLiveData bool              `json:"has_live_data"`
	Quotes      []model.QuoteView `json:"quotes"`
}

type loginRequest struct {
	Password string `json:"password"`
}

type dashboardResponse struct {
	dashboard.View
	TotalPnL  string `json:"total_pnl,omitempty"`
	TotalFees string `json:"total_fees,omitempty"`
}

type blogResponse struct {
	Posts     []model.BlogPost `json:"posts"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.deps.Feed.Stats()

	resp := healthResponse{
		Status:   "ok",
		Instance: s.cfg.InstanceID,
		Version:  version.Get(),
		Feed:     stats,
		Store:    s.deps.Quotes.Stats(),
	}
	if stats.State != connection.StateLive {
		resp.Status = "degraded"
	}
	if s.deps.RouterStats != nil {
		rs := s.deps.RouterStats()
		resp.Router = &rs
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, marketsResponse{
		State:       s.deps.Feed.State(),
		HasLiveData: s.deps.Quotes.HasReceivedData(),
		Quotes:      s.deps.Quotes.Views(),
	})
}

func (s *Server) handleReconnect(c *gin.Context) {
	if err := s.deps.Feed.Reconnect(); err != nil {
		if errors.Is(err, connection.ErrStopped) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("manual feed reconnect requested", "device", device(c))
	c.JSON(http.StatusAccepted, gin.H{"state": s.deps.Feed.State()})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := s.deps.Gate.Login(c.Request.Context(), device(c), req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"authorized": true})
	case errors.Is(err, auth.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": errWrongPassword})
	default:
		s.logger.Warn("login failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login unavailable"})
	}
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.deps.Gate.Logout(c.Request.Context(), device(c)); err != nil {
		s.logger.Warn("logout failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorized": false})
}

// handleDashboard serves the cached view, fetching once if nothing has
// been fetched or scheduled yet.
func (s *Server) handleDashboard(c *gin.Context) {
	v := s.deps.Dashboard.View()
	if v.Snapshot == nil && v.RetryAt == nil && v.Error == "" {
		s.refresh(c)
		return
	}
	c.JSON(http.StatusOK, toDashboardResponse(v))
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.refresh(c)
}

func (s *Server) refresh(c *gin.Context) {
	v, err := s.deps.Dashboard.Refresh(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dashboard.ErrNoData) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": v.Error, "retry_at": v.RetryAt})
		return
	}
	c.JSON(http.StatusOK, toDashboardResponse(v))
}

func toDashboardResponse(v dashboard.View) dashboardResponse {
	resp := dashboardResponse{View: v}
	if v.Snapshot != nil {
		resp.TotalPnL = model.FormatUSD(v.Snapshot.TotalPnL())
		resp.TotalFees = model.FormatUSD(v.Snapshot.TotalFees())
	}
	return resp
}

func (s *Server) handleBlog(c *gin.Context) {
	resp := blogResponse{Posts: []model.BlogPost{}}
	if s.deps.Blog != nil {
		posts, at := s.deps.Blog.Posts()
		resp.Posts = posts
		if !at.IsZero() {
			resp.UpdatedAt = &at
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetConsent(c *gin.Context) {
	data, err := s.deps.KV.Get(c.Request.Context(), storage.ConsentKey(device(c)))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"consent": nil})
		return
	}
	if err != nil {
		s.logger.Warn("consent lookup failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent": json.RawMessage(data)})
}

// handlePutConsent stores the body verbatim. It must be a JSON object.
func (s *Server) handlePutConsent(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxConsentBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "consent too large"})
		return
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consent must be a JSON object"})
		return
	}

	if err := s.deps.KV.Set(c.Request.Context(), storage.ConsentKey(device(c)), body); err != nil {
		s.logger.Warn("consent store failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent": json.RawMessage(body)})
}
