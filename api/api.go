package api

import (
	"errors"
	"net/http"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/db"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/sched"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response{Code: 0, Message: "ok", Data: data})
}
func fail(c *gin.Context, status int, err error) {
	c.JSON(status, response{Code: status, Message: err.Error()})
}

// Handler is the control surface the surrounding application drives the
// engine with: scheduler lifecycle, manual triggers and campaign views.
type Handler struct {
	sched     *sched.Scheduler
	campaigns db.CampaignStore
	logger    *zap.Logger
}

func New(scheduler *sched.Scheduler, campaigns db.CampaignStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = common.DefaultLogger
	}
	return &Handler{sched: scheduler, campaigns: campaigns, logger: logger}
}

func (h *Handler) Register(r *gin.Engine) {
	var group = r.Group("/api")
	group.POST("/scheduler/start", h.start)
	group.POST("/scheduler/stop", h.stop)
	group.GET("/scheduler/status", h.status)
	group.POST("/campaigns/:id/run", h.runNow)
	group.GET("/campaigns/:id", h.campaign)
}

func (h *Handler) start(c *gin.Context) {
	if err := h.sched.Start(); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, gin.H{"running": true})
}
func (h *Handler) stop(c *gin.Context) {
	h.sched.Stop()
	ok(c, gin.H{"running": false})
}
func (h *Handler) status(c *gin.Context) {
	ok(c, gin.H{"running": h.sched.Running()})
}
func (h *Handler) runNow(c *gin.Context) {
	var id = c.Param("id")
	if id == "" {
		fail(c, http.StatusBadRequest, errors.New("campaign id required"))
		return
	}
	if err := h.sched.RunNow(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrCampaignNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		h.logger.Error("manual run failed", zap.String("campaign", id), zap.Error(err))
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, gin.H{"campaign": id})
}
func (h *Handler) campaign(c *gin.Context) {
	var id = c.Param("id")
	campaign, err := h.campaigns.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrCampaignNotFound) {
			fail(c, http.StatusNotFound, err)
			return
		}
		fail(c, http.StatusInternalServerError, err)
		return
	}
	ok(c, campaign)
}
