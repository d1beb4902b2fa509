package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/marquee/internal/accesslog"
	"github.com/zulandar/marquee/internal/db"
	"github.com/zulandar/marquee/internal/inquiry"
	"github.com/zulandar/marquee/internal/models"
	"gorm.io/gorm"
)

type routeDeps struct {
	db         *gorm.DB
	logs       *accesslog.Store
	inquiries  *inquiry.GormStore
	dispatcher *inquiry.Dispatcher
	adminToken string
}

// registerRoutes sets up all routes on the Gin router.
func registerRoutes(router *gin.Engine, d routeDeps) {
	router.GET("/healthz", handleHealth(d.db))

	// Web client surface.
	router.POST("/functions/v1/send-telegram", handleSendTelegram(d.dispatcher))
	router.POST(accesslog.LogsPath, handleAccessLogWrite(d.logs))
	router.PATCH(accesslog.LogsPath, handleAccessLogExit(d.logs))
	router.GET("/api/actors/:id/staff", handleActorStaff(d.inquiries))

	admin := router.Group("/api/access-logs", requireAdmin(d.adminToken))
	admin.GET("", handleTimeline(d.logs))
	admin.GET("/summary", handleSummary(d.logs))
	admin.GET("/:id", handleAccessLogDetail(d.logs))
}

func handleHealth(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), conn); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// sendTelegramRequest is the contact-form payload.
type sendTelegramRequest struct {
	ActorID      string  `json:"actor_id"`
	ActorName    string  `json:"actor_name"`
	SenderName   string  `json:"sender_name"`
	Organization *string `json:"organization"`
	Message      string  `json:"message"`
}

func handleSendTelegram(d *inquiry.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendTelegramRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		res, err := d.Dispatch(c.Request.Context(), inquiry.Inquiry{
			ActorID:      req.ActorID,
			ActorName:    req.ActorName,
			SenderName:   req.SenderName,
			Organization: req.Organization,
			Body:         req.Message,
		})
		if err != nil {
			var verr *inquiry.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			log.Printf("server: send-telegram: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  res.Success,
			"telegram": res.TelegramLines(),
		})
	}
}

// handleAccessLogWrite serves both writes the recorder makes with POST: a
// plain POST opens a session, and a POST filtered by ?id=eq.<id> is the exit
// beacon.
func handleAccessLogWrite(logs *accesslog.Store) gin.HandlerFunc {
	exit := handleAccessLogExit(logs)
	return func(c *gin.Context) {
		if c.Query("id") != "" {
			exit(c)
			return
		}

		var req accesslog.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.ActorID = strings.TrimSpace(req.ActorID)
		req.SessionID = strings.TrimSpace(req.SessionID)
		switch {
		case req.ActorID == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "actor_id is required"})
			return
		case req.SessionID == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}

		entry := accesslog.Entry{
			ActorID:   req.ActorID,
			SessionID: req.SessionID,
			UserAgent: req.UserAgent,
			IPAddress: c.ClientIP(),
		}
		if entry.UserAgent == "" {
			entry.UserAgent = c.Request.UserAgent()
		}
		if req.EntryTime != nil {
			entry.EntryTime = *req.EntryTime
		}

		id, err := logs.Open(c.Request.Context(), entry)
		if err != nil {
			log.Printf("server: open access log: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, accesslog.CreateResponse{ID: id})
	}
}

// handleAccessLogExit stamps the exit on the row selected by ?id=eq.<id>.
// Repeated exits are accepted and ignored.
func handleAccessLogExit(logs *accesslog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := strings.CutPrefix(c.Query("id"), "eq.")
		if !ok || id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id filter must be eq.<id>"})
			return
		}

		var req accesslog.ExitRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		// A missing exit_time is stamped with the server clock.
		var exitTime time.Time
		if req.ExitTime != nil {
			exitTime = *req.ExitTime
		}

		if _, err := logs.RecordExit(c.Request.Context(), id, exitTime); err != nil {
			if errors.Is(err, accesslog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "access log not found"})
				return
			}
			log.Printf("server: record exit %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleActorStaff(store *inquiry.GormStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		contacts, err := store.Contacts(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"contacts": contacts})
	}
}

// timelineRow is one access log as the admin timeline shows it.
type timelineRow struct {
	models.AccessLog
	ActorName string `json:"actor_name"`
	Device    string `json:"device"`
}

func handleTimeline(logs *accesslog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := parseLimit(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		rows, err := logs.Timeline(ctx, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		names, err := logs.ActorNames(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out := make([]timelineRow, len(rows))
		for i, r := range rows {
			out[i] = timelineRow{
				AccessLog: r,
				ActorName: models.DisplayName(r.ActorID, names),
				Device:    accesslog.DeviceLabel(r.UserAgent),
			}
		}
		c.JSON(http.StatusOK, gin.H{"logs": out})
	}
}

func handleAccessLogDetail(logs *accesslog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		row, err := logs.Get(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, accesslog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "access log not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		names, err := logs.ActorNames(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, timelineRow{
			AccessLog: *row,
			ActorName: models.DisplayName(row.ActorID, names),
			Device:    accesslog.DeviceLabel(row.UserAgent),
		})
	}
}

func handleSummary(logs *accesslog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, ok := parseLimit(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		rows, err := logs.Timeline(ctx, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		names, err := logs.ActorNames(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"actors": accesslog.Summarize(rows, names)})
	}
}

// parseLimit reads ?limit=N, writing a 400 and returning false when invalid.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return accesslog.DefaultTimelineLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}
