package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/clockd/internal/api/handlers"
	"github.com/your-org/clockd/internal/api/ws"
	"github.com/your-org/clockd/internal/attendance"
	"github.com/your-org/clockd/internal/auth"
	"github.com/your-org/clockd/internal/config"
	"github.com/your-org/clockd/internal/match"
	"github.com/your-org/clockd/internal/queue"
	"github.com/your-org/clockd/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Matcher  *match.Matcher
	Recorder *attendance.Recorder
	Matching config.MatchingConfig
	// EncodeFn extracts a feature vector from image bytes (from the vision encoder).
	EncodeFn func(imageData []byte) ([]float64, float32, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Kiosk capture and matching
	kioskH := handlers.NewKioskHandler(cfg.Matcher, cfg.Recorder, cfg.MinIO, cfg.Producer, cfg.Matching)
	v1.POST("/attendance/captures", kioskH.Capture)
	v1.POST("/match", kioskH.Match)

	// Employees & face profiles
	employeeH := handlers.NewEmployeeHandler(cfg.DB, cfg.MinIO)
	employeeH.EncodeFn = cfg.EncodeFn
	v1.POST("/employees", employeeH.Create)
	v1.GET("/employees", employeeH.List)
	v1.GET("/employees/:id", employeeH.Get)
	v1.POST("/employees/:id/profiles", employeeH.AddProfile)
	v1.GET("/employees/:id/profiles", employeeH.ListProfiles)
	v1.DELETE("/employees/:id/profiles/:profileId", employeeH.DeleteProfile)
	v1.GET("/employees/:id/day", kioskH.DayStatus)

	// Shift policy
	shiftH := handlers.NewShiftHandler(cfg.DB)
	v1.GET("/shifts/active", shiftH.GetActive)
	v1.PUT("/shifts/active", shiftH.SetActive)

	// Attendance history
	eventH := handlers.NewEventHandler(cfg.DB, cfg.MinIO)
	v1.GET("/attendance/events", eventH.List)
	v1.GET("/attendance/events/:id/snapshot", eventH.Snapshot)
	v1.GET("/attendance/summaries", eventH.Summaries)

	return r
}
