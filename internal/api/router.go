package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/bim4d-backend-go/internal/config"
	"github.com/jengzang/bim4d-backend-go/internal/handler"
	"github.com/jengzang/bim4d-backend-go/internal/middleware"
	"github.com/jengzang/bim4d-backend-go/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc *service.SequenceService, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))
	if cfg.RateLimit.Requests > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "BIM 4D sequencing API is running",
		})
	})

	schedules := handler.NewScheduleHandler(svc)
	animation := handler.NewAnimationHandler(svc)
	profiles := handler.NewProfileHandler(svc)
	auth := middleware.Auth(cfg.JWTSecret)

	// API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/schedules", schedules.ListSchedules)
		api.GET("/products", schedules.ListProducts)
		api.POST("/documents", auth, schedules.Import)

		// 进度计划与状态分类
		sched := api.Group("/schedules/:id")
		{
			sched.GET("/dates", schedules.GetDates)
			sched.GET("/hierarchy", schedules.GetHierarchy)
			sched.GET("/classify", schedules.Classify)
			sched.POST("/snapshot", schedules.Snapshot)
			sched.POST("/interpolate", schedules.Interpolate)

			// 动画
			sched.POST("/settings", animation.Settings)
			sched.POST("/timeline", animation.Timeline)
			sched.POST("/frame-states", animation.FrameStates)
			sched.POST("/keyframes", animation.Keyframes)
			sched.POST("/bake", animation.Bake)
			sched.POST("/live", animation.StartLive)
		}

		// 实时播放
		live := api.Group("/live")
		{
			live.GET("", animation.LiveStatus)
			live.PUT("/frame", animation.SetFrame)
			live.DELETE("", animation.StopLive)
		}

		// 场景状态
		scene := api.Group("/scene")
		{
			scene.GET("/objects", animation.SceneObjects)
			scene.GET("/objects/:productId", animation.SceneObject)
		}

		// 外观配置，写操作需要认证
		prof := api.Group("/profiles")
		{
			prof.GET("/groups", profiles.ListGroups)
			prof.PUT("/groups/:name", auth, profiles.SaveGroup)
			prof.DELETE("/groups/:name", auth, profiles.DeleteGroup)
			prof.POST("/groups/:name/profiles", auth, profiles.EnsureProfile)
			prof.GET("/resolve", profiles.Resolve)
			prof.GET("/assignments", profiles.ListAssignments)
			prof.PUT("/assignments/:taskId", auth, profiles.SetAssignment)
			prof.GET("/stack", profiles.GetStack)
			prof.PUT("/stack", auth, profiles.SetStack)
		}

		// 缓存
		cacheGroup := api.Group("/cache")
		{
			cacheGroup.GET("/stats", schedules.CacheStats)
			cacheGroup.DELETE("", auth, schedules.ClearCache)
		}
	}

	return r
}
