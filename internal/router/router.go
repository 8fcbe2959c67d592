package router

import (
	"net/http"

	"lyceum/internal/handlers"
	"lyceum/internal/identity"
	"lyceum/internal/metrics"
	"lyceum/internal/middleware"
	"lyceum/internal/services"
	"lyceum/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const sessionName = "lyceum_session"

type Services struct {
	Comments *services.CommentService
	Votes    *services.VoteService
	Posts    *services.PostService
	Users    store.Users
	Verifier *identity.TokenVerifier
	Google   GoogleOAuth
}

// GoogleOAuth enables Google sign-in when ClientID is set.
type GoogleOAuth struct {
	ClientID     string
	ClientSecret string
	SiteURL      string
}

// New builds the engine with the global middleware chain and all routes.
func New(sessionStore sessions.Store, s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(metrics.Middleware())
	r.Use(sessions.Sessions(sessionName, sessionStore))
	r.Use(middleware.LoadCaller(s.Users, s.Verifier))

	RegisterRoutes(r, s)
	return r
}

func RegisterRoutes(r *gin.Engine, s Services) {
	// Handlers
	commentHandler := handlers.NewCommentHandler(s.Comments)
	voteHandler := handlers.NewVoteHandler(s.Votes)
	postHandler := handlers.NewPostHandler(s.Posts)
	authHandler := handlers.NewAuthHandler(s.Users, s.Verifier)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/comments", commentHandler.List)     // 评论树
	api.GET("/comments/:id", commentHandler.Get)  // 单条评论
	api.GET("/votes", voteHandler.Aggregate)      // 投票统计, 登录时带 myVote
	api.GET("/posts", postHandler.List)           // 帖子列表
	api.GET("/posts/:id", postHandler.Get)        // 帖子详情
	api.POST("/posts/:id/view", postHandler.View) // 浏览计数

	api.POST("/auth/session", authHandler.Login)    // token 换 session
	api.DELETE("/auth/session", authHandler.Logout) // 退出登录

	if s.Google.ClientID != "" {
		googleHandler := handlers.NewGoogleAuthHandler(s.Users, s.Google.ClientID, s.Google.ClientSecret, s.Google.SiteURL)
		api.GET("/auth/google", googleHandler.Login)
		api.GET("/auth/google/callback", googleHandler.Callback)
	}

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/me", authHandler.Me)

		authorized.POST("/comments", commentHandler.Create)
		authorized.PUT("/comments/:id", commentHandler.Update)
		authorized.DELETE("/comments/:id", commentHandler.Delete)

		authorized.POST("/votes", voteHandler.Set)
		authorized.DELETE("/votes", voteHandler.Clear)

		authorized.POST("/posts", postHandler.Create)
		authorized.PUT("/posts/:id", postHandler.Update)
		authorized.DELETE("/posts/:id", postHandler.Delete)
	}
}
