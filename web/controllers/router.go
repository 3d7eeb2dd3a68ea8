package controllers

import (
	"go-referral/metrics"
	"go-referral/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	AdminKey  string
	UploadDir string
	Metrics   *metrics.Metrics
	Limiter   *middleware.RateLimiter
}

// Router wires every route of the referral API.
func Router(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), middleware.RequestLog(h.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	if cfg.UploadDir != "" {
		r.Static("/uploads", cfg.UploadDir)
	}

	api := r.Group("/")
	if cfg.Limiter != nil {
		api.Use(cfg.Limiter.Middleware())
	}

	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.POST("/password/reset", h.ResetPassword)
	api.POST("/password/reset/confirm", h.ConfirmReset)
	api.GET("/version", Version)

	authed := api.Group("/", middleware.RequireAuth(h.Auth))
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/user", h.User)
		authed.PUT("/user", h.UpdateUser)
		authed.POST("/user/photo", h.UploadPhoto)
		authed.GET("/users/:id", h.PublicProfile)
		authed.GET("/professionals", h.Professionals)
		authed.GET("/students", h.Students)

		authed.POST("/referrals", h.CreateReferral)
		authed.GET("/referrals", h.ListReferrals)
		authed.PUT("/referrals/:id/status", h.UpdateReferralStatus)

		authed.POST("/requests", h.CreateRequest)
		authed.GET("/requests", h.ListRequests)
		authed.GET("/requests/:id", h.GetRequest)
		authed.POST("/requests/:id/respond", h.RespondToRequest)
		authed.POST("/requests/:id/payment/respond", h.RespondToPayment)
		authed.POST("/requests/:id/payment", h.CompletePayment)
		authed.GET("/requests/:id/payment", h.RequestPayment)
		authed.GET("/requests/:id/payment/qrcode", h.PaymentQRCode)
		authed.POST("/requests/:id/complete", h.CompleteRequest)
		authed.POST("/requests/:id/cancel", h.CancelRequest)

		authed.POST("/offers", h.CreateOffer)
		authed.GET("/offers", h.ListOffers)
		authed.GET("/offers/:id", h.GetOffer)
		authed.POST("/offers/:id/respond", h.RespondToOffer)
		authed.POST("/offers/:id/complete", h.CompleteOffer)
	}

	admin := r.Group("/admin", middleware.AdminAuth(cfg.AdminKey))
	admin.GET("/info", h.Info)
	admin.POST("/reconcile", h.Reconcile)
	return r
}
