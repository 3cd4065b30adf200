package router

import (
	"net/http"
	"time"

	"tourhub/config"
	"tourhub/internal/domain"
	"tourhub/internal/handler"
	"tourhub/internal/middleware"
	"tourhub/internal/repository"
	"tourhub/internal/service"
	"tourhub/internal/ws"
	"tourhub/pkg/cloudinary"
	"tourhub/pkg/mailer"
	"tourhub/pkg/payment"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the external systems the API talks to.
type Deps struct {
	Cloud   cloudinary.Client
	Gateway payment.Gateway
	Mailer  mailer.Mailer
	Locker  service.Locker
	Limiter middleware.Limiter // nil disables rate limiting
	Hub     *ws.Hub
	FCM     *service.FCMService
}

// Services holds every domain service built for one process.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Tours         *service.TourService
	Destinations  *service.DestinationService
	Bookings      *service.BookingService
	Payments      *service.PaymentService
	Payouts       *service.PayoutService
	Subscriptions *service.SubscriptionService
	Limits        *service.LimitService
	Reviews       *service.ReviewService
	Blogs         *service.BlogService
	Meta          *service.MetaService
	Notifications *service.NotificationService
	Media         *service.Media
}

func NewServices(cfg *config.Config, db *gorm.DB, deps Deps) *Services {
	userRepo := repository.NewUserRepository(db)
	media := service.NewMedia(deps.Cloud, cfg.Cloudinary.Folder)
	notifSvc := service.NewNotificationService(repository.NewNotificationRepository(db), userRepo, deps.FCM, deps.Hub).WithMailer(deps.Mailer)
	currency := cfg.Payment.Currency
	payments := service.NewPaymentService(db, cfg.Payment, deps.Gateway, notifSvc)
	return &Services{
		Auth:          service.NewAuthService(cfg, db, userRepo, deps.Mailer),
		Users:         service.NewUserService(db, media),
		Tours:         service.NewTourService(db, media),
		Destinations:  service.NewDestinationService(db, media),
		Bookings:      service.NewBookingService(db, currency, deps.Locker, notifSvc),
		Payments:      payments,
		Payouts:       service.NewPayoutService(db, cfg.Payout, currency, deps.Gateway, deps.Locker, notifSvc),
		Subscriptions: service.NewSubscriptionService(db, currency, payments, notifSvc),
		Limits:        service.NewLimitService(db),
		Reviews:       service.NewReviewService(db, notifSvc),
		Blogs:         service.NewBlogService(db, media),
		Meta:          service.NewMetaService(db),
		Notifications: notifSvc,
		Media:         media,
	}
}

func Setup(cfg *config.Config, svc *Services, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.MaxMultipartMemory = 16 << 20

	authHandler := handler.NewAuthHandler(svc.Auth, svc.Users)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, svc.Auth)
	userHandler := handler.NewUserHandler(svc.Users)
	tourHandler := handler.NewTourHandler(svc.Tours)
	destinationHandler := handler.NewDestinationHandler(svc.Destinations)
	bookingHandler := handler.NewBookingHandler(svc.Bookings, svc.Payments)
	paymentHandler := handler.NewPaymentHandler(svc.Payments)
	payoutHandler := handler.NewPayoutHandler(svc.Payouts)
	webhookHandler := handler.NewWebhookHandler(svc.Payments, deps.Gateway.SignatureHeader())
	subscriptionHandler := handler.NewSubscriptionHandler(svc.Subscriptions, svc.Payments)
	reviewHandler := handler.NewReviewHandler(svc.Reviews)
	blogHandler := handler.NewBlogHandler(svc.Blogs)
	metaHandler := handler.NewMetaHandler(svc.Meta)
	notificationHandler := handler.NewNotificationHandler(svc.Notifications)
	uploadHandler := handler.NewUploadHandler(svc.Media)

	authMw := middleware.AuthRequired(&cfg.JWT)
	optionalAuth := middleware.OptionalAuth(&cfg.JWT)
	adminOnly := middleware.AdminRequired()
	hostOnly := middleware.RequireRole(domain.RoleHost)
	touristOnly := middleware.RequireRole(domain.RoleTourist)
	hostOrAdmin := middleware.RequireRole(domain.RoleHost, domain.RoleAdmin)
	touristOrAdmin := middleware.RequireRole(domain.RoleTourist, domain.RoleAdmin)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok", "time": time.Now().UTC()})
	})

	// Provider webhooks sit outside the rate limiter.
	r.POST("/api/v1/webhooks/"+deps.Gateway.Name(), webhookHandler.Handle)

	api := r.Group("/api/v1")
	if deps.Limiter != nil {
		api.Use(middleware.RateLimit(deps.Limiter))
	}
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
			authGroup.GET("/me", authMw, authHandler.Me)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		users := api.Group("/users")
		{
			users.POST("/create-tourist", userHandler.CreateTourist)
			users.POST("/create-host", userHandler.CreateHost)
			users.POST("/create-admin", authMw, adminOnly, userHandler.CreateAdmin)
			users.GET("", authMw, adminOnly, userHandler.List)
			users.GET("/me", authMw, userHandler.Me)
			users.PATCH("/update-my-profile", authMw, userHandler.UpdateMyProfile)
			users.POST("/fcm-token", authMw, userHandler.SetFCMToken)
			users.PATCH("/:id/status", authMw, adminOnly, userHandler.ChangeStatus)
			users.DELETE("/:id", authMw, adminOnly, userHandler.Delete)
		}

		tours := api.Group("/tour")
		{
			tours.POST("/create-tour", authMw, hostOnly, middleware.CheckTourCreationLimit(svc.Limits), tourHandler.Create)
			tours.GET("", tourHandler.List)
			tours.GET("/host/my-tours", authMw, hostOnly, tourHandler.MyTours)
			tours.GET("/host/my-tours/:id", authMw, hostOnly, tourHandler.MyTour)
			tours.GET("/host/stats", authMw, hostOnly, tourHandler.HostStats)
			tours.GET("/:id", tourHandler.Get)
			tours.PATCH("/:id", authMw, hostOrAdmin, tourHandler.Update)
			tours.DELETE("/:id", authMw, hostOrAdmin, tourHandler.Delete)
			tours.PATCH("/:id/complete", authMw, hostOrAdmin, tourHandler.Complete)
		}

		destinations := api.Group("/destinations")
		{
			destinations.GET("", destinationHandler.List)
			destinations.GET("/:id", destinationHandler.Get)
			destinations.POST("", authMw, adminOnly, destinationHandler.Create)
			destinations.PATCH("/:id", authMw, adminOnly, destinationHandler.Update)
			destinations.DELETE("/:id", authMw, adminOnly, destinationHandler.Delete)
		}

		bookings := api.Group("/bookings")
		bookings.Use(authMw)
		{
			bookings.POST("", touristOnly, bookingHandler.Create)
			bookings.GET("", adminOnly, bookingHandler.List)
			bookings.GET("/my-bookings", touristOnly, bookingHandler.MyBookings)
			bookings.GET("/host/my-bookings", hostOnly, bookingHandler.HostBookings)
			bookings.GET("/host/stats", hostOnly, bookingHandler.HostStats)
			bookings.GET("/user/stats", touristOnly, bookingHandler.UserStats)
			bookings.GET("/:id", bookingHandler.Get)
			bookings.GET("/:id/payment-info", bookingHandler.PaymentInfo)
			bookings.POST("/:id/initiate-payment", touristOnly, bookingHandler.InitiatePayment)
			bookings.PATCH("/:id", touristOrAdmin, bookingHandler.Update)
			bookings.PATCH("/:id/status", hostOrAdmin, bookingHandler.UpdateStatus)
			bookings.PATCH("/:id/cancel", touristOrAdmin, bookingHandler.Cancel)
			bookings.DELETE("/:id", adminOnly, bookingHandler.Delete)
		}

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.GET("", adminOnly, paymentHandler.List)
			payments.GET("/user/history", touristOnly, paymentHandler.History)
			payments.GET("/host/earnings", hostOnly, paymentHandler.HostEarnings)
			payments.POST("/payouts", hostOnly, payoutHandler.Request)
			payments.GET("/payouts", hostOnly, payoutHandler.List)
			payments.GET("/payouts/stats", hostOnly, payoutHandler.Stats)
			payments.GET("/payouts/ledger", hostOnly, payoutHandler.Ledger)
		}

		subs := api.Group("/subscriptions")
		{
			subs.GET("/plans", optionalAuth, subscriptionHandler.ListPlans)
			subs.GET("/plans/:id", subscriptionHandler.GetPlan)
			subs.POST("/create-plan", authMw, adminOnly, subscriptionHandler.CreatePlan)
			subs.PATCH("/plans/:id", authMw, adminOnly, subscriptionHandler.UpdatePlan)
			subs.DELETE("/plans/:id", authMw, adminOnly, subscriptionHandler.DeletePlan)
			subs.POST("/initialize-plans", authMw, adminOnly, subscriptionHandler.InitializePlans)
			subs.POST("/subscribe", authMw, hostOnly, subscriptionHandler.Subscribe)
			subs.GET("/my-subscription", authMw, hostOnly, subscriptionHandler.MySubscription)
			subs.POST("/cancel", authMw, hostOnly, subscriptionHandler.Cancel)
			subs.POST("/:id/initiate-payment", authMw, hostOnly, subscriptionHandler.InitiatePayment)
			subs.GET("/analytics/overview", authMw, adminOnly, subscriptionHandler.Overview)
			subs.GET("", authMw, adminOnly, subscriptionHandler.List)
			subs.GET("/:id", authMw, adminOnly, subscriptionHandler.Get)
			subs.PATCH("/:id", authMw, adminOnly, subscriptionHandler.Update)
			subs.DELETE("/:id", authMw, adminOnly, subscriptionHandler.Delete)
		}

		reviews := api.Group("/reviews")
		{
			reviews.POST("", authMw, touristOnly, reviewHandler.Create)
			reviews.GET("", authMw, adminOnly, reviewHandler.List)
			reviews.GET("/tour/:tourId", reviewHandler.TourReviews)
			reviews.GET("/host/:hostId", reviewHandler.HostReviews)
			reviews.GET("/my-reviews", authMw, touristOnly, reviewHandler.MyReviews)
			reviews.GET("/stats/summary", authMw, adminOnly, reviewHandler.Summary)
			reviews.GET("/:id", reviewHandler.Get)
			reviews.PATCH("/:id", authMw, touristOrAdmin, reviewHandler.Update)
			reviews.DELETE("/:id", authMw, touristOrAdmin, reviewHandler.Delete)
		}

		blogs := api.Group("/blogs")
		{
			blogs.POST("", authMw, hostOnly, middleware.CheckBlogCreationLimit(svc.Limits), blogHandler.Create)
			blogs.GET("", optionalAuth, blogHandler.List)
			blogs.GET("/me/my-blogs", authMw, hostOnly, blogHandler.MyBlogs)
			blogs.GET("/:id", optionalAuth, blogHandler.Get)
			blogs.PATCH("/:id", authMw, hostOnly, blogHandler.Update)
			blogs.DELETE("/:id", authMw, hostOrAdmin, blogHandler.Delete)
			blogs.PATCH("/:id/status", authMw, adminOnly, blogHandler.SetApproval)
			blogs.POST("/:id/comments", authMw, blogHandler.AddComment)
			blogs.POST("/:id/like", authMw, blogHandler.ToggleLike)
			blogs.PATCH("/comments/:commentId", authMw, blogHandler.UpdateComment)
			blogs.DELETE("/comments/:commentId", authMw, blogHandler.DeleteComment)
			blogs.POST("/comments/:commentId/like", authMw, blogHandler.ToggleCommentLike)
		}

		api.POST("/uploads/images", authMw, hostOrAdmin, uploadHandler.UploadImages)
		api.GET("/meta", authMw, metaHandler.Dashboard)
		api.GET("/notifications", authMw, notificationHandler.List)
		api.PUT("/notifications/:id/read", authMw, notificationHandler.MarkRead)
	}

	r.GET("/ws/notifications", ws.ServeNotifications(&cfg.JWT, deps.Hub))

	return r
}
