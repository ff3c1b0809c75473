// Package api exposes the bank over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/internal/ratelimit"
	"github.com/amirk1998/secure-bank/internal/realtime"
	"github.com/amirk1998/secure-bank/internal/service"
)

// Services bundles everything the handlers call into.
type Services struct {
	Auth          *service.AuthService
	Sessions      *service.SessionService
	Profile       *service.ProfileService
	Transfers     *service.TransferService
	Beneficiaries *service.BeneficiaryService
	Deposits      *service.DepositService
	Support       *service.SupportService
	Verification  *service.VerificationService
}

type Handler struct {
	auth          *service.AuthService
	sessions      *service.SessionService
	profile       *service.ProfileService
	transfers     *service.TransferService
	beneficiaries *service.BeneficiaryService
	deposits      *service.DepositService
	support       *service.SupportService
	verification  *service.VerificationService

	streamer *realtime.Streamer
	limiter  *ratelimit.RateLimiter
	logger   *slog.Logger
}

func NewHandler(svc Services, streamer *realtime.Streamer, limiter *ratelimit.RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{
		auth:          svc.Auth,
		sessions:      svc.Sessions,
		profile:       svc.Profile,
		transfers:     svc.Transfers,
		beneficiaries: svc.Beneficiaries,
		deposits:      svc.Deposits,
		support:       svc.Support,
		verification:  svc.Verification,
		streamer:      streamer,
		limiter:       limiter,
		logger:        logger,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger(), metrics.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	v1 := r.Group("/v1", limitBody())
	if h.limiter != nil {
		v1.Use(h.limiter.Middleware(ratelimit.ByClientIP))
	}

	auth := v1.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/login/mnemonic", h.loginMnemonic)
	auth.POST("/login/voice", h.loginVoice)
	auth.POST("/recovery/question", h.recoveryQuestion)
	auth.POST("/recovery/answer", h.recoveryAnswer)
	auth.POST("/voice/enroll", h.requireSession(false), h.enrollVoice)
	auth.POST("/logout", h.requireSession(true), h.logout)

	sess := v1.Group("/session")
	sess.GET("", h.requireSession(true), h.sessionStatus)
	sess.GET("/stream", h.requireSession(true), h.sessionStream)
	sess.POST("/interactions", h.requireSession(true), h.interactions)
	sess.POST("/features/:name", h.requireSession(false), h.enterFeature)
	sess.POST("/reauth", h.requireSession(false), h.reauthenticate)

	authed := v1.Group("", h.requireSession(false))
	authed.GET("/account", h.getAccount)
	authed.PUT("/account/profile", h.updateProfile)

	authed.POST("/transfers/assess", h.assessTransfer)
	authed.POST("/transfers/neft", h.neftTransfer)

	authed.GET("/beneficiaries", h.listBeneficiaries)
	authed.POST("/beneficiaries", h.addBeneficiary)
	authed.DELETE("/beneficiaries/:id", h.deleteBeneficiary)

	authed.GET("/deposits", h.listDeposits)
	authed.POST("/deposits", h.createDeposit)
	authed.POST("/deposits/:id/withdrawal", h.attemptWithdrawal)
	authed.POST("/deposits/:id/withdrawal/confirm", h.confirmWithdrawal)
	authed.POST("/deposits/:id/withdrawal/review", h.submitReview)

	authed.POST("/complaints", h.raiseComplaint)
	authed.GET("/complaints", h.listComplaints)
	authed.GET("/complaints/:id", h.trackComplaint)
	authed.POST("/support/chat", h.chat)

	authed.POST("/verify/signature", h.verifySignature)
	authed.POST("/speech", h.synthesize)

	return r
}
