package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/models"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

type recoveryQuestionRequest struct {
	Email string `json:"email"`
}

type voiceEnrollRequest struct {
	Sample string `json:"sample"`
}

// bindJSON decodes the body into dst, answering 400 or 413 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				errorBody{Error: "payload_too_large", Message: "request body too large"})
			return false
		}
		badRequest(c, "invalid request body")
		return false
	}
	return true
}

// loginContext fills in the client facts the body cannot be trusted with.
func loginContext(c *gin.Context, lc *models.LoginContext) {
	lc.IPAddress = c.ClientIP()
	lc.UserAgent = c.Request.UserAgent()
	if lc.DeviceID == "" {
		lc.DeviceID = c.GetHeader(deviceIDHeader)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	loginContext(c, &req.LoginContext)

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) loginMnemonic(c *gin.Context) {
	var req models.MnemonicLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	loginContext(c, &req.LoginContext)

	resp, err := h.auth.LoginWithMnemonic(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) recoveryQuestion(c *gin.Context) {
	var req recoveryQuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	question, err := h.auth.RecoveryQuestion(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": question})
}

func (h *Handler) recoveryAnswer(c *gin.Context) {
	var req models.SecurityAnswerLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	loginContext(c, &req.LoginContext)

	resp, err := h.auth.LoginWithSecurityAnswer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) loginVoice(c *gin.Context) {
	var req models.VoiceLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	loginContext(c, &req.LoginContext)

	resp, err := h.auth.LoginWithVoice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) enrollVoice(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req voiceEnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	phrase, err := h.auth.EnrollVoice(c.Request.Context(), p.User.ID, req.Sample)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrolled": true, "phrase": phrase})
}

func (h *Handler) logout(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	h.sessions.Logout(c.Request.Context(), p)
	c.Status(http.StatusNoContent)
}
