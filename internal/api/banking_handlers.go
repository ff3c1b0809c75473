package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirk1998/secure-bank/internal/models"
)

type chatRequest struct {
	Question string `json:"question"`
}

type signatureRequest struct {
	Image string `json:"image"`
}

type speechRequest struct {
	Text string `json:"text"`
}

func (h *Handler) getAccount(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	view, err := h.profile.Get(c.Request.Context(), p.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) updateProfile(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.profile.Update(c.Request.Context(), p.User.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) assessTransfer(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.TransferAssessRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.transfers.Assess(c.Request.Context(), p, &req, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) neftTransfer(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.NEFTTransferRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.transfers.NEFT(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listBeneficiaries(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.beneficiaries.List(c.Request.Context(), p.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beneficiaries": list})
}

func (h *Handler) addBeneficiary(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.AddBeneficiaryRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.beneficiaries.Add(c.Request.Context(), p.User.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) deleteBeneficiary(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	if err := h.beneficiaries.Delete(c.Request.Context(), p.User.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listDeposits(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.deposits.List(c.Request.Context(), p.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposits": list})
}

func (h *Handler) createDeposit(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.CreateDepositRequest
	if !bindJSON(c, &req) {
		return
	}
	fd, err := h.deposits.Create(c.Request.Context(), p.User.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fd)
}

func (h *Handler) attemptWithdrawal(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	decision, err := h.deposits.AttemptWithdrawal(c.Request.Context(), p.User, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *Handler) confirmWithdrawal(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	confirmation, err := h.deposits.ConfirmWithdrawal(c.Request.Context(), p.User.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, confirmation)
}

// submitReview takes a multipart form with a reason and a proof document.
// Only the document's name and size are kept.
func (h *Handler) submitReview(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	req := models.WithdrawalReviewRequest{Reason: c.PostForm("reason")}
	if doc, err := c.FormFile("document"); err == nil {
		req.DocumentName = doc.Filename
		req.DocumentSize = doc.Size
	}

	message, err := h.deposits.SubmitReview(c.Request.Context(), p.User, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": message})
}

func (h *Handler) raiseComplaint(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req models.CreateComplaintRequest
	if !bindJSON(c, &req) {
		return
	}
	complaint, err := h.support.Raise(c.Request.Context(), p.User.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

func (h *Handler) listComplaints(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	list, err := h.support.List(c.Request.Context(), p.User.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": list})
}

func (h *Handler) trackComplaint(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	complaint, err := h.support.Track(c.Request.Context(), p.User.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

func (h *Handler) chat(c *gin.Context) {
	if _, ok := mustPrincipal(c); !ok {
		return
	}
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	answer, err := h.support.Chat(c.Request.Context(), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (h *Handler) verifySignature(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}
	var req signatureRequest
	if !bindJSON(c, &req) {
		return
	}
	verdict, err := h.verification.VerifySignature(c.Request.Context(), p.User.ID, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *Handler) synthesize(c *gin.Context) {
	if _, ok := mustPrincipal(c); !ok {
		return
	}
	var req speechRequest
	if !bindJSON(c, &req) {
		return
	}
	audio, err := h.verification.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio": audio})
}
