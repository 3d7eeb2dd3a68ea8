package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"go-referral/lifecycle"
	"go-referral/payment/qrcode"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateRequest(c *gin.Context) {
	var req struct {
		ProfessionalID string `json:"professional_id" binding:"required"`
		JobPosition    string `json:"job_position" binding:"required"`
		Company        string `json:"company" binding:"required"`
		Message        string `json:"message" binding:"max=2000"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Requests.Create(c.Request.Context(), caller(c).UserID, req.ProfessionalID, req.JobPosition, req.Company, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": r})
}

func (h *Handler) ListRequests(c *gin.Context) {
	out, err := h.Services.Requests.ListForUser(c.Request.Context(), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": out})
}

func (h *Handler) GetRequest(c *gin.Context) {
	r, err := h.Services.Requests.Get(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

func (h *Handler) RespondToRequest(c *gin.Context) {
	var req struct {
		Action  string `json:"action" binding:"required,oneof=accept request_payment decline"`
		Amount  int64  `json:"amount"`
		Message string `json:"message"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Requests.ProfessionalRespond(c.Request.Context(), c.Param("id"), caller(c).UserID,
		lifecycle.RequestAction(req.Action), req.Amount, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

func (h *Handler) RespondToPayment(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=accept reject"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Requests.StudentRespondToPayment(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

func (h *Handler) CompletePayment(c *gin.Context) {
	var req struct {
		Method    string `json:"method" binding:"required"`
		UPIHandle string `json:"upi_handle"`
	}
	if !bind(c, &req) {
		return
	}
	r, p, err := h.Services.Requests.CompletePayment(c.Request.Context(), c.Param("id"), caller(c).UserID,
		lifecycle.PaymentMethod(req.Method), req.UPIHandle)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r, "payment": p})
}

// PaymentQRCode renders a UPI intent for the requested amount as a PNG, so the
// student can pay from a phone before confirming.
func (h *Handler) PaymentQRCode(c *gin.Context) {
	r, err := h.Services.Requests.Get(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if r.Status != lifecycle.RequestPaymentAccepted || r.PaymentAmount == nil {
		h.fail(c, &lifecycle.InvalidTransitionError{Entity: "request", From: string(r.Status), Action: "pay"})
		return
	}

	size := qrcode.DefaultSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < qrcode.MinSize || n > qrcode.MaxSize {
			h.fail(c, lifecycle.Invalid("size", fmt.Sprintf("must be between %d and %d", qrcode.MinSize, qrcode.MaxSize)))
			return
		}
		size = n
	}
	png, err := qrcode.GenerateUPIQRCode(h.UPIPayee, h.UPIPayeeName, *r.PaymentAmount, "Referral "+r.ID, size)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) CompleteRequest(c *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	r, err := h.Services.Requests.MarkComplete(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

func (h *Handler) CancelRequest(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Requests.Cancel(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": r})
}

func (h *Handler) RequestPayment(c *gin.Context) {
	p, err := h.Services.Requests.Payment(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}
