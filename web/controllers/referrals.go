package controllers

import (
	"net/http"

	"go-referral/lifecycle"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateReferral(c *gin.Context) {
	var req struct {
		RefereeEmail string `json:"referee_email" binding:"required"`
		RefereeName  string `json:"referee_name" binding:"required"`
		JobType      string `json:"job_type"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Referrals.Create(c.Request.Context(), caller(c).UserID, req.RefereeEmail, req.RefereeName, req.JobType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"referral": r})
}

func (h *Handler) ListReferrals(c *gin.Context) {
	out, err := h.Services.Referrals.List(c.Request.Context(), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referrals": out})
}

func (h *Handler) UpdateReferralStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := h.Services.Referrals.UpdateStatus(c.Request.Context(), c.Param("id"), caller(c).UserID, lifecycle.ReferralStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral": r})
}
