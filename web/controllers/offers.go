package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateOffer(c *gin.Context) {
	var req struct {
		StudentID   string `json:"student_id" binding:"required"`
		JobPosition string `json:"job_position" binding:"required"`
		Company     string `json:"company"`
		Message     string `json:"message" binding:"max=2000"`
	}
	if !bind(c, &req) {
		return
	}
	o, err := h.Services.Offers.Create(c.Request.Context(), caller(c).UserID, req.StudentID, req.JobPosition, req.Company, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"offer": o})
}

func (h *Handler) ListOffers(c *gin.Context) {
	out, err := h.Services.Offers.ListForUser(c.Request.Context(), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": out})
}

func (h *Handler) GetOffer(c *gin.Context) {
	o, err := h.Services.Offers.Get(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) RespondToOffer(c *gin.Context) {
	var req struct {
		Action string `json:"action" binding:"required,oneof=accept decline"`
	}
	if !bind(c, &req) {
		return
	}
	o, err := h.Services.Offers.StudentRespond(c.Request.Context(), c.Param("id"), caller(c).UserID, req.Action)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) CompleteOffer(c *gin.Context) {
	o, err := h.Services.Offers.MarkComplete(c.Request.Context(), c.Param("id"), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offer": o})
}
