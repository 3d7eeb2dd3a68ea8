package controllers

import (
	"net/http"

	"go-referral/auth"
	"go-referral/lifecycle"
	"go-referral/web/middleware"

	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Email           string   `json:"email" binding:"required,email"`
	Password        string   `json:"password" binding:"required,min=6"`
	Role            string   `json:"role" binding:"required,oneof=student professional"`
	DisplayName     string   `json:"display_name"`
	Institution     string   `json:"institution"`
	Major           string   `json:"major"`
	GraduationYear  string   `json:"graduation_year"`
	StudentNumber   string   `json:"student_number"`
	CurrentSemester string   `json:"current_semester"`
	Company         string   `json:"company"`
	JobTitle        string   `json:"job_title"`
	Experience      string   `json:"experience"`
	Industry        string   `json:"industry"`
	Skills          []string `json:"skills"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}
	token, user, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password, lifecycle.Role(req.Role), auth.Profile{
		DisplayName:     req.DisplayName,
		Institution:     req.Institution,
		Major:           req.Major,
		GraduationYear:  req.GraduationYear,
		StudentNumber:   req.StudentNumber,
		CurrentSemester: req.CurrentSemester,
		Company:         req.Company,
		JobTitle:        req.JobTitle,
		Experience:      req.Experience,
		Industry:        req.Industry,
		Skills:          req.Skills,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if !bind(c, &req) {
		return
	}
	token, user, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.Token(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered, a reset link was sent"})
}

func (h *Handler) ConfirmReset(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.Auth.ConfirmReset(c.Request.Context(), req.Token, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
