package controllers

import (
	"io"
	"net/http"
	"strconv"

	"go-referral/lifecycle"
	"go-referral/referral"

	"github.com/gin-gonic/gin"
)

const maxPhotoSize = 5 << 20

func (h *Handler) User(c *gin.Context) {
	u, err := h.Services.Profiles.Get(c.Request.Context(), caller(c).UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type profileRequest struct {
	Role            *string  `json:"role"`
	DisplayName     *string  `json:"display_name" binding:"omitempty,max=100"`
	Institution     *string  `json:"institution"`
	Major           *string  `json:"major"`
	GraduationYear  *string  `json:"graduation_year"`
	StudentNumber   *string  `json:"student_number"`
	CurrentSemester *string  `json:"current_semester"`
	Company         *string  `json:"company"`
	JobTitle        *string  `json:"job_title"`
	Experience      *string  `json:"experience"`
	Industry        *string  `json:"industry"`
	Skills          []string `json:"skills"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	patch := referral.ProfilePatch{
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
	}
	if req.Role != nil {
		role := lifecycle.Role(*req.Role)
		patch.Role = &role
	}
	u, err := h.Services.Profiles.Update(c.Request.Context(), caller(c).UserID, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// UploadPhoto takes the image as the "photo" field of a multipart form.
func (h *Handler) UploadPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing photo file"})
		return
	}
	if fh.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Photo is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read photo"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read photo"})
		return
	}

	u, err := h.Services.Profiles.UploadPhoto(c.Request.Context(), caller(c).UserID, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// PublicProfile shows another user's profile without private fields.
func (h *Handler) PublicProfile(c *gin.Context) {
	u, err := h.Services.Profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	u.StudentNumber = ""
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) directory(c *gin.Context, role lifecycle.Role) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	users, err := h.Services.Profiles.Directory(c.Request.Context(), role, c.Query("q"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range users {
		users[i].StudentNumber = ""
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) Professionals(c *gin.Context) {
	h.directory(c, lifecycle.RoleProfessional)
}

func (h *Handler) Students(c *gin.Context) {
	h.directory(c, lifecycle.RoleStudent)
}
