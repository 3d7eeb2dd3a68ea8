package referral

import (
	"context"
	"strings"

	"go-referral/lifecycle"
	"go-referral/web/db"
	"go-referral/web/storage"
)

const (
	defaultDirectoryLimit = 50
	maxDirectoryLimit     = 200
)

type ProfileService struct {
	d Deps
}

// ProfilePatch holds the editable profile fields; nil means unchanged. Role is
// accepted only to reject an attempt to change it.
type ProfilePatch struct {
	Role            *lifecycle.Role
	DisplayName     *string
	Institution     *string
	Major           *string
	GraduationYear  *string
	StudentNumber   *string
	CurrentSemester *string
	Company         *string
	JobTitle        *string
	Experience      *string
	Industry        *string
	Skills          []string
}

// Get returns the profile with its live counters.
func (s *ProfileService) Get(ctx context.Context, id string) (*db.User, error) {
	u, err := s.d.Store.GetUser(ctx, id)
	if err != nil {
		return nil, lifecycle.Remote("load user", err)
	}
	counters, err := s.d.Counters.Get(ctx, id)
	if err != nil {
		s.d.Logger.WithUser(id).WithError(err).Warn("load counters")
		return u, nil
	}
	u.ReferralsGenerated = counters[db.FieldReferralsGenerated]
	u.ActiveReferrals = counters[db.FieldActiveReferrals]
	u.SuccessfulReferrals = counters[db.FieldSuccessfulReferrals]
	u.TotalRewards = counters[db.FieldTotalRewards]
	u.SentRequests = counters[db.FieldSentRequests]
	return u, nil
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func (s *ProfileService) Update(ctx context.Context, id string, p ProfilePatch) (*db.User, error) {
	if p.DisplayName != nil && strings.TrimSpace(*p.DisplayName) == "" {
		return nil, lifecycle.Invalid("display_name", "cannot be blank")
	}
	u, err := s.d.Store.UpdateUser(ctx, id, func(u *db.User) error {
		if p.Role != nil && *p.Role != u.Role {
			return lifecycle.Invalid("role", "cannot be changed after signup")
		}
		set(&u.DisplayName, p.DisplayName)
		switch u.Role {
		case lifecycle.RoleStudent:
			set(&u.Institution, p.Institution)
			set(&u.Major, p.Major)
			set(&u.GraduationYear, p.GraduationYear)
			set(&u.StudentNumber, p.StudentNumber)
			set(&u.CurrentSemester, p.CurrentSemester)
		case lifecycle.RoleProfessional:
			set(&u.Company, p.Company)
			set(&u.JobTitle, p.JobTitle)
			set(&u.Experience, p.Experience)
			set(&u.Industry, p.Industry)
			if p.Skills != nil {
				u.Skills = p.Skills
			}
		}
		return nil
	})
	if err != nil {
		return nil, lifecycle.Remote("update user", err)
	}
	s.d.Logger.WithUser(id).Info("profile updated")
	return u, nil
}

// UploadPhoto stores an image as the user's profile photo.
func (s *ProfileService) UploadPhoto(ctx context.Context, id string, data []byte) (*db.User, error) {
	if len(data) == 0 {
		return nil, lifecycle.Invalid("photo", "is empty")
	}
	_, ext, err := storage.DetectImage(data)
	if err != nil {
		return nil, lifecycle.Invalid("photo", err.Error())
	}
	url, err := s.d.Objects.Upload(ctx, "profiles/"+id+ext, data)
	if err != nil {
		return nil, lifecycle.Remote("upload photo", err)
	}
	u, err := s.d.Store.UpdateUser(ctx, id, func(u *db.User) error {
		u.PhotoURL = url
		return nil
	})
	if err != nil {
		return nil, lifecycle.Remote("update user", err)
	}
	return u, nil
}

// Directory lists users of role matching query, the professionals a student
// can ask or the students a professional can offer to.
func (s *ProfileService) Directory(ctx context.Context, role lifecycle.Role, query string, limit int) ([]db.User, error) {
	if !role.Valid() {
		return nil, lifecycle.Invalid("role", "must be student or professional")
	}
	if limit <= 0 {
		limit = defaultDirectoryLimit
	}
	if limit > maxDirectoryLimit {
		limit = maxDirectoryLimit
	}
	out, err := s.d.Store.ListUsers(ctx, db.UserFilter{Role: string(role), Query: strings.TrimSpace(query), Limit: limit})
	if err != nil {
		return nil, lifecycle.Remote("list users", err)
	}
	return out, nil
}
