// Package profile stores the onboarding answers: who the farmer is and which
// categories they care about. Completing onboarding clears the first-launch flag.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/state"
)

// Gender values accepted by onboarding.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Profile is the onboarding record.
type Profile struct {
	Name      string             `json:"name"`
	BirthDate string             `json:"birthDate"`
	Phone     string             `json:"phone"`
	Gender    string             `json:"gender"`
	Interests []project.Category `json:"interests"`
}

// Normalize trims fields and sorts/dedupes interests.
func (p Profile) Normalize() Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.BirthDate = strings.TrimSpace(p.BirthDate)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Gender = strings.TrimSpace(p.Gender)
	interests := make([]project.Category, 0, len(p.Interests))
	for _, c := range p.Interests {
		interests = append(interests, project.ParseCategory(string(c)))
	}
	slices.Sort(interests)
	p.Interests = slices.Compact(interests)
	return p
}

// Validate checks the fields in the order the onboarding screens ask for
// them and returns the first problem.
func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return apperrors.NewValidationError("name", "이름을 입력해주세요")
	case p.BirthDate == "":
		return apperrors.NewValidationError("birthDate", "생년월일을 입력해주세요")
	case p.Phone == "":
		return apperrors.NewValidationError("phone", "전화번호를 입력해주세요")
	case p.Gender != GenderMale && p.Gender != GenderFemale:
		return apperrors.NewValidationError("gender", "성별을 선택해주세요")
	case len(p.Interests) == 0:
		return apperrors.NewValidationError("interests", "관심 분야를 하나 이상 선택해주세요")
	}
	for _, c := range p.Interests {
		if !c.Known() {
			return apperrors.NewValidationError("interests", fmt.Sprintf("알 수 없는 분야입니다: %s", c))
		}
	}
	return nil
}

// Wants reports whether c is among the selected interests.
func (p Profile) Wants(c project.Category) bool {
	return slices.Contains(p.Interests, c)
}

// Service reads and writes the profile in a state.Store.
type Service struct {
	store state.Store
}

func NewService(store state.Store) *Service {
	return &Service{store: store}
}

// FirstLaunch reports whether onboarding has not been completed yet.
func (s *Service) FirstLaunch(ctx context.Context) (bool, error) {
	return state.GetBool(ctx, s.store, state.KeyFirstLaunch, true)
}

// Load returns the stored profile. Missing fields are empty.
func (s *Service) Load(ctx context.Context) (Profile, error) {
	var p Profile
	fields := []struct {
		key string
		dst *string
	}{
		{state.KeyUserName, &p.Name},
		{state.KeyUserBirthDate, &p.BirthDate},
		{state.KeyUserPhone, &p.Phone},
		{state.KeyUserGender, &p.Gender},
	}
	for _, f := range fields {
		v, err := state.GetString(ctx, s.store, f.key, "")
		if err != nil {
			return Profile{}, err
		}
		*f.dst = v
	}

	raw, err := state.GetString(ctx, s.store, state.KeyUserInterests, "")
	if err != nil {
		return Profile{}, err
	}
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			p.Interests = append(p.Interests, project.Category(c))
		}
	}
	return p, nil
}

// Save validates and stores p, then marks onboarding complete.
func (s *Service) Save(ctx context.Context, p Profile) (Profile, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	interests := make([]string, len(p.Interests))
	for i, c := range p.Interests {
		interests[i] = string(c)
	}
	values := map[string]string{
		state.KeyUserName:      p.Name,
		state.KeyUserBirthDate: p.BirthDate,
		state.KeyUserPhone:     p.Phone,
		state.KeyUserGender:    p.Gender,
		state.KeyUserInterests: strings.Join(interests, ","),
	}
	var errs []error
	for k, v := range values {
		if err := s.store.Set(ctx, k, v); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Profile{}, fmt.Errorf("profile: save: %w", err)
	}
	if err := state.SetBool(ctx, s.store, state.KeyFirstLaunch, false); err != nil {
		return Profile{}, err
	}
	return p, nil
}
