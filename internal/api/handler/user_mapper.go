package handler

import "github.com/ainterviewer/identity-service/internal/core/domain"

const dateTimeLayout = "2006-01-02 15:04:05"

// userResponse is the full account view shown to its owner and to admins.
type userResponse struct {
	ID                 string   `json:"id"`
	Email              string   `json:"email"`
	GivenNames         string   `json:"given_names"`
	FamilyNames        string   `json:"family_names"`
	Nickname           string   `json:"nickname"`
	Language           string   `json:"language"`
	AntiPhishingPhrase string   `json:"anti_phishing_phrase"`
	Role               string   `json:"role"`
	State              string   `json:"state"`
	CreationDate       string   `json:"creation_date"`
	Projects           []string `json:"projects"`
}

// colleagueResponse is the public view of another user.
type colleagueResponse struct {
	ID          string `json:"id"`
	GivenNames  string `json:"given_names"`
	FamilyNames string `json:"family_names"`
	Nickname    string `json:"nickname"`
	Role        string `json:"role"`
}

func toUserResponse(u *domain.User) userResponse {
	projects := u.Projects
	if projects == nil {
		projects = []string{}
	}
	return userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		GivenNames:         u.GivenNames,
		FamilyNames:        u.FamilyNames,
		Nickname:           u.Nickname,
		Language:           string(u.Language),
		AntiPhishingPhrase: u.AntiPhishingPhrase,
		Role:               string(u.Role),
		State:              string(u.State),
		CreationDate:       u.CreatedAt.UTC().Format(dateTimeLayout),
		Projects:           projects,
	}
}

func toUserResponses(users []*domain.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toColleagueResponses(users []*domain.User) []colleagueResponse {
	out := make([]colleagueResponse, 0, len(users))
	for _, u := range users {
		out = append(out, colleagueResponse{
			ID:          u.ID,
			GivenNames:  u.GivenNames,
			FamilyNames: u.FamilyNames,
			Nickname:    u.Nickname,
			Role:        string(u.Role),
		})
	}
	return out
}
