package httpapi

import (
	"github.com/and161185/bio-card/internal/model"
)

// Wire shapes. Assets travel as their external string form (inline text,
// remote URL, or base64 data URI) and are classified by model.ParseAsset on
// the way in.

type galleryItemDTO struct {
	Image   string `json:"image"`
	Caption string `json:"caption"`
}

type profileWriteRequest struct {
	Language   string `json:"language,omitempty"`
	Nickname   string `json:"nickname"`
	Pronouns   string `json:"pronouns"`
	Bio        string `json:"bio"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	Avatar     string `json:"avatar"`
	Background string `json:"background"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	School     string `json:"school"`
	Major      string `json:"major"`

	Contacts []model.Contact          `json:"contacts"`
	Links    []model.SocialLink       `json:"links"`
	Projects []model.Project          `json:"projects"`
	Work     []model.WorkExperience   `json:"work"`
	Schools  []model.SchoolExperience `json:"schools"`
	Gallery  []galleryItemDTO         `json:"gallery"`
}

func (r *profileWriteRequest) toUpdate() *model.ProfileUpdate {
	gallery := make([]model.GalleryItem, 0, len(r.Gallery))
	for i, g := range r.Gallery {
		gallery = append(gallery, model.GalleryItem{
			Position: i,
			Image:    model.ParseAsset(g.Image),
			Caption:  g.Caption,
		})
	}
	return &model.ProfileUpdate{
		Nickname:   r.Nickname,
		Pronouns:   r.Pronouns,
		Bio:        r.Bio,
		Location:   r.Location,
		Website:    r.Website,
		Avatar:     model.ParseAsset(r.Avatar),
		Background: model.ParseAsset(r.Background),
		Company:    r.Company,
		Title:      r.Title,
		School:     r.School,
		Major:      r.Major,
		Contacts:   r.Contacts,
		Links:      r.Links,
		Projects:   r.Projects,
		Work:       r.Work,
		Schools:    r.Schools,
		Gallery:    gallery,
	}
}

// profilePatchRequest distinguishes absent fields (nil, untouched) from
// present ones, including present-but-empty collections which clear.
type profilePatchRequest struct {
	Language   string  `json:"language,omitempty"`
	Nickname   *string `json:"nickname"`
	Pronouns   *string `json:"pronouns"`
	Bio        *string `json:"bio"`
	Location   *string `json:"location"`
	Website    *string `json:"website"`
	Avatar     *string `json:"avatar"`
	Background *string `json:"background"`
	Company    *string `json:"company"`
	Title      *string `json:"title"`
	School     *string `json:"school"`
	Major      *string `json:"major"`

	Contacts *[]model.Contact          `json:"contacts"`
	Links    *[]model.SocialLink       `json:"links"`
	Projects *[]model.Project          `json:"projects"`
	Work     *[]model.WorkExperience   `json:"work"`
	Schools  *[]model.SchoolExperience `json:"schools"`
	Gallery  *[]galleryItemDTO         `json:"gallery"`
}

func (r *profilePatchRequest) toPatch() *model.ProfilePatch {
	p := &model.ProfilePatch{
		Nickname: r.Nickname,
		Pronouns: r.Pronouns,
		Bio:      r.Bio,
		Location: r.Location,
		Website:  r.Website,
		Company:  r.Company,
		Title:    r.Title,
		School:   r.School,
		Major:    r.Major,
		Contacts: r.Contacts,
		Links:    r.Links,
		Projects: r.Projects,
		Work:     r.Work,
		Schools:  r.Schools,
	}
	if r.Avatar != nil {
		a := model.ParseAsset(*r.Avatar)
		p.Avatar = &a
	}
	if r.Background != nil {
		b := model.ParseAsset(*r.Background)
		p.Background = &b
	}
	if r.Gallery != nil {
		gallery := make([]model.GalleryItem, 0, len(*r.Gallery))
		for i, g := range *r.Gallery {
			gallery = append(gallery, model.GalleryItem{
				Position: i,
				Image:    model.ParseAsset(g.Image),
				Caption:  g.Caption,
			})
		}
		p.Gallery = &gallery
	}
	return p
}

type profileResponse struct {
	Language   string `json:"language,omitempty"`
	Nickname   string `json:"nickname"`
	Pronouns   string `json:"pronouns"`
	Bio        string `json:"bio"`
	Location   string `json:"location"`
	Website    string `json:"website"`
	Avatar     string `json:"avatar"`
	Background string `json:"background"`
	Company    string `json:"company"`
	Title      string `json:"title"`
	School     string `json:"school"`
	Major      string `json:"major"`

	Contacts []model.Contact          `json:"contacts"`
	Links    []model.SocialLink       `json:"links"`
	Projects []model.Project          `json:"projects"`
	Work     []model.WorkExperience   `json:"work"`
	Schools  []model.SchoolExperience `json:"schools"`
	Gallery  []galleryItemDTO         `json:"gallery"`
}

func toProfileResponse(p *model.Profile) profileResponse {
	gallery := make([]galleryItemDTO, 0, len(p.Gallery))
	for _, g := range p.Gallery {
		gallery = append(gallery, galleryItemDTO{Image: g.Image.String(), Caption: g.Caption})
	}
	return profileResponse{
		Language:   p.Language,
		Nickname:   p.Nickname,
		Pronouns:   p.Pronouns,
		Bio:        p.Bio,
		Location:   p.Location,
		Website:    p.Website,
		Avatar:     p.Avatar.String(),
		Background: p.Background.String(),
		Company:    p.Company,
		Title:      p.Title,
		School:     p.School,
		Major:      p.Major,
		Contacts:   p.Contacts,
		Links:      p.Links,
		Projects:   p.Projects,
		Work:       p.Work,
		Schools:    p.Schools,
		Gallery:    gallery,
	}
}
