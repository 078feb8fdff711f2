package bagger

import (
	"fmt"
	"slices"
	"strings"

	"bagger/internal/apperror"
	"bagger/internal/model"
)

// NormalizePlatformInput trims fields, lowercases the type and derives the
// slug from the name when none is given.
func NormalizePlatformInput(in model.PlatformInput) model.PlatformInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	in.Type = model.PlatformType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	return in
}

func ValidatePlatformInput(in model.PlatformInput) error {
	if in.Name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if in.Slug == "" {
		return apperror.ValidationFailed("slug", "Slug is required")
	}
	if !in.Type.Valid() {
		return invalidPlatformType(in.Type)
	}
	return nil
}

// NormalizePlatformPatch trims the given fields. A new name without an
// explicit slug re-derives the slug from the name.
func NormalizePlatformPatch(p model.PlatformPatch) model.PlatformPatch {
	p.Name, p.Slug = normalizeNameSlug(p.Name, p.Slug)
	if p.Type != nil {
		t := model.PlatformType(strings.ToLower(strings.TrimSpace(string(*p.Type))))
		p.Type = &t
	}
	return p
}

func ValidatePlatformPatch(p model.PlatformPatch) error {
	if p.Name != nil && *p.Name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if p.Slug != nil && *p.Slug == "" {
		return apperror.ValidationFailed("slug", "Slug is required")
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalidPlatformType(*p.Type)
	}
	return nil
}

func NormalizeTopicInput(in model.TopicInput) model.TopicInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	return in
}

func ValidateTopicInput(in model.TopicInput) error {
	if in.Name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if in.Slug == "" {
		return apperror.ValidationFailed("slug", "Slug is required")
	}
	return nil
}

func NormalizeTopicPatch(p model.TopicPatch) model.TopicPatch {
	p.Name, p.Slug = normalizeNameSlug(p.Name, p.Slug)
	return p
}

// normalizeNameSlug trims a patch's name and slug. The slug follows the name
// unless it is given and non-blank.
func normalizeNameSlug(name, slug *string) (*string, *string) {
	if name != nil {
		n := strings.TrimSpace(*name)
		name = &n
	}
	if slug != nil {
		s := strings.TrimSpace(*slug)
		slug = &s
	}
	if name != nil && (slug == nil || *slug == "") {
		s := Slugify(*name)
		slug = &s
	}
	return name, slug
}

func ValidateTopicPatch(p model.TopicPatch) error {
	if p.Name != nil && *p.Name == "" {
		return apperror.ValidationFailed("name", "Name is required")
	}
	if p.Slug != nil && *p.Slug == "" {
		return apperror.ValidationFailed("slug", "Slug is required")
	}
	return nil
}

// NormalizeCheatInput trims the title and deduplicates the tag id sets.
// Code and notes are kept verbatim.
func NormalizeCheatInput(in model.CheatInput) model.CheatInput {
	in.Title = strings.TrimSpace(in.Title)
	in.PlatformIDs = UniqueIDs(in.PlatformIDs)
	in.TopicIDs = UniqueIDs(in.TopicIDs)
	return in
}

func ValidateCheatInput(in model.CheatInput) error {
	if in.Title == "" {
		return apperror.ValidationFailed("title", "Title is required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return apperror.ValidationFailed("code", "Code is required")
	}
	return nil
}

func NormalizeCheatPatch(p model.CheatPatch) model.CheatPatch {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.PlatformIDs != nil {
		ids := UniqueIDs(*p.PlatformIDs)
		p.PlatformIDs = &ids
	}
	if p.TopicIDs != nil {
		ids := UniqueIDs(*p.TopicIDs)
		p.TopicIDs = &ids
	}
	return p
}

func ValidateCheatPatch(p model.CheatPatch) error {
	if p.Title != nil && *p.Title == "" {
		return apperror.ValidationFailed("title", "Title is required")
	}
	if p.Code != nil && strings.TrimSpace(*p.Code) == "" {
		return apperror.ValidationFailed("code", "Code is required")
	}
	return nil
}

// UniqueIDs returns ids with duplicates removed, keeping first occurrences
// in order. The result is never nil.
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func invalidPlatformType(t model.PlatformType) error {
	return apperror.ValidationFailed("type", fmt.Sprintf("Invalid platform type %q: must be one of language, framework, tool, format", t))
}
