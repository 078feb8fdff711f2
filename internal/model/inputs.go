package model

// PlatformInput is the body for creating a platform.
type PlatformInput struct {
	Name string       `json:"name"`
	Slug string       `json:"slug"`
	Type PlatformType `json:"type"`
}

// PlatformPatch is a partial platform update. Nil fields are left unchanged.
type PlatformPatch struct {
	Name *string       `json:"name,omitempty"`
	Slug *string       `json:"slug,omitempty"`
	Type *PlatformType `json:"type,omitempty"`
}

// Apply returns p with the non-nil patch fields applied.
func (patch PlatformPatch) Apply(p Platform) Platform {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	return p
}

// TopicInput is the body for creating a topic.
type TopicInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TopicPatch is a partial topic update. Nil fields are left unchanged.
type TopicPatch struct {
	Name *string `json:"name,omitempty"`
	Slug *string `json:"slug,omitempty"`
}

// Apply returns t with the non-nil patch fields applied.
func (patch TopicPatch) Apply(t Topic) Topic {
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Slug != nil {
		t.Slug = *patch.Slug
	}
	return t
}

// CheatInput is the body for creating a cheat.
type CheatInput struct {
	Title       string  `json:"title"`
	Code        string  `json:"code"`
	Notes       string  `json:"notes"`
	IsPublic    bool    `json:"is_public"`
	PlatformIDs []int64 `json:"platform_ids"`
	TopicIDs    []int64 `json:"topic_ids"`
}

// CheatPatch is a partial cheat update. Nil fields are left unchanged.
type CheatPatch struct {
	Title       *string  `json:"title,omitempty"`
	Code        *string  `json:"code,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	IsPublic    *bool    `json:"is_public,omitempty"`
	PlatformIDs *[]int64 `json:"platform_ids,omitempty"`
	TopicIDs    *[]int64 `json:"topic_ids,omitempty"`
}

// Apply returns c with the non-nil patch fields applied.
func (patch CheatPatch) Apply(c Cheat) Cheat {
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Code != nil {
		c.Code = *patch.Code
	}
	if patch.Notes != nil {
		c.Notes = *patch.Notes
	}
	if patch.IsPublic != nil {
		c.IsPublic = *patch.IsPublic
	}
	if patch.PlatformIDs != nil {
		c.PlatformIDs = append([]int64(nil), (*patch.PlatformIDs)...)
	}
	if patch.TopicIDs != nil {
		c.TopicIDs = append([]int64(nil), (*patch.TopicIDs)...)
	}
	return c
}
