package model

import "time"

// PlatformType classifies a platform.
type PlatformType string

const (
	PlatformLanguage  PlatformType = "language"
	PlatformFramework PlatformType = "framework"
	PlatformTool      PlatformType = "tool"
	PlatformFormat    PlatformType = "format"
)

// PlatformTypes lists every valid PlatformType in display order.
var PlatformTypes = []PlatformType{PlatformLanguage, PlatformFramework, PlatformTool, PlatformFormat}

// Valid reports whether t is one of the known platform types.
func (t PlatformType) Valid() bool {
	for _, known := range PlatformTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Platform is a language, framework, tool or format that cheats are tagged with.
type Platform struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Slug string       `json:"slug"`
	Type PlatformType `json:"type"`
}

// Topic is a concept that cheats are tagged with.
type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Cheat is a titled code snippet with optional notes.
type Cheat struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Code        string  `json:"code"`
	Notes       string  `json:"notes"`
	IsPublic    bool    `json:"is_public"`
	PlatformIDs []int64 `json:"platform_ids"`
	TopicIDs    []int64 `json:"topic_ids"`
}

// UserCheat is the per-user overlay on a shared cheat.
type UserCheat struct {
	ID         int64 `json:"id"`
	UserID     int64 `json:"user_id"`
	CheatID    int64 `json:"cheat_id"`
	IsFavorite bool  `json:"is_favorite"`
}

// User is the authenticated identity.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupInput is the account creation request body.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the login response body.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// Bootstrap is the combined payload of GET /api/users/bootstrap.
type Bootstrap struct {
	Platforms  []Platform  `json:"platforms"`
	Topics     []Topic     `json:"topics"`
	Cheats     []Cheat     `json:"cheats"`
	UserCheats []UserCheat `json:"user_cheats"`
}

// CacheSnapshot is the per-user cached copy of the bootstrap collections.
// The write time is stored separately from the blob.
type CacheSnapshot struct {
	Platforms  []Platform  `json:"platforms"`
	Topics     []Topic     `json:"topics"`
	Cheats     []Cheat     `json:"cheats"`
	UserCheats []UserCheat `json:"userCheats"`
}

// Export is the downloadable snapshot of the three collections.
type Export struct {
	Platforms  []Platform `json:"platforms"`
	Topics     []Topic    `json:"topics"`
	Cheats     []Cheat    `json:"cheats"`
	ExportedAt time.Time  `json:"exported_at"`
}
