package bagger

import (
	"context"

	"bagger/internal/model"
)

// AuthBackend is the account half of the REST API.
type AuthBackend interface {
	Me(ctx context.Context) (*model.User, error)
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error)
	CreateUser(ctx context.Context, in model.SignupInput) error
}

// DataBackend is the library half of the REST API. Create and Update may
// return a nil entity when the server answers without a body.
type DataBackend interface {
	Bootstrap(ctx context.Context) (*model.Bootstrap, error)

	CreatePlatform(ctx context.Context, in model.PlatformInput) (*model.Platform, error)
	UpdatePlatform(ctx context.Context, id int64, patch model.PlatformPatch) (*model.Platform, error)
	DeletePlatform(ctx context.Context, id int64) error

	CreateTopic(ctx context.Context, in model.TopicInput) (*model.Topic, error)
	UpdateTopic(ctx context.Context, id int64, patch model.TopicPatch) (*model.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error

	CreateCheat(ctx context.Context, in model.CheatInput) (*model.Cheat, error)
	UpdateCheat(ctx context.Context, id int64, patch model.CheatPatch) (*model.Cheat, error)
	DeleteCheat(ctx context.Context, id int64) error
}

// Backend is the full REST API.
type Backend interface {
	AuthBackend
	DataBackend
}
