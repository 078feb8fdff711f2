package api

import (
	"context"
	"fmt"
	"net/http"

	"bagger/internal/model"
)

const (
	pathMe        = "/api/users/me"
	pathLogin     = "/api/users/login"
	pathUsers     = "/api/users/"
	pathBootstrap = "/api/users/bootstrap"
	pathPlatforms = "/api/platforms/"
	pathTopics    = "/api/topics/"
	pathCheats    = "/api/cheats/"
)

// Me returns the user owning the current token.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.Do(ctx, http.MethodGet, pathMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.LoginResult, error) {
	var result model.LoginResult
	if err := c.Do(ctx, http.MethodPost, pathLogin, creds, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, in model.SignupInput) error {
	return c.Do(ctx, http.MethodPost, pathUsers, in, nil)
}

// Bootstrap fetches every collection the signed-in user can see.
func (c *Client) Bootstrap(ctx context.Context) (*model.Bootstrap, error) {
	var b model.Bootstrap
	if err := c.Do(ctx, http.MethodGet, pathBootstrap, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreatePlatform creates a platform. The result is nil when the server
// answers without a body.
func (c *Client) CreatePlatform(ctx context.Context, in model.PlatformInput) (*model.Platform, error) {
	return create[model.Platform](ctx, c, pathPlatforms, in)
}

// UpdatePlatform patches a platform. The result is nil when the server
// answers without a body.
func (c *Client) UpdatePlatform(ctx context.Context, id int64, patch model.PlatformPatch) (*model.Platform, error) {
	return update[model.Platform](ctx, c, pathPlatforms, id, patch)
}

// DeletePlatform deletes a platform.
func (c *Client) DeletePlatform(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, itemPath(pathPlatforms, id), nil, nil)
}

// CreateTopic creates a topic.
func (c *Client) CreateTopic(ctx context.Context, in model.TopicInput) (*model.Topic, error) {
	return create[model.Topic](ctx, c, pathTopics, in)
}

// UpdateTopic patches a topic.
func (c *Client) UpdateTopic(ctx context.Context, id int64, patch model.TopicPatch) (*model.Topic, error) {
	return update[model.Topic](ctx, c, pathTopics, id, patch)
}

// DeleteTopic deletes a topic.
func (c *Client) DeleteTopic(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, itemPath(pathTopics, id), nil, nil)
}

// CreateCheat creates a cheat.
func (c *Client) CreateCheat(ctx context.Context, in model.CheatInput) (*model.Cheat, error) {
	return create[model.Cheat](ctx, c, pathCheats, in)
}

// UpdateCheat patches a cheat.
func (c *Client) UpdateCheat(ctx context.Context, id int64, patch model.CheatPatch) (*model.Cheat, error) {
	return update[model.Cheat](ctx, c, pathCheats, id, patch)
}

// DeleteCheat deletes a cheat.
func (c *Client) DeleteCheat(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, itemPath(pathCheats, id), nil, nil)
}

func create[T any](ctx context.Context, c *Client, collection string, in any) (*T, error) {
	var out T
	decoded, err := c.do(ctx, http.MethodPost, collection, in, &out)
	if err != nil || !decoded {
		return nil, err
	}
	return &out, nil
}

func update[T any](ctx context.Context, c *Client, collection string, id int64, patch any) (*T, error) {
	var out T
	decoded, err := c.do(ctx, http.MethodPatch, itemPath(collection, id), patch, &out)
	if err != nil || !decoded {
		return nil, err
	}
	return &out, nil
}

func itemPath(collection string, id int64) string {
	return fmt.Sprintf("%s%d", collection, id)
}
