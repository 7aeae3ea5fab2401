package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/todolist/internal/auth"
	"github.com/nhle/todolist/internal/model"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates an account and stores the returned session token.
func (c *Client) Register(ctx context.Context, creds model.Credentials) error {
	return c.authenticate(ctx, "/api/register", creds)
}

// Login signs in and stores the returned session token.
func (c *Client) Login(ctx context.Context, creds model.Credentials) error {
	return c.authenticate(ctx, "/api/login", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds model.Credentials) error {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, path, creds, &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("%s: empty token in response", path)
	}
	if err := c.tokens.SetToken(resp.Token); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	return nil
}

// User decodes the identity carried by the stored token. The signature is
// not checked here; the server verifies it on every request.
func (c *Client) User() (model.User, bool) {
	tok, err := c.tokens.Token()
	if err != nil || tok == "" {
		return model.User{}, false
	}

	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		c.logger.Debug("decoding session token", "error", err)
		return model.User{}, false
	}
	return model.User{ID: claims.ID, Email: claims.Email}, true
}

// Logout notifies the server and always clears the local token. The server
// call is best effort; its error is returned only for logging.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	if clearErr := c.tokens.ClearToken(); clearErr != nil {
		return fmt.Errorf("clearing session token: %w", clearErr)
	}
	return err
}

// ListTodos returns every todo of the signed-in account.
func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo creates a todo and returns the server's copy.
func (c *Client) CreateTodo(ctx context.Context, in model.NewTodo) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", in, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo sends the patches as one partial update.
func (c *Client) UpdateTodo(ctx context.Context, id int64, patches ...model.TodoPatch) (*model.Todo, error) {
	u := model.UpdateFromPatches(patches...)
	if u.IsEmpty() {
		return nil, fmt.Errorf("update todo %d: no fields to update", id)
	}

	var todo model.Todo
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/todos/%d", id), u, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo deletes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), nil, nil)
}

// ReorderTodos persists ids as the new order and returns the renumbered list.
func (c *Client) ReorderTodos(ctx context.Context, ids []int64) ([]model.Todo, error) {
	if ids == nil {
		ids = []int64{}
	}
	body := struct {
		Order []int64 `json:"order"`
	}{Order: ids}

	var todos []model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos/reorder", body, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// ListCategories returns the account's categories.
func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

type categoryBody struct {
	Name string `json:"name"`
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	var cat model.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", categoryBody{Name: name}, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// RenameCategory renames a category.
func (c *Client) RenameCategory(ctx context.Context, id int64, name string) (*model.Category, error) {
	var cat model.Category
	path := fmt.Sprintf("/api/categories/%d", id)
	if err := c.do(ctx, http.MethodPut, path, categoryBody{Name: name}, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory deletes a category; its todos become uncategorized.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil)
}

// Health checks the server. It bypasses the connectivity check and the
// offline queue, so it is safe to call while offline.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return &NetworkError{Method: http.MethodGet, Path: "/health", Err: err}
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Method: http.MethodGet, Path: "/health", Status: resp.StatusCode,
			Message: strings.TrimSpace(http.StatusText(resp.StatusCode))}
	}
	return nil
}
