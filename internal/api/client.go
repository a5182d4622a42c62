// Package api is the only component that talks to the remote blog API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"blogclient/internal/models"
)

// genericMessage is shown whenever the server gives no usable reason
// (transport failure, unreadable body, missing message field).
const genericMessage = "Server error. Please try again later."

// Error is the single failure shape callers see, regardless of whether the
// request died in transport, decoding, or with a non-2xx status. Status is 0
// when no HTTP response was received.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// TokenSource supplies the persisted credential token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
	}
}

// do performs one API call. Body is JSON-encoded when non-nil; the response
// body is decoded into out when out is non-nil. withAuth attaches the bearer
// token if one is persisted.
func (c *Client) do(ctx context.Context, method, path string, body, out any, withAuth bool) error {
	var reqBody io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return &Error{Message: genericMessage}
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return &Error{Message: genericMessage}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withAuth {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Message: genericMessage}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Message: genericMessage}
		}
	}
	return nil
}

// errorMessage pulls the "message" field out of an error body if there is one.
func errorMessage(resp *http.Response) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}
	return genericMessage
}

// Posts

func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/getPosts", nil, &posts, false); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/getPost/"+id, nil, &post, false); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) ListPopularPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/posts/getPopularPosts", nil, &posts, false); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) AddPost(ctx context.Context, draft models.PostDraft) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, "/posts/addPost", draft, &post, true); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, draft models.PostDraft) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPatch, "/posts/updatePost/"+id, draft, &post, true); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/deletePost/"+id, nil, nil, true)
}

// Comments

func (c *Client) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, "/posts/getComments/"+postID, nil, &comments, false); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) AddComment(ctx context.Context, postID string, draft models.CommentDraft) error {
	return c.do(ctx, http.MethodPost, "/posts/addComment/"+postID, draft, nil, true)
}

func (c *Client) AddGuestComment(ctx context.Context, postID string, draft models.CommentDraft) error {
	return c.do(ctx, http.MethodPost, "/posts/addGuestComment/"+postID, draft, nil, false)
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/deleteComment/"+id, nil, nil, true)
}

// Users

// Login exchanges credentials for the raw credential token, taken from the
// response's "access" field.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (string, error) {
	var body struct {
		Access string `json:"access"`
	}
	if err := c.do(ctx, http.MethodPost, "/users/login", creds, &body, false); err != nil {
		return "", err
	}
	if body.Access == "" {
		return "", &Error{Message: "token missing in response"}
	}
	return body.Access, nil
}

func (c *Client) Register(ctx context.Context, reg models.Registration) error {
	return c.do(ctx, http.MethodPost, "/users/register", reg, nil, false)
}

// Details fetches the authenticated user's profile. The API nests it under a
// "user" field; callers get the flat struct.
func (c *Client) Details(ctx context.Context) (*models.User, error) {
	var body struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/details", nil, &body, true); err != nil {
		return nil, err
	}
	return &body.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/users/profile", update, nil, true)
}

func (c *Client) UpdatePassword(ctx context.Context, update models.PasswordUpdate) error {
	return c.do(ctx, http.MethodPatch, "/users/update-password", update, nil, true)
}
