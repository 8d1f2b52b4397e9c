/*
Package blog contains the core data structures of the blog domain and the typed
REST client used to talk to the backend.

This file defines the Client struct. Every operation takes a context, attaches a
request ID for log correlation, validates the response envelope at the boundary,
and converts failures into the errs taxonomy. Mutating operations never touch
local state; callers observe changes only once the backend confirms them.
*/
package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
	"miniblog/internal/pkg/randx"
	"miniblog/internal/pkg/resp"
)

const (
	// Multipart part names of the signup body. The backend demultiplexes by
	// part name, so these are part of the wire contract.
	SignupUserPart  = "user"
	SignupImagePart = "image"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes int64 = 4 << 20 // 4 MB
)

// TokenSource supplies the bearer credential for authenticated operations.
// It reports ErrAuthRequired when no credential is held.
type TokenSource interface {
	Token() (string, *errs.CustomError)
}

// Client is the typed REST client for the blog backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	logger  zerolog.Logger
}

// NewClient constructs a Client for the given backend origin (including the
// /api base path). The timeout bounds every request that carries no tighter
// context deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logx.Logger().With().Str("component", "blog_client").Logger(),
	}
}

// SetTokenSource attaches the credential source used by bearer-authenticated
// operations. Typically this is the session manager.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// bearerToken resolves the credential, failing before any network call when
// none is held.
func (c *Client) bearerToken() (string, *errs.CustomError) {
	if c.tokens == nil {
		return "", errs.NewError(errs.ErrAuthRequired)
	}
	return c.tokens.Token()
}

// do executes one request and validates the response envelope at the boundary.
// A nil error return guarantees env.Status equals the success sentinel.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, bearer string) (*resp.Envelope, *errs.CustomError) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", randx.RequestID())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Request did not reach the server")
		return nil, errs.Wrap(err, errs.ErrNetworkUnreachable)
	}
	defer httpResp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Request completed")

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrNetworkUnreachable)
	}

	var env resp.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == "" {
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, errs.NewError(errs.ErrBadStatus, httpResp.StatusCode)
		}
		return nil, errs.NewError(errs.ErrMalformedResponse)
	}

	if env.Status != resp.StatusSuccess {
		return nil, c.failureFromEnvelope(httpResp.StatusCode, env.Message)
	}

	return &env, nil
}

// failureFromEnvelope maps an explicit failure envelope onto the error
// taxonomy, keeping the backend's message for display when it supplied one.
func (c *Client) failureFromEnvelope(httpStatus int, message string) *errs.CustomError {
	switch httpStatus {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.WithMessage(errs.ErrSessionExpired, message)
	case http.StatusTooManyRequests:
		return errs.WithMessage(errs.ErrRateLimitExceeded, message)
	default:
		return errs.WithMessage(errs.ErrRequestFailed, message)
	}
}

// decodeData unmarshals the envelope payload into dst, rejecting an absent or
// malformed payload.
func decodeData(env *resp.Envelope, dst any) *errs.CustomError {
	if len(env.Data) == 0 {
		return errs.NewError(errs.ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return errs.Wrap(err, errs.ErrMalformedResponse)
	}
	return nil
}

// ListPosts fetches the full post collection.
func (c *Client) ListPosts(ctx context.Context) ([]Post, *errs.CustomError) {
	env, customErr := c.do(ctx, http.MethodGet, "/post/getAllPost", nil, "", "")
	if customErr != nil {
		return nil, customErr
	}

	var posts []Post
	if customErr := decodeData(env, &posts); customErr != nil {
		return nil, customErr
	}
	return posts, nil
}

// GetPost fetches the collection and returns the post with the given id.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, *errs.CustomError) {
	posts, customErr := c.ListPosts(ctx)
	if customErr != nil {
		return nil, customErr
	}

	for i := range posts {
		if posts[i].ID == id {
			return &posts[i], nil
		}
	}
	return nil, errs.NewError(errs.ErrPostNotFound)
}

// Login exchanges credentials for the canonical auth payload. Field presence
// is the session manager's job; this method only speaks the wire contract.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, *errs.CustomError) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	env, customErr := c.do(ctx, http.MethodPost, "/auth/login", bytes.NewReader(body), "application/json", "")
	if customErr != nil {
		// There is no session to expire on the login path.
		if customErr.Code == errs.ErrSessionExpired {
			return nil, errs.WithMessage(errs.ErrInvalidCredentials, customErr.Message)
		}
		return nil, customErr
	}

	return decodeAuthResult(env)
}

// Signup registers a new account. The body is always multipart: the profile
// fields travel as JSON in the part named SignupUserPart, and the avatar
// bytes, when present, in the part named SignupImagePart.
func (c *Client) Signup(ctx context.Context, input SignupInput) (*AuthResult, *errs.CustomError) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields, err := json.Marshal(input)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, SignupUserPart))
	header.Set("Content-Type", "application/json")
	fieldPart, err := writer.CreatePart(header)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}
	if _, err := fieldPart.Write(fields); err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	if len(input.Image) > 0 {
		name := input.ImageName
		if name == "" {
			name = "avatar"
		}
		imagePart, err := writer.CreateFormFile(SignupImagePart, name)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrUnknown)
		}
		if _, err := imagePart.Write(input.Image); err != nil {
			return nil, errs.Wrap(err, errs.ErrUnknown)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	env, customErr := c.do(ctx, http.MethodPost, "/auth/signup", &buf, writer.FormDataContentType(), "")
	if customErr != nil {
		return nil, customErr
	}

	return decodeAuthResult(env)
}

// decodeAuthResult enforces the canonical auth payload shape: data.userData
// and data.token must both be present. Variant shapes are rejected rather
// than silently supported.
func decodeAuthResult(env *resp.Envelope) (*AuthResult, *errs.CustomError) {
	var result AuthResult
	if customErr := decodeData(env, &result); customErr != nil {
		return nil, customErr
	}

	if result.Token == "" || result.User.ID == "" {
		return nil, errs.NewError(errs.ErrMalformedResponse)
	}
	return &result, nil
}

// CreatePost creates a post on the backend. Requires a bearer credential.
func (c *Client) CreatePost(ctx context.Context, input CreatePostInput) (*Post, *errs.CustomError) {
	token, customErr := c.bearerToken()
	if customErr != nil {
		return nil, customErr
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	env, customErr := c.do(ctx, http.MethodPost, "/post/create", bytes.NewReader(body), "application/json", token)
	if customErr != nil {
		return nil, customErr
	}

	var post Post
	if customErr := decodeData(env, &post); customErr != nil {
		return nil, customErr
	}
	return &post, nil
}

// DeletePost removes a post by id. Requires a bearer credential.
func (c *Client) DeletePost(ctx context.Context, postID string) *errs.CustomError {
	token, customErr := c.bearerToken()
	if customErr != nil {
		return customErr
	}

	_, customErr = c.do(ctx, http.MethodDelete, "/post/"+postID, nil, "", token)
	return customErr
}

// CreateComment appends a comment to a post. Requires a bearer credential.
func (c *Client) CreateComment(ctx context.Context, postID, text string) (*Comment, *errs.CustomError) {
	token, customErr := c.bearerToken()
	if customErr != nil {
		return nil, customErr
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrUnknown)
	}

	env, customErr := c.do(ctx, http.MethodPost, "/comment/create/"+postID, bytes.NewReader(body), "application/json", token)
	if customErr != nil {
		return nil, customErr
	}

	var comment Comment
	if customErr := decodeData(env, &comment); customErr != nil {
		return nil, customErr
	}
	return &comment, nil
}

// ListCategories fetches all available categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, *errs.CustomError) {
	env, customErr := c.do(ctx, http.MethodGet, "/category/categories", nil, "", "")
	if customErr != nil {
		return nil, customErr
	}

	var categories []Category
	if customErr := decodeData(env, &categories); customErr != nil {
		return nil, customErr
	}
	return categories, nil
}

// Summarize requests the AI-generated summary of a post. Requires a bearer credential.
func (c *Client) Summarize(ctx context.Context, postID string) (string, *errs.CustomError) {
	token, customErr := c.bearerToken()
	if customErr != nil {
		return "", customErr
	}

	env, customErr := c.do(ctx, http.MethodGet, "/"+postID+"/ai", nil, "", token)
	if customErr != nil {
		return "", customErr
	}

	var payload struct {
		Summary string `json:"summary"`
	}
	if customErr := decodeData(env, &payload); customErr != nil {
		return "", customErr
	}
	if payload.Summary == "" {
		return "", errs.NewError(errs.ErrMalformedResponse)
	}
	return payload.Summary, nil
}
