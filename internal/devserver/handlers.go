/*
Package devserver is an in-process implementation of the blog backend contract.

This file contains the HTTP handlers for authentication, posts, comments,
categories, and the AI summary endpoint. Responses use the blog envelope
convention: status "Success" with a data payload, or an error envelope with a
user-facing message.
*/
package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"miniblog/internal/app/blog"
	"miniblog/internal/app/feed"
	"miniblog/internal/pkg/auth/jwt"
	"miniblog/internal/pkg/errs"
	"miniblog/internal/pkg/logx"
	"miniblog/internal/pkg/randx"
	"miniblog/internal/pkg/req"
	"miniblog/internal/pkg/resp"
)

// authPayload is the canonical data payload of the login and signup endpoints.
type authPayload struct {
	User  blog.User `json:"userData"`
	Token string    `json:"token"`
}

// issueToken signs a bearer token for the given profile.
func (d *Deps) issueToken(profile blog.User) (string, error) {
	payload := &jwt.Payload{
		UserID:   profile.ID,
		Username: profile.Username,
	}
	return jwt.GenerateToken(payload, d.Config.JWTSecret, jwt.SessionExpiration)
}

// handleLogin verifies credentials and issues a bearer token.
func handleLogin(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Email == "" || input.Password == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingCredentials))
			return
		}

		stored, err := d.Store.GetUserByEmail(input.Email)
		if err != nil {
			logx.Warn("login: account lookup failed", "email", input.Email, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "email", input.Email)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredentials))
			return
		}

		token, err := d.issueToken(stored.Profile)
		if err != nil {
			logx.Error(err, "login: token generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, "Login successful", authPayload{
			User:  stored.Profile,
			Token: token,
		})
	}
}

// handleSignup creates an account from the multipart signup body. The profile
// fields arrive as JSON in the part named blog.SignupUserPart; avatar bytes,
// when sent, in the part named blog.SignupImagePart. Demultiplexing is strictly
// by part name.
func handleSignup(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		values := r.MultipartForm.Value[blog.SignupUserPart]
		if len(values) != 1 {
			resp.RespondError(w, r, errs.NewError(errs.ErrFormParseFailed))
			return
		}

		var input blog.SignupInput
		if err := json.Unmarshal([]byte(values[0]), &input); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}

		if input.Email == "" || input.Password == "" || input.Username == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingRequiredFields))
			return
		}

		imageRef := ""
		if files := r.MultipartForm.File[blog.SignupImagePart]; len(files) > 0 {
			// The avatar is acknowledged by reference only; the dev backend
			// does not serve uploaded bytes back.
			imageRef = "avatars/" + files[0].Filename
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		profile := blog.User{
			ID:        randx.NewID(),
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Username:  input.Username,
			Email:     input.Email,
			Bio:       input.Bio,
			Image:     imageRef,
		}

		if err := d.Store.CreateUser(StoredUser{Profile: profile, PasswordHash: string(hashed)}); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				logx.Warn("signup conflict: account already exists", "email", input.Email)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}
			logx.Error(err, "signup: failed to create account")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		token, err := d.issueToken(profile)
		if err != nil {
			logx.Error(err, "signup: token generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, "Account created", authPayload{
			User:  profile,
			Token: token,
		})
	}
}

// handleListPosts returns the full post collection.
func handleListPosts(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := d.Store.ListPosts()
		if err != nil {
			logx.Error(err, "list posts failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		resp.RespondSuccess(w, r, "", posts)
	}
}

// handleCreatePost creates a post for the authenticated user and broadcasts it.
func handleCreatePost(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthRequired))
			return
		}

		var input blog.CreatePostInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" || input.Content == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.Status == "" {
			input.Status = blog.StatusPublished
		}

		for _, categoryID := range input.CategoryIDs {
			ok, err := d.Store.CategoryExists(categoryID)
			if err != nil {
				logx.Error(err, "create post: category lookup failed")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			if !ok {
				resp.RespondError(w, r, errs.NewError(errs.ErrCategoryInvalid))
				return
			}
		}

		post, err := d.Store.CreatePost(identity.UserID, input)
		if err != nil {
			logx.Error(err, "create post failed", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		d.Hub.Broadcast(feed.TypeNewPost, post)
		resp.RespondSuccess(w, r, "Post created", post)
	}
}

// handleDeletePost removes a post owned by the authenticated user and
// broadcasts the removal.
func handleDeletePost(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthRequired))
			return
		}

		postID := chi.URLParam(r, "postID")

		authorID, err := d.Store.PostAuthor(postID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
			return
		}
		if authorID != identity.UserID {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotPostAuthor))
			return
		}

		deleted, err := d.Store.DeletePost(postID)
		if err != nil || !deleted {
			logx.Error(err, "delete post failed", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		d.Hub.Broadcast(feed.TypeDeletePost, blog.Post{ID: postID})
		resp.RespondSuccess(w, r, "Post deleted", nil)
	}
}

// handleCreateComment appends a comment and broadcasts the updated post.
func handleCreateComment(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthRequired))
			return
		}

		postID := chi.URLParam(r, "postID")

		var input struct {
			Text string `json:"text"`
		}
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if strings.TrimSpace(input.Text) == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if _, err := d.Store.PostAuthor(postID); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
			return
		}

		comment, err := d.Store.CreateComment(postID, identity.UserID, input.Text)
		if err != nil {
			logx.Error(err, "create comment failed", "post_id", postID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if post, err := d.Store.GetPost(postID); err == nil {
			d.Hub.Broadcast(feed.TypeUpdatePost, post)
		}

		resp.RespondSuccess(w, r, "Comment created", comment)
	}
}

// handleListCategories returns all categories.
func handleListCategories(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := d.Store.ListCategories()
		if err != nil {
			logx.Error(err, "list categories failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		resp.RespondSuccess(w, r, "", categories)
	}
}

// handleSummarize returns the extractive summary of a post. It requires a
// bearer credential, matching the production backend's AI endpoint.
func handleSummarize(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAuthRequired))
			return
		}

		postID := chi.URLParam(r, "postID")

		post, err := d.Store.GetPost(postID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrPostNotFound))
			return
		}

		resp.RespondSuccess(w, r, "", map[string]string{
			"summary": summarize(post.Title, post.Content),
		})
	}
}
