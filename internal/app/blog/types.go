/*
Package blog contains the core data structures of the blog domain and the typed
REST client used to talk to the backend.

This file defines the wire-level representation of posts, comments, categories,
and user profiles. The client's copies of these values are a cache of backend
state, never authoritative.
*/
package blog

import "time"

// Post status tags used by the backend.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusFeatured  = "featured"
)

// Author is the reduced author reference embedded in posts and comments.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is a tag a post can be filed under.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment is a single comment on a post. The backend serializes the author
// reference under the authorDTO key.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"authorDTO"`
}

// Post is a blog post together with its ordered categories and comments.
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Author     Author     `json:"author"`
	Categories []Category `json:"categories"`
	Comments   []Comment  `json:"comments"`
}

// User is the full profile of an account holder.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Bio       string `json:"bio,omitempty"`
	Image     string `json:"image,omitempty"`
	Role      string `json:"role,omitempty"`
	Posts     []Post `json:"posts,omitempty"`
}

// DisplayName returns the user's name parts joined, falling back to the handle.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}

// CreatePostInput is the request body of the create-post action.
type CreatePostInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Status      string   `json:"status"`
	CategoryIDs []string `json:"categoryIds"`
}

// SignupInput carries the signup profile fields. ConfirmPassword is a
// client-only field and is never sent to the backend. Image holds the raw
// avatar bytes when the user picked one.
type SignupInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Bio             string `json:"bio"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	Image           []byte `json:"-"`
	ImageName       string `json:"-"`
}

// AuthResult is the canonical successful payload of the login and signup endpoints.
type AuthResult struct {
	User  User   `json:"userData"`
	Token string `json:"token"`
}
