/*
Package devserver is an in-process implementation of the blog backend contract.

It exists so the client core can be exercised end to end: the integration tests
and the `miniblog devserver` command run it without the real backend. This file
defines the SQLite-backed store for users, posts, comments, and categories.
*/
package devserver

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"miniblog/internal/app/blog"
	"miniblog/internal/pkg/randx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	bio           TEXT NOT NULL DEFAULT '',
	image         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS categories (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS posts (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	status     TEXT NOT NULL,
	author_id  TEXT NOT NULL REFERENCES users(id),
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS post_categories (
	post_id     TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	category_id TEXT NOT NULL REFERENCES categories(id),
	PRIMARY KEY (post_id, category_id)
);
CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id  TEXT NOT NULL REFERENCES users(id),
	text       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// defaultCategories seed the store on first open.
var defaultCategories = []string{"Technology", "Lifestyle", "Travel", "Food", "Opinion"}

// entityIDLength sizes the base62 ids of posts, comments, and categories.
// Users type these into the CLI, so they stay shorter than a UUID.
const entityIDLength = 12

// StoredUser is the server-side account record, including the password hash
// that must never leave the store layer.
type StoredUser struct {
	Profile      blog.User
	PasswordHash string
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path, applies the schema, and
// seeds the default categories. Use ":memory:" for a throwaway database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("devserver: open database: %w", err)
	}

	// One connection: ":memory:" databases exist per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("devserver: apply schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedCategories(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedCategories() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("devserver: count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range defaultCategories {
		id, err := randx.Base62String(entityIDLength)
		if err != nil {
			return fmt.Errorf("devserver: generate category id: %w", err)
		}
		if _, err := s.db.Exec(`INSERT INTO categories (id, name) VALUES (?, ?)`, id, name); err != nil {
			return fmt.Errorf("devserver: seed category %q: %w", name, err)
		}
	}
	return nil
}

// CreateUser inserts a new account. It reports sql unique violations through
// the returned error; callers translate them to the taken-account failure.
func (s *Store) CreateUser(u StoredUser) error {
	_, err := s.db.Exec(
		`INSERT INTO users (id, first_name, last_name, username, email, bio, image, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Profile.ID, u.Profile.FirstName, u.Profile.LastName, u.Profile.Username,
		u.Profile.Email, u.Profile.Bio, u.Profile.Image, u.PasswordHash, time.Now().UTC(),
	)
	return err
}

// GetUserByEmail fetches an account for credential verification.
func (s *Store) GetUserByEmail(email string) (*StoredUser, error) {
	row := s.db.QueryRow(
		`SELECT id, first_name, last_name, username, email, bio, image, password_hash
		 FROM users WHERE email = ?`, email)

	var u StoredUser
	err := row.Scan(&u.Profile.ID, &u.Profile.FirstName, &u.Profile.LastName,
		&u.Profile.Username, &u.Profile.Email, &u.Profile.Bio, &u.Profile.Image, &u.PasswordHash)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreatePost inserts a post and its category links, returning the full post.
func (s *Store) CreatePost(authorID string, input blog.CreatePostInput) (*blog.Post, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := randx.Base62String(entityIDLength)
	if err != nil {
		return nil, fmt.Errorf("devserver: generate post id: %w", err)
	}
	now := time.Now().UTC()

	if _, err := tx.Exec(
		`INSERT INTO posts (id, title, content, status, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.Title, input.Content, input.Status, authorID, now, now,
	); err != nil {
		return nil, err
	}

	for _, categoryID := range input.CategoryIDs {
		if _, err := tx.Exec(
			`INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`,
			id, categoryID,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.GetPost(id)
}

// GetPost assembles one post with author, categories, and comments.
func (s *Store) GetPost(id string) (*blog.Post, error) {
	row := s.db.QueryRow(
		`SELECT p.id, p.title, p.content, p.status, p.created_at, p.updated_at,
		        u.id, u.first_name, u.last_name, u.username
		 FROM posts p JOIN users u ON u.id = p.author_id
		 WHERE p.id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		return nil, err
	}

	if err := s.attachRelations(post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns the full collection, newest first.
func (s *Store) ListPosts() ([]blog.Post, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.title, p.content, p.status, p.created_at, p.updated_at,
		        u.id, u.first_name, u.last_name, u.username
		 FROM posts p JOIN users u ON u.id = p.author_id
		 ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		if err := s.attachRelations(&posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*blog.Post, error) {
	var post blog.Post
	var first, last, username string

	err := row.Scan(&post.ID, &post.Title, &post.Content, &post.Status,
		&post.CreatedAt, &post.UpdatedAt,
		&post.Author.ID, &first, &last, &username)
	if err != nil {
		return nil, err
	}

	post.Author.Name = authorName(first, last, username)
	return &post, nil
}

func authorName(first, last, username string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return username
	}
}

// attachRelations loads the ordered categories and comments of a post.
func (s *Store) attachRelations(post *blog.Post) error {
	catRows, err := s.db.Query(
		`SELECT c.id, c.name FROM categories c
		 JOIN post_categories pc ON pc.category_id = c.id
		 WHERE pc.post_id = ? ORDER BY c.name`, post.ID)
	if err != nil {
		return err
	}
	defer catRows.Close()

	post.Categories = []blog.Category{}
	for catRows.Next() {
		var c blog.Category
		if err := catRows.Scan(&c.ID, &c.Name); err != nil {
			return err
		}
		post.Categories = append(post.Categories, c)
	}
	if err := catRows.Err(); err != nil {
		return err
	}

	commentRows, err := s.db.Query(
		`SELECT c.id, c.text, c.created_at, u.id, u.first_name, u.last_name, u.username
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ? ORDER BY c.created_at, c.id`, post.ID)
	if err != nil {
		return err
	}
	defer commentRows.Close()

	post.Comments = []blog.Comment{}
	for commentRows.Next() {
		var c blog.Comment
		var first, last, username string
		if err := commentRows.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.Author.ID, &first, &last, &username); err != nil {
			return err
		}
		c.Author.Name = authorName(first, last, username)
		post.Comments = append(post.Comments, c)
	}
	return commentRows.Err()
}

// DeletePost removes a post. The boolean reports whether a row was deleted.
func (s *Store) DeletePost(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PostAuthor returns the author id of a post, or sql.ErrNoRows.
func (s *Store) PostAuthor(id string) (string, error) {
	var authorID string
	err := s.db.QueryRow(`SELECT author_id FROM posts WHERE id = ?`, id).Scan(&authorID)
	return authorID, err
}

// CreateComment appends a comment to a post and returns it.
func (s *Store) CreateComment(postID, authorID, text string) (*blog.Comment, error) {
	id, err := randx.Base62String(entityIDLength)
	if err != nil {
		return nil, fmt.Errorf("devserver: generate comment id: %w", err)
	}
	now := time.Now().UTC()

	if _, err := s.db.Exec(
		`INSERT INTO comments (id, post_id, author_id, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, postID, authorID, text, now,
	); err != nil {
		return nil, err
	}

	row := s.db.QueryRow(
		`SELECT c.id, c.text, c.created_at, u.id, u.first_name, u.last_name, u.username
		 FROM comments c JOIN users u ON u.id = c.author_id
		 WHERE c.id = ?`, id)

	var c blog.Comment
	var first, last, username string
	if err := row.Scan(&c.ID, &c.Text, &c.CreatedAt, &c.Author.ID, &first, &last, &username); err != nil {
		return nil, err
	}
	c.Author.Name = authorName(first, last, username)
	return &c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories() ([]blog.Category, error) {
	rows, err := s.db.Query(`SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []blog.Category{}
	for rows.Next() {
		var c blog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryExists reports whether a category id is known.
func (s *Store) CategoryExists(id string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
