package models

import "time"

// Entity types mirror the remote API's JSON (Mongo-style "_id" keys).

type Author struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

type Post struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

type Comment struct {
	ID        string    `json:"_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
	IsAdmin    bool   `json:"isAdmin"`
}

// Request payloads.

type PostDraft struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

type CommentDraft struct {
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ProfileUpdate struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
}

type PasswordUpdate struct {
	NewPassword string `json:"newPassword"`
}
