package flow

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"blogclient/internal/api"
	"blogclient/internal/models"
	"blogclient/internal/session"
)

// CommentList holds the comments shown under one post. Comment ordering and
// author resolution are server business, so a successful add re-fetches the
// list instead of appending locally.
type CommentList struct {
	api    *api.Client
	postID string

	mu       sync.Mutex
	state    State
	err      error
	comments []models.Comment
	loadID   uuid.UUID
}

func NewCommentList(client *api.Client, postID string) *CommentList {
	return &CommentList{api: client, postID: postID, state: Loading}
}

func (l *CommentList) Load(ctx context.Context) {
	l.mu.Lock()
	opID := uuid.New()
	l.loadID = opID
	l.state = Loading
	l.err = nil
	l.mu.Unlock()

	comments, err := l.api.ListComments(ctx, l.postID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadID != opID {
		return
	}
	if err != nil {
		l.state = Failed
		l.err = err
		return
	}
	l.comments = comments
	l.state = Ready
}

// Add posts a comment attributed to the current session and re-fetches.
func (l *CommentList) Add(ctx context.Context, sess session.Session, content string) error {
	if strings.TrimSpace(content) == "" {
		return ValidationError("Comment cannot be empty")
	}
	if sess.Anonymous() {
		return ValidationError("Log in or comment as a guest")
	}
	if err := l.api.AddComment(ctx, l.postID, models.CommentDraft{Content: content}); err != nil {
		return err
	}
	l.Load(ctx)
	return nil
}

// AddGuest posts an unauthenticated comment under a free-text name and
// re-fetches. An empty name falls back to "Anonymous".
func (l *CommentList) AddGuest(ctx context.Context, author, content string) error {
	if strings.TrimSpace(content) == "" {
		return ValidationError("Comment cannot be empty")
	}
	if strings.TrimSpace(author) == "" {
		author = "Anonymous"
	}
	draft := models.CommentDraft{Content: content, Author: author}
	if err := l.api.AddGuestComment(ctx, l.postID, draft); err != nil {
		return err
	}
	l.Load(ctx)
	return nil
}

// Delete removes a comment by id. On failure the list is untouched.
func (l *CommentList) Delete(ctx context.Context, id string) error {
	if err := l.api.DeleteComment(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.comments[:0]
	for _, c := range l.comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	l.comments = kept
	return nil
}

func (l *CommentList) Comments() []models.Comment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Comment(nil), l.comments...)
}

func (l *CommentList) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.err
}
