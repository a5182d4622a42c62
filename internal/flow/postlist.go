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

// PostList holds the posts page's local copy of the post collection.
// Mutations wait for the server's answer before touching local state, so a
// failed call leaves the list exactly as it was.
type PostList struct {
	api *api.Client

	mu      sync.Mutex
	state   State
	err     error
	posts   []models.Post
	popular []models.Post
	loadID  uuid.UUID
}

func NewPostList(client *api.Client) *PostList {
	return &PostList{api: client, state: Loading}
}

// Load fetches the collection. If another Load starts before this one
// finishes, the late response is dropped rather than clobbering the newer
// state; the same guard makes a response for an abandoned page a no-op.
func (l *PostList) Load(ctx context.Context) {
	l.mu.Lock()
	opID := uuid.New()
	l.loadID = opID
	l.state = Loading
	l.err = nil
	l.mu.Unlock()

	posts, err := l.api.ListPosts(ctx)
	popular, popErr := l.api.ListPopularPosts(ctx)

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
	l.posts = posts
	if popErr == nil {
		l.popular = popular
	}
	l.state = Ready
}

// Add creates a post and appends the server's copy to the list. Required
// fields are checked before any network call.
func (l *PostList) Add(ctx context.Context, draft models.PostDraft) error {
	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.Content) == "" {
		return ValidationError("Title and content are required")
	}
	post, err := l.api.AddPost(ctx, draft)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.posts = append(l.posts, *post)
	return nil
}

// Update edits a post in place. On failure the local copy keeps its
// pre-edit fields.
func (l *PostList) Update(ctx context.Context, id string, draft models.PostDraft) error {
	updated, err := l.api.UpdatePost(ctx, id, draft)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.posts {
		if l.posts[i].ID == id {
			l.posts[i] = *updated
			break
		}
	}
	return nil
}

// Delete removes a post. On failure the list is untouched.
func (l *PostList) Delete(ctx context.Context, id string) error {
	if err := l.api.DeletePost(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.posts[:0]
	for _, p := range l.posts {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	l.posts = kept
	return nil
}

// Filter returns the posts whose title or content contains q, compared
// case-insensitively. An empty query returns the whole list in order. No
// network call is involved.
func (l *PostList) Filter(q string) []models.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q == "" {
		return append([]models.Post(nil), l.posts...)
	}
	needle := strings.ToLower(q)
	var out []models.Post
	for _, p := range l.posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
		}
	}
	return out
}

func (l *PostList) Posts() []models.Post {
	return l.Filter("")
}

func (l *PostList) Popular() []models.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Post(nil), l.popular...)
}

func (l *PostList) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.err
}

// Get returns the local copy of a post by id.
func (l *PostList) Get(id string) (models.Post, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.posts {
		if p.ID == id {
			return p, true
		}
	}
	return models.Post{}, false
}

// CanModify reports whether the session's subject authored the post. An
// absent id on either side means no.
func CanModify(sess session.Session, post models.Post) bool {
	if sess.SubjectID == "" || post.Author.ID == "" {
		return false
	}
	return sess.SubjectID == post.Author.ID
}
