package flow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"blogclient/internal/api"
	"blogclient/internal/models"
	"blogclient/internal/session"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeBlogAPI serves the post endpoints from an in-memory slice and lets
// tests force failures per path.
type fakeBlogAPI struct {
	mu       sync.Mutex
	posts    []models.Post
	failWith map[string]int // path prefix -> status
	calls    map[string]int
}

func newFakeBlogAPI(posts ...models.Post) *fakeBlogAPI {
	return &fakeBlogAPI{
		posts:    posts,
		failWith: map[string]int{},
		calls:    map[string]int{},
	}
}

func (f *fakeBlogAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++
	for prefix, status := range f.failWith {
		if strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"message": "forced failure"})
			return
		}
	}
	switch {
	case r.URL.Path == "/posts/getPosts":
		json.NewEncoder(w).Encode(f.posts)
	case r.URL.Path == "/posts/getPopularPosts":
		json.NewEncoder(w).Encode(f.posts)
	case r.URL.Path == "/posts/addPost":
		var draft models.PostDraft
		json.NewDecoder(r.Body).Decode(&draft)
		post := models.Post{ID: "srv-1", Title: draft.Title, Content: draft.Content}
		f.posts = append(f.posts, post)
		json.NewEncoder(w).Encode(post)
	case strings.HasPrefix(r.URL.Path, "/posts/updatePost/"):
		id := strings.TrimPrefix(r.URL.Path, "/posts/updatePost/")
		var draft models.PostDraft
		json.NewDecoder(r.Body).Decode(&draft)
		updated := models.Post{ID: id, Title: draft.Title, Content: draft.Content}
		json.NewEncoder(w).Encode(updated)
	case strings.HasPrefix(r.URL.Path, "/posts/deletePost/"):
		w.Write([]byte("{}"))
	default:
		http.NotFound(w, r)
	}
}

func newTestPostList(t *testing.T, fake *fakeBlogAPI) *PostList {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)
	return NewPostList(api.New(ts.URL, staticToken("tok")))
}

func TestLoadReady(t *testing.T) {
	fake := newFakeBlogAPI(
		models.Post{ID: "p1", Title: "first"},
		models.Post{ID: "p2", Title: "second"},
	)
	list := newTestPostList(t, fake)

	list.Load(context.Background())

	state, err := list.State()
	if state != Ready || err != nil {
		t.Fatalf("state=%v err=%v", state, err)
	}
	posts := list.Posts()
	if len(posts) != 2 || posts[0].ID != "p1" || posts[1].ID != "p2" {
		t.Fatalf("posts = %+v", posts)
	}
	if len(list.Popular()) != 2 {
		t.Fatalf("popular = %+v", list.Popular())
	}
}

func TestLoadFailed(t *testing.T) {
	fake := newFakeBlogAPI()
	fake.failWith["/posts/getPosts"] = http.StatusInternalServerError
	list := newTestPostList(t, fake)

	list.Load(context.Background())

	state, err := list.State()
	if state != Failed || err == nil {
		t.Fatalf("state=%v err=%v", state, err)
	}
}

func TestAddAppendsServerEntityOnce(t *testing.T) {
	fake := newFakeBlogAPI()
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	err := list.Add(context.Background(), models.PostDraft{Title: "hello", Content: "world"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	var matches int
	for _, p := range list.Posts() {
		if p.ID == "srv-1" {
			matches++
		}
	}
	if matches != 1 {
		t.Fatalf("server entity appears %d times", matches)
	}
}

func TestAddValidationSkipsNetwork(t *testing.T) {
	fake := newFakeBlogAPI()
	list := newTestPostList(t, fake)

	err := list.Add(context.Background(), models.PostDraft{Title: "", Content: "body"})
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if fake.calls["/posts/addPost"] != 0 {
		t.Fatal("validation failure still hit the network")
	}
}

func TestUpdateReplacesByID(t *testing.T) {
	fake := newFakeBlogAPI(models.Post{ID: "p1", Title: "old", Content: "old body"})
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	err := list.Update(context.Background(), "p1", models.PostDraft{Title: "new", Content: "new body"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	post, ok := list.Get("p1")
	if !ok || post.Title != "new" {
		t.Fatalf("got %+v", post)
	}
}

func TestUpdateFailureLeavesListUntouched(t *testing.T) {
	fake := newFakeBlogAPI(models.Post{ID: "p1", Title: "old", Content: "old body"})
	fake.failWith["/posts/updatePost/"] = http.StatusForbidden
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	err := list.Update(context.Background(), "p1", models.PostDraft{Title: "new", Content: "x"})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("want 403 api error, got %v", err)
	}
	post, _ := list.Get("p1")
	if post.Title != "old" || post.Content != "old body" {
		t.Fatalf("failed update mutated local state: %+v", post)
	}
}

func TestDeleteRemovesByID(t *testing.T) {
	fake := newFakeBlogAPI(models.Post{ID: "p1"}, models.Post{ID: "p2"})
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	if err := list.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	for _, p := range list.Posts() {
		if p.ID == "p1" {
			t.Fatal("deleted post still present")
		}
	}
	if len(list.Posts()) != 1 {
		t.Fatalf("posts = %+v", list.Posts())
	}
}

func TestDeleteFailureLeavesListUntouched(t *testing.T) {
	fake := newFakeBlogAPI(models.Post{ID: "p1"}, models.Post{ID: "p2"})
	fake.failWith["/posts/deletePost/"] = http.StatusForbidden
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	if err := list.Delete(context.Background(), "p1"); err == nil {
		t.Fatal("expected error")
	}
	if len(list.Posts()) != 2 {
		t.Fatalf("failed delete mutated list: %+v", list.Posts())
	}
}

func TestFilter(t *testing.T) {
	fake := newFakeBlogAPI(
		models.Post{ID: "p1", Title: "Going to the Beach", Content: "sand"},
		models.Post{ID: "p2", Title: "Mountain trip", Content: "snow and BEACH volleyball"},
		models.Post{ID: "p3", Title: "Cooking", Content: "pasta"},
	)
	list := newTestPostList(t, fake)
	list.Load(context.Background())

	got := list.Filter("beach")
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("filter = %+v", got)
	}

	all := list.Filter("")
	if len(all) != 3 || all[0].ID != "p1" || all[2].ID != "p3" {
		t.Fatalf("empty query changed the list: %+v", all)
	}

	if got := list.Filter("zzz"); len(got) != 0 {
		t.Fatalf("expected no matches, got %+v", got)
	}
}

func TestSupersededLoadDiscarded(t *testing.T) {
	firstArrived := make(chan struct{})
	release := make(chan struct{})
	var (
		mu    sync.Mutex
		calls int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts/getPosts":
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				close(firstArrived)
				<-release
				json.NewEncoder(w).Encode([]models.Post{{ID: "stale", Title: "stale"}})
				return
			}
			json.NewEncoder(w).Encode([]models.Post{{ID: "fresh", Title: "fresh"}})
		case "/posts/getPopularPosts":
			json.NewEncoder(w).Encode([]models.Post{})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)

	list := NewPostList(api.New(ts.URL, staticToken("tok")))

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		list.Load(context.Background())
	}()
	<-firstArrived

	list.Load(context.Background())

	close(release)
	<-firstDone

	posts := list.Posts()
	if len(posts) != 1 || posts[0].ID != "fresh" {
		t.Fatalf("late response clobbered the list: %+v", posts)
	}
	if state, err := list.State(); state != Ready || err != nil {
		t.Fatalf("state=%v err=%v", state, err)
	}
}

func TestCanModify(t *testing.T) {
	post := models.Post{Author: models.Author{ID: "u1"}}
	if !CanModify(session.Session{SubjectID: "u1"}, post) {
		t.Fatal("owner denied")
	}
	if CanModify(session.Session{SubjectID: "u2"}, post) {
		t.Fatal("non-owner allowed")
	}
	if CanModify(session.Session{}, post) {
		t.Fatal("anonymous allowed")
	}
	if CanModify(session.Session{SubjectID: "u1"}, models.Post{}) {
		t.Fatal("authorless post allowed")
	}
}
