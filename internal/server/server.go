package server

import (
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"blogclient/internal/api"
	"blogclient/internal/flow"
	"blogclient/internal/models"
	"blogclient/internal/session"
)

type Server struct {
	Store *session.Store
	API   *api.Client

	auth  *flow.Auth
	posts *flow.PostList

	tmpl map[string]*template.Template
}

func New(store *session.Store, client *api.Client, templateDir string) (*Server, error) {
	funcs := template.FuncMap{
		"humantime": func(t time.Time) string {
			return humanize.Time(t)
		},
	}

	templates := map[string]*template.Template{}
	layout := filepath.Join(templateDir, "layout.html")
	pages, err := filepath.Glob(filepath.Join(templateDir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		if filepath.Base(page) == "layout.html" {
			continue
		}
		t, err := template.New("").Funcs(funcs).ParseFiles(layout, page)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		templates[name] = t
	}

	return &Server{
		Store: store,
		API:   client,
		auth:  flow.NewAuth(client, store),
		posts: flow.NewPostList(client),
		tmpl:  templates,
	}, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/posts", s.handlePosts)
	mux.HandleFunc("/posts/new", s.requireAuth(s.handleNewPost))
	mux.HandleFunc("/posts/edit", s.requireAuth(s.handleEditPost))
	mux.HandleFunc("/posts/delete", s.requireAuth(s.handleDeletePost))
	mux.HandleFunc("/post", s.handlePost)
	mux.HandleFunc("/post/comment", s.handleComment)
	mux.HandleFunc("/post/comment/delete", s.requireAuth(s.handleDeleteComment))
	mux.HandleFunc("/profile", s.requireAuth(s.handleProfile))
	mux.HandleFunc("/profile/password", s.requireAuth(s.handlePassword))
	mux.HandleFunc("/admin", s.requireAdmin(s.handleAdmin))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.routes().ServeHTTP(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	t, ok := s.tmpl[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Session"]; !ok {
		data["Session"] = s.Store.Current()
	}
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := map[string]any{}
	posts, err := s.API.ListPosts(r.Context())
	if err != nil {
		data["Error"] = err.Error()
	}
	data["Posts"] = posts
	s.render(w, "index", data)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	s.posts.Load(r.Context())
	query := r.URL.Query().Get("q")
	data := map[string]any{
		"Query":   query,
		"Posts":   s.posts.Filter(query),
		"Popular": s.posts.Popular(),
	}
	if state, err := s.posts.State(); state == flow.Failed {
		data["Error"] = err.Error()
	}
	s.render(w, "posts", data)
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	draft := models.PostDraft{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: r.FormValue("imageUrl"),
	}
	if err := s.posts.Add(r.Context(), draft); err != nil {
		s.render(w, "posts", map[string]any{
			"Posts":    s.posts.Posts(),
			"Popular":  s.posts.Popular(),
			"AddError": err.Error(),
			"AddDraft": draft,
			"ShowAdd":  true,
		})
		return
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		id := r.URL.Query().Get("id")
		post, ok := s.posts.Get(id)
		if !ok {
			s.posts.Load(r.Context())
			post, ok = s.posts.Get(id)
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.render(w, "edit_post", map[string]any{"Post": post})
	case http.MethodPost:
		id := r.FormValue("id")
		draft := models.PostDraft{
			Title:    r.FormValue("title"),
			Content:  r.FormValue("content"),
			ImageURL: r.FormValue("imageUrl"),
		}
		if err := s.posts.Update(r.Context(), id, draft); err != nil {
			post, _ := s.posts.Get(id)
			s.render(w, "edit_post", map[string]any{
				"Post":  post,
				"Draft": draft,
				"Error": err.Error(),
			})
			return
		}
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.FormValue("id")
	if r.FormValue("confirm") != "1" {
		post, ok := s.posts.Get(id)
		if !ok {
			http.Redirect(w, r, "/posts", http.StatusSeeOther)
			return
		}
		s.render(w, "confirm_delete", map[string]any{"Post": post, "Back": "/posts"})
		return
	}
	if err := s.posts.Delete(r.Context(), id); err != nil {
		s.render(w, "posts", map[string]any{
			"Posts":   s.posts.Posts(),
			"Popular": s.posts.Popular(),
			"Error":   err.Error(),
		})
		return
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	post, err := s.API.GetPost(r.Context(), id)
	if err != nil {
		s.render(w, "post", map[string]any{"Error": err.Error()})
		return
	}
	comments := flow.NewCommentList(s.API, id)
	comments.Load(r.Context())
	data := map[string]any{
		"Post":     post,
		"Comments": comments.Comments(),
		"CanEdit":  flow.CanModify(s.Store.Current(), *post),
	}
	if state, cerr := comments.State(); state == flow.Failed {
		data["CommentError"] = cerr.Error()
	}
	s.render(w, "post", data)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	postID := r.FormValue("post_id")
	content := r.FormValue("content")
	comments := flow.NewCommentList(s.API, postID)

	sess := s.Store.Current()
	var err error
	if sess.Anonymous() {
		err = comments.AddGuest(r.Context(), r.FormValue("author"), content)
	} else {
		err = comments.Add(r.Context(), sess, content)
	}
	if err != nil {
		post, perr := s.API.GetPost(r.Context(), postID)
		if perr != nil {
			s.render(w, "post", map[string]any{"Error": perr.Error()})
			return
		}
		comments.Load(r.Context())
		s.render(w, "post", map[string]any{
			"Post":         post,
			"Comments":     comments.Comments(),
			"CanEdit":      flow.CanModify(sess, *post),
			"CommentError": err.Error(),
			"CommentDraft": content,
		})
		return
	}
	http.Redirect(w, r, "/post?id="+postID, http.StatusSeeOther)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	postID := r.FormValue("post_id")
	if r.FormValue("confirm") != "1" {
		s.render(w, "confirm_delete", map[string]any{
			"CommentID": r.FormValue("id"),
			"PostID":    postID,
			"Back":      "/post?id=" + postID,
		})
		return
	}
	comments := flow.NewCommentList(s.API, postID)
	comments.Load(r.Context())
	if err := comments.Delete(r.Context(), r.FormValue("id")); err != nil {
		post, perr := s.API.GetPost(r.Context(), postID)
		if perr != nil {
			s.render(w, "post", map[string]any{"Error": perr.Error()})
			return
		}
		s.render(w, "post", map[string]any{
			"Post":         post,
			"Comments":     comments.Comments(),
			"CanEdit":      flow.CanModify(sess, *post),
			"CommentError": err.Error(),
		})
		return
	}
	http.Redirect(w, r, "/post?id="+postID, http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "login", nil)
	case http.MethodPost:
		landing, err := s.auth.Login(r.Context(), r.FormValue("email"), r.FormValue("password"))
		if err != nil {
			s.render(w, "login", map[string]any{
				"Error": err.Error(),
				"Email": r.FormValue("email"),
			})
			return
		}
		http.Redirect(w, r, landing, http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "register", nil)
	case http.MethodPost:
		err := s.auth.Register(r.Context(),
			r.FormValue("email"),
			r.FormValue("username"),
			r.FormValue("password"),
			r.FormValue("confirm_password"))
		if err != nil {
			s.render(w, "register", map[string]any{
				"Error":    err.Error(),
				"Email":    r.FormValue("email"),
				"Username": r.FormValue("username"),
			})
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Store.Logout()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		user, err := s.API.Details(r.Context())
		if err != nil {
			s.render(w, "profile", map[string]any{"Error": err.Error()})
			return
		}
		s.render(w, "profile", map[string]any{"User": user})
	case http.MethodPost:
		update := models.ProfileUpdate{
			Username:   r.FormValue("username"),
			Email:      r.FormValue("email"),
			ProfilePic: r.FormValue("profilePic"),
		}
		if err := s.API.UpdateProfile(r.Context(), update); err != nil {
			s.render(w, "profile", map[string]any{
				"Error": err.Error(),
				"User": &models.User{
					Username:   update.Username,
					Email:      update.Email,
					ProfilePic: update.ProfilePic,
				},
			})
			return
		}
		user, _ := s.API.Details(r.Context())
		s.render(w, "profile", map[string]any{
			"User":    user,
			"Success": "Profile updated successfully!",
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request, sess session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, _ := s.API.Details(r.Context())
	newPassword := r.FormValue("new_password")
	if newPassword != r.FormValue("confirm_password") {
		s.render(w, "profile", map[string]any{"User": user, "Error": "Passwords do not match."})
		return
	}
	if err := s.API.UpdatePassword(r.Context(), models.PasswordUpdate{NewPassword: newPassword}); err != nil {
		s.render(w, "profile", map[string]any{"User": user, "Error": err.Error()})
		return
	}
	s.render(w, "profile", map[string]any{"User": user, "Success": "Password reset successfully!"})
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, sess session.Session) {
	s.posts.Load(r.Context())
	data := map[string]any{"Posts": s.posts.Posts()}
	if state, err := s.posts.State(); state == flow.Failed {
		data["Error"] = err.Error()
	}
	s.render(w, "admin", data)
}

// middleware

func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.Store.Current()
		if sess.Anonymous() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) requireAdmin(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.Store.Current()
		if sess.Anonymous() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.IsAdmin {
			http.Redirect(w, r, "/posts", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}
