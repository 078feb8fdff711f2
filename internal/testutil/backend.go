package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"bagger/internal/auth"
	"bagger/internal/model"
)

type fakeUser struct {
	model.User
	hash []byte
}

type failure struct {
	status int
	body   string
}

type hold struct {
	entered chan struct{}
	release chan struct{}
}

// FakeBackend is an in-process REST backend for tests. It issues real
// HS256 tokens and keeps its data in memory. Safe for concurrent use.
type FakeBackend struct {
	Server *httptest.Server

	signer *auth.Signer

	mu               sync.Mutex
	nextID           int64
	users            map[string]*fakeUser
	platforms        []model.Platform
	topics           []model.Topic
	cheats           []model.Cheat
	userCheats       []model.UserCheat
	requests         map[string]int
	failures         map[string][]failure
	holds            map[string]*hold
	delay            time.Duration
	noContentUpdates bool
}

// NewFakeBackend starts a FakeBackend that is shut down when the test completes.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	signer, err := auth.NewSigner("fake-backend-signing-secret", "bagger-fake")
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}

	f := &FakeBackend{
		signer:   signer,
		users:    make(map[string]*fakeUser),
		requests: make(map[string]int),
		failures: make(map[string][]failure),
		holds:    make(map[string]*hold),
	}
	f.Server = httptest.NewServer(f.routes())
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the server.
func (f *FakeBackend) URL() string {
	return f.Server.URL
}

func (f *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(f.intercept)

	r.Post("/api/users/login", f.login)
	r.Post("/api/users/", f.createUser)

	r.Group(func(r chi.Router) {
		r.Use(f.authenticate)
		r.Get("/api/users/me", f.me)
		r.Get("/api/users/bootstrap", f.bootstrap)

		r.Post("/api/platforms/", f.createPlatform)
		r.Patch("/api/platforms/{id}", f.updatePlatform)
		r.Delete("/api/platforms/{id}", f.deletePlatform)

		r.Post("/api/topics/", f.createTopic)
		r.Patch("/api/topics/{id}", f.updateTopic)
		r.Delete("/api/topics/{id}", f.deleteTopic)

		r.Post("/api/cheats/", f.createCheat)
		r.Patch("/api/cheats/{id}", f.updateCheat)
		r.Delete("/api/cheats/{id}", f.deleteCheat)
	})
	return r
}

// AddUser registers an account directly.
func (f *FakeBackend) AddUser(name, email, password string) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &fakeUser{User: model.User{ID: f.nextID, Name: name, Email: email}, hash: hash}
	f.users[strings.ToLower(email)] = u
	return u.User
}

// Token issues a token for userID valid for an hour.
func (f *FakeBackend) Token(userID int64) string {
	return f.TokenAt(userID, time.Now(), time.Hour)
}

// TokenAt issues a token for userID issued at now and valid for ttl.
func (f *FakeBackend) TokenAt(userID int64, now time.Time, ttl time.Duration) string {
	token, err := f.signer.Generate(userID, now, ttl)
	if err != nil {
		panic(err)
	}
	return token
}

// Seed replaces the library contents. Zero ids are assigned; later ids
// continue after the largest seeded one.
func (f *FakeBackend) Seed(platforms []model.Platform, topics []model.Topic, cheats []model.Cheat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platforms = nil
	for _, p := range platforms {
		if p.ID == 0 {
			p.ID = f.newIDLocked()
		}
		f.nextID = max(f.nextID, p.ID)
		f.platforms = append(f.platforms, p)
	}
	f.topics = nil
	for _, t := range topics {
		if t.ID == 0 {
			t.ID = f.newIDLocked()
		}
		f.nextID = max(f.nextID, t.ID)
		f.topics = append(f.topics, t)
	}
	f.cheats = nil
	for _, c := range cheats {
		if c.ID == 0 {
			c.ID = f.newIDLocked()
		}
		f.nextID = max(f.nextID, c.ID)
		f.cheats = append(f.cheats, c)
	}
}

// AddFavorite marks cheatID as a favorite of userID.
func (f *FakeBackend) AddFavorite(userID, cheatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCheats = append(f.userCheats, model.UserCheat{
		ID: f.newIDLocked(), UserID: userID, CheatID: cheatID, IsFavorite: true,
	})
}

// Cheats returns the server-side cheats.
func (f *FakeBackend) Cheats() []model.Cheat {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cheats)
}

// Requests returns how many requests hit method and path.
func (f *FakeBackend) Requests(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

// TotalRequests returns the number of requests served.
func (f *FakeBackend) TotalRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		n += c
	}
	return n
}

// FailNext makes the next request to method and path answer status with body.
// Calls queue up.
func (f *FakeBackend) FailNext(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.failures[key] = append(f.failures[key], failure{status: status, body: body})
}

// Hold blocks the next request to method and path until release is called.
// entered is closed once the request arrives.
func (f *FakeBackend) Hold(method, path string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.holds[method+" "+path] = h
	f.mu.Unlock()
	var once sync.Once
	return h.entered, func() { once.Do(func() { close(h.release) }) }
}

// SetDelay delays every response by d.
func (f *FakeBackend) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// SetNoContentUpdates makes PATCH endpoints answer 204 without a body.
func (f *FakeBackend) SetNoContentUpdates(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noContentUpdates = on
}

func (f *FakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		f.mu.Lock()
		f.requests[key]++
		delay := f.delay
		h := f.holds[key]
		delete(f.holds, key)
		var fail *failure
		if queue := f.failures[key]; len(queue) > 0 {
			fail = &queue[0]
			f.failures[key] = queue[1:]
		}
		f.mu.Unlock()

		if h != nil {
			close(h.entered)
			select {
			case <-h.release:
			case <-r.Context().Done():
				return
			}
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			fmt.Fprint(w, fail.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userIDKey struct{}

func (f *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := f.signer.Validate(token)
		if err != nil || f.userByID(userID) == nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

func (f *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid body")
		return
	}
	f.mu.Lock()
	u := f.users[strings.ToLower(creds.Email)]
	f.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(creds.Password)) != nil {
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}
	user := u.User
	writeJSON(w, http.StatusOK, model.LoginResult{AccessToken: f.Token(u.ID), User: &user})
}

func (f *FakeBackend) createUser(w http.ResponseWriter, r *http.Request) {
	var in model.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid body")
		return
	}
	f.mu.Lock()
	_, exists := f.users[strings.ToLower(in.Email)]
	f.mu.Unlock()
	if exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := f.AddUser(in.Name, in.Email, in.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (f *FakeBackend) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.userByID(userIDFrom(r.Context())).User)
}

func (f *FakeBackend) bootstrap(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	f.mu.Lock()
	b := model.Bootstrap{
		Platforms:  nonNil(f.platforms),
		Topics:     nonNil(f.topics),
		Cheats:     nonNil(f.cheats),
		UserCheats: []model.UserCheat{},
	}
	for _, uc := range f.userCheats {
		if uc.UserID == userID {
			b.UserCheats = append(b.UserCheats, uc)
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, b)
}

func (f *FakeBackend) createPlatform(w http.ResponseWriter, r *http.Request) {
	var in model.PlatformInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Name is required")
		return
	}
	f.mu.Lock()
	p := model.Platform{ID: f.newIDLocked(), Name: in.Name, Slug: in.Slug, Type: in.Type}
	f.platforms = append(f.platforms, p)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (f *FakeBackend) updatePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch model.PlatformPatch
	if !decode(w, r, &patch) {
		return
	}
	f.mu.Lock()
	i := slices.IndexFunc(f.platforms, func(p model.Platform) bool { return p.ID == id })
	if i < 0 {
		f.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Platform not found")
		return
	}
	f.platforms[i] = patch.Apply(f.platforms[i])
	p, noContent := f.platforms[i], f.noContentUpdates
	f.mu.Unlock()
	writeUpdated(w, p, noContent)
}

func (f *FakeBackend) deletePlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.platforms, func(p model.Platform) bool { return p.ID == id })
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Platform not found")
		return
	}
	for _, c := range f.cheats {
		if slices.Contains(c.PlatformIDs, id) {
			writeDetail(w, http.StatusConflict, "Platform is used by cheats")
			return
		}
	}
	f.platforms = slices.Delete(f.platforms, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) createTopic(w http.ResponseWriter, r *http.Request) {
	var in model.TopicInput
	if !decode(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Name is required")
		return
	}
	f.mu.Lock()
	t := model.Topic{ID: f.newIDLocked(), Name: in.Name, Slug: in.Slug}
	f.topics = append(f.topics, t)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (f *FakeBackend) updateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch model.TopicPatch
	if !decode(w, r, &patch) {
		return
	}
	f.mu.Lock()
	i := slices.IndexFunc(f.topics, func(t model.Topic) bool { return t.ID == id })
	if i < 0 {
		f.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Topic not found")
		return
	}
	f.topics[i] = patch.Apply(f.topics[i])
	t, noContent := f.topics[i], f.noContentUpdates
	f.mu.Unlock()
	writeUpdated(w, t, noContent)
}

func (f *FakeBackend) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.topics, func(t model.Topic) bool { return t.ID == id })
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Topic not found")
		return
	}
	f.topics = slices.Delete(f.topics, i, i+1)
	for j := range f.cheats {
		f.cheats[j].TopicIDs = slices.DeleteFunc(f.cheats[j].TopicIDs, func(t int64) bool { return t == id })
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) createCheat(w http.ResponseWriter, r *http.Request) {
	var in model.CheatInput
	if !decode(w, r, &in) {
		return
	}
	if in.Title == "" || in.Code == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Title and code are required")
		return
	}
	f.mu.Lock()
	c := model.Cheat{
		ID:          f.newIDLocked(),
		Title:       in.Title,
		Code:        in.Code,
		Notes:       in.Notes,
		IsPublic:    in.IsPublic,
		PlatformIDs: nonNil(in.PlatformIDs),
		TopicIDs:    nonNil(in.TopicIDs),
	}
	f.cheats = append(f.cheats, c)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, c)
}

func (f *FakeBackend) updateCheat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch model.CheatPatch
	if !decode(w, r, &patch) {
		return
	}
	f.mu.Lock()
	i := slices.IndexFunc(f.cheats, func(c model.Cheat) bool { return c.ID == id })
	if i < 0 {
		f.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Cheat not found")
		return
	}
	f.cheats[i] = patch.Apply(f.cheats[i])
	c, noContent := f.cheats[i], f.noContentUpdates
	f.mu.Unlock()
	writeUpdated(w, c, noContent)
}

func (f *FakeBackend) deleteCheat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.cheats, func(c model.Cheat) bool { return c.ID == id })
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Cheat not found")
		return
	}
	f.cheats = slices.Delete(f.cheats, i, i+1)
	f.userCheats = slices.DeleteFunc(f.userCheats, func(uc model.UserCheat) bool { return uc.CheatID == id })
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeBackend) newIDLocked() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakeBackend) userByID(id int64) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid body")
		return false
	}
	return true
}

func writeUpdated(w http.ResponseWriter, v any, noContent bool) {
	if noContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}
