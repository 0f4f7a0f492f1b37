// Package backendtest runs an in-process stand-in for the festival
// registration backend. It records every request it receives so tests can
// assert on what the client sent, and it can be told to fail or stall.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"impact-registration/internal/config"
	"impact-registration/internal/domain"
	"impact-registration/internal/security"
)

const tokenSecret = "backendtest-signing-secret-0123456789"

// Call is one request as the server saw it
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// Submission is the decoded multipart body of one registration POST
type Submission struct {
	Fields         map[string]string
	ScreenshotName string
	ScreenshotType string
	Screenshot     []byte
}

// Response is a canned answer returned instead of the normal handler
type Response struct {
	Status int
	Body   any
}

type account struct {
	user         domain.User
	passwordHash []byte
	admin        bool
	seq          int
}

type Server struct {
	srv        *httptest.Server
	endpoints  config.EndpointsConfig
	tokens     security.TokenManager
	shots      *screenshotStore
	bcryptCost int

	mu          sync.Mutex
	accounts    map[string]*account // by email
	calls       []Call
	submissions []Submission
	canned      map[string][]Response // by path
	hold        chan struct{}
}

// New starts a server on a random local port; it is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	shots, err := newScreenshotStore(filepath.Join(t.TempDir(), "screenshots"))
	if err != nil {
		t.Fatalf("backendtest: %v", err)
	}

	s := &Server{
		endpoints:  config.Default().Backend.Endpoints,
		tokens:     security.NewTokenManager(tokenSecret, time.Hour),
		shots:      shots,
		bcryptCost: bcrypt.MinCost,
		accounts:   make(map[string]*account),
		canned:     make(map[string][]Response),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	ep := s.endpoints
	r.HandleFunc(ep.SignUp, s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc(ep.SignIn, s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc(ep.AdminSignIn, s.handleAdminSignIn).Methods(http.MethodPost)
	r.HandleFunc(ep.CheckToken, s.handleCheckToken).Methods(http.MethodGet)
	r.HandleFunc(ep.Registration, s.requireUser(s.handleRegistration)).Methods(http.MethodPost)
	r.HandleFunc(ep.Profile, s.requireUser(s.handleProfile)).Methods(http.MethodGet)
	r.HandleFunc(ep.AdminDashboard, s.requireAdmin(s.handleDashboard)).Methods(http.MethodGet)
	r.HandleFunc(ep.AdminUpdateVerification, s.requireAdmin(s.handleUpdateVerification)).Methods(http.MethodPost)
	r.HandleFunc("/uploads/{key}", s.handleDownload).Methods(http.MethodGet)
	return r
}

// URL is the base URL to configure the client with
func (s *Server) URL() string {
	return s.srv.URL
}

// Endpoints are the paths the server answers on
func (s *Server) Endpoints() config.EndpointsConfig {
	return s.endpoints
}

// Config returns a client configuration pointed at this server
func (s *Server) Config() *config.Config {
	cfg := config.Default()
	cfg.Backend.BaseURL = s.srv.URL
	cfg.Backend.Endpoints = s.endpoints
	cfg.Session.Driver = "memory"
	return cfg
}

// Client returns an HTTP client for this server
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

func (s *Server) Close() {
	s.Release()
	s.srv.Close()
}

// AddUser creates an account and returns its user record
func (s *Server) AddUser(email, password string, admin bool) domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := &account{
		user:         domain.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()},
		passwordHash: hash,
		admin:        admin,
		seq:          len(s.accounts),
	}
	s.accounts[email] = acct
	return acct.user
}

// AddRegistration attaches rec to the user with email. A missing ID is generated.
func (s *Server) AddRegistration(email string, rec domain.RegistrationRecord) domain.RegistrationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		panic("backendtest: unknown user " + email)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	acct.user.Registrations = append(acct.user.Registrations, rec)
	return rec
}

// Token issues a valid bearer token for an existing account
func (s *Server) Token(email string) string {
	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		panic("backendtest: unknown user " + email)
	}
	token, err := s.issue(acct)
	if err != nil {
		panic(err)
	}
	return token
}

// Respond queues canned answers for path, used in order before normal handling resumes
func (s *Server) Respond(path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned[path] = append(s.canned[path], responses...)
}

// Hold makes every request block until Release is called or the request is abandoned
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == nil {
		s.hold = make(chan struct{})
	}
}

func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// Calls returns every request received so far
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests received on path
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Submissions returns the registration bodies received so far
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

// Registration looks a stored registration up by id
func (s *Server) Registration(id string) (domain.RegistrationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		for _, rec := range acct.user.Registrations {
			if rec.ID == id {
				return rec, true
			}
		}
	}
	return domain.RegistrationRecord{}, false
}

// users returns a snapshot of every account's user record in signup order
func (s *Server) users() []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	accts := make([]*account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		accts = append(accts, acct)
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i].seq < accts[j].seq })

	out := make([]domain.User, 0, len(accts))
	for _, acct := range accts {
		u := acct.user
		u.Registrations = append([]domain.RegistrationRecord(nil), u.Registrations...)
		out = append(out, u)
	}
	return out
}

func (s *Server) issue(acct *account) (string, error) {
	roles := []string{security.RoleParticipant}
	if acct.admin {
		roles = append(roles, security.RoleAdmin)
	}
	return s.tokens.GenerateAccessToken(acct.user.ID, acct.user.Email, roles)
}
