package backendtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"impact-registration/internal/domain"
	"impact-registration/internal/security"
)

const maxUploadBytes = 10 << 20

type claimsKey struct{}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// record logs the call, then honours Hold and any canned response queued for the path
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		hold := s.hold
		var canned *Response
		if queue := s.canned[r.URL.Path]; len(queue) > 0 {
			canned = &queue[0]
			s.canned[r.URL.Path] = queue[1:]
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if canned != nil {
			if raw, ok := canned.Body.(string); ok {
				w.WriteHeader(canned.Status)
				_, _ = io.WriteString(w, raw)
				return
			}
			writeJSON(w, canned.Status, canned.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(r *http.Request) (*security.UserClaims, bool) {
	token := r.Header.Get("Authorization")
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	if token == "" {
		return nil, false
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.authenticate(r)
		if !ok {
			fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !claimsFrom(r).HasRole(security.RoleAdmin) {
			fail(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r)
	})
}

func claimsFrom(r *http.Request) *security.UserClaims {
	claims, _ := r.Context().Value(claimsKey{}).(*security.UserClaims)
	return claims
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || c.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required")
		return c, false
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	return c, true
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[c.Email]
	s.mu.Unlock()
	if exists {
		fail(w, http.StatusConflict, "User already exists")
		return
	}

	s.AddUser(c.Email, c.Password, false)
	s.respondToken(w, c.Email, "Account created")
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if _, ok := s.checkPassword(w, c); ok {
		s.respondToken(w, c.Email, "Signed in")
	}
}

func (s *Server) handleAdminSignIn(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	acct, ok := s.checkPassword(w, c)
	if !ok {
		return
	}
	if !acct.admin {
		fail(w, http.StatusForbidden, "Admin access required")
		return
	}
	s.respondToken(w, c.Email, "Admin signed in")
}

func (s *Server) checkPassword(w http.ResponseWriter, c credentials) (*account, bool) {
	s.mu.Lock()
	acct, ok := s.accounts[c.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(c.Password)) != nil {
		fail(w, http.StatusUnauthorized, "Invalid email or password")
		return nil, false
	}
	return acct, true
}

func (s *Server) respondToken(w http.ResponseWriter, email, message string) {
	s.mu.Lock()
	acct := s.accounts[email]
	s.mu.Unlock()
	token, err := s.issue(acct)
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": message, "token": token})
}

func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	_, ok := s.authenticate(r)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) handleRegistration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(w, http.StatusBadRequest, "Expected multipart form data")
		return
	}

	sub := Submission{Fields: make(map[string]string)}
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			sub.Fields[name] = values[0]
		}
	}

	file, header, err := r.FormFile("paymentScreenshot")
	if err != nil {
		fail(w, http.StatusBadRequest, "Payment screenshot is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, http.StatusBadRequest, "Failed to read payment screenshot")
		return
	}
	sub.ScreenshotName = header.Filename
	sub.ScreenshotType = header.Header.Get("Content-Type")
	sub.Screenshot = data

	s.mu.Lock()
	s.submissions = append(s.submissions, sub)
	s.mu.Unlock()

	regType := domain.RegistrationType(sub.Fields["registrationType"])
	if !regType.Valid() || sub.Fields["eventName"] == "" || sub.Fields["transactionUid"] == "" {
		fail(w, http.StatusBadRequest, "Missing required registration fields")
		return
	}

	key, err := s.shots.Save(header.Filename, bytes.NewReader(data))
	if err != nil {
		fail(w, http.StatusInternalServerError, "Failed to store payment screenshot")
		return
	}

	rec := domain.RegistrationRecord{
		ID:                   uuid.NewString(),
		RegistrationType:     regType,
		EventName:            sub.Fields["eventName"],
		TransactionUID:       sub.Fields["transactionUid"],
		PaymentScreenshotURL: s.srv.URL + "/uploads/" + key,
		CreatedAt:            time.Now().UTC(),
	}
	if regType == domain.RegistrationTypeSolo {
		rec.FullName = sub.Fields["fullName"]
	} else {
		rec.TeamName = sub.Fields["teamName"]
		rec.TeamLeader = sub.Fields["teamLeader"]
		if err := json.Unmarshal([]byte(sub.Fields["teamMembers"]), &rec.TeamMembers); err != nil {
			fail(w, http.StatusBadRequest, "teamMembers must be a JSON array")
			return
		}
	}

	s.mu.Lock()
	acct, ok := s.accounts[claimsFrom(r).Email]
	if ok {
		acct.user.Registrations = append(acct.user.Registrations, rec)
	}
	s.mu.Unlock()
	if !ok {
		fail(w, http.StatusUnauthorized, "User not found")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Registration successful"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	email := claimsFrom(r).Email
	for _, u := range s.users() {
		if u.Email != email {
			continue
		}
		regs := u.Registrations
		u.Registrations = nil
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u, "registrations": regs})
		return
	}
	fail(w, http.StatusNotFound, "User not found")
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.users())
}

func (s *Server) handleUpdateVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RegistrationID string `json:"registrationId"`
		Verified       *bool  `json:"verified"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RegistrationID == "" || req.Verified == nil {
		fail(w, http.StatusBadRequest, "registrationId and verified are required")
		return
	}

	s.mu.Lock()
	found := false
	for _, acct := range s.accounts {
		for i := range acct.user.Registrations {
			if acct.user.Registrations[i].ID == req.RegistrationID {
				acct.user.Registrations[i].Verified = *req.Verified
				found = true
			}
		}
	}
	s.mu.Unlock()

	if !found {
		fail(w, http.StatusNotFound, "Registration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Verification status updated"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	file, err := s.shots.Open(key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = io.Copy(w, file)
}
