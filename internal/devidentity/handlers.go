package devidentity

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"enclave/internal/domain"
)

const msgTooManyAttempts = "too many attempts"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Code: code, Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidFormat.String(), "malformed request body")
		return false
	}
	return true
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActivationCode string `json:"activationCode"`
	}
	if !decode(w, r, &in) {
		return
	}
	code := strings.TrimSpace(in.ActivationCode)

	s.mu.Lock()
	if !s.codes[code] {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, domain.KindInvalidCode.String(), "activation code is invalid or has already been used")
		return
	}
	delete(s.codes, code)
	a := s.newAccount()
	s.mu.Unlock()

	tokens, err := s.issueTokens(a.id)
	if err != nil {
		s.log.Error("issue tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not issue tokens")
		return
	}
	s.log.Info("account bootstrapped", "user_id", a.id.String())
	writeJSON(w, http.StatusOK, tokens)
}

func (s *Server) handleUsernameAvailability(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["username"])
	caller, _ := s.bearerUser(r)

	s.mu.Lock()
	owner, taken := s.usernames[strings.ToLower(name)]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"available": !taken || owner == caller})
}

func (s *Server) handleEmailAvailability(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	caller, _ := s.bearerUser(r)

	s.mu.Lock()
	owner, taken := s.emails[normalizeEmail(in.Email)]
	s.mu.Unlock()

	if taken && owner != caller {
		writeError(w, http.StatusConflict, domain.KindAlreadyUsed.String(), "this email is already registered")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if !decode(w, r, &fields) {
		return
	}
	id := userFrom(r.Context())

	var hash []byte
	if pw, ok := fields["password"]; ok {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.KindWeakPassword.String(), "password cannot be used")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[id]

	for k, v := range fields {
		switch k {
		case "username", "password", "phone":
		case "cityId":
			if !s.knownCity(v) {
				writeError(w, http.StatusBadRequest, domain.KindInvalidFormat.String(), "unknown city")
				return
			}
		default:
			writeError(w, http.StatusBadRequest, domain.KindInvalidFormat.String(), "field "+k+" cannot be updated")
			return
		}
	}
	if v, ok := fields["username"]; ok {
		key := strings.ToLower(strings.TrimSpace(v))
		if owner, taken := s.usernames[key]; taken && owner != id {
			writeError(w, http.StatusConflict, domain.KindAlreadyUsed.String(), "this username is already taken")
			return
		}
	}
	if v, ok := fields["phone"]; ok {
		if owner, taken := s.phones[strings.TrimSpace(v)]; taken && owner != id {
			writeError(w, http.StatusConflict, domain.KindAlreadyUsed.String(), "this phone number is already registered")
			return
		}
	}

	if v, ok := fields["username"]; ok {
		delete(s.usernames, strings.ToLower(a.username))
		a.username = strings.TrimSpace(v)
		s.usernames[strings.ToLower(a.username)] = id
	}
	if v, ok := fields["phone"]; ok {
		delete(s.phones, a.phone)
		a.phone = strings.TrimSpace(v)
		s.phones[a.phone] = id
	}
	if hash != nil {
		a.passwordHash = hash
	}
	if v, ok := fields["cityId"]; ok {
		a.cityID = v
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}
	addr := normalizeEmail(in.Email)
	if !emailPattern.MatchString(addr) {
		writeError(w, http.StatusBadRequest, domain.KindInvalidFormat.String(), "invalid email address")
		return
	}
	id := userFrom(r.Context())
	now := s.opts.Now()

	s.mu.Lock()
	if owner, taken := s.emails[addr]; taken && owner != id {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, domain.KindAlreadyUsed.String(), "this email is already registered")
		return
	}
	recent := s.recentSends(addr, now)
	if len(recent) >= s.opts.SendLimit {
		s.sends[addr] = recent
		s.mu.Unlock()
		writeError(w, http.StatusTooManyRequests, domain.KindRateLimited.String(), msgTooManyAttempts)
		return
	}
	code := s.opts.CodeGenerator()
	s.sends[addr] = append(recent, now)
	s.pending[pendingKey{id, addr}] = &pendingCode{code: code}
	s.lastCode[addr] = code
	s.mu.Unlock()

	s.log.Info("verification code issued", "email", addr, "code", code)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) recentSends(addr string, now time.Time) []time.Time {
	var recent []time.Time
	for _, t := range s.sends[addr] {
		if now.Sub(t) < s.opts.SendWindow {
			recent = append(recent, t)
		}
	}
	return recent
}

func (s *Server) handleConfirmCode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !decode(w, r, &in) {
		return
	}
	addr := normalizeEmail(in.Email)
	id := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, taken := s.emails[addr]; taken && owner != id {
		writeError(w, http.StatusConflict, domain.KindAlreadyUsed.String(), "this email is already registered")
		return
	}
	key := pendingKey{id, addr}
	p, ok := s.pending[key]
	if !ok {
		writeError(w, http.StatusBadRequest, domain.KindInvalidCode.String(), "no code was sent to this address")
		return
	}
	if p.attempts >= s.opts.MaxVerifyAttempts {
		writeError(w, http.StatusTooManyRequests, domain.KindRateLimited.String(), msgTooManyAttempts)
		return
	}
	if strings.TrimSpace(in.Code) != p.code {
		p.attempts++
		writeError(w, http.StatusBadRequest, domain.KindInvalidCode.String(), "the code is invalid")
		return
	}

	delete(s.pending, key)
	a := s.accounts[id]
	if a.email != "" {
		delete(s.emails, a.email)
	}
	a.email = addr
	s.emails[addr] = id
	writeJSON(w, http.StatusOK, map[string]string{"email": addr})
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Cities)
}

func (s *Server) knownCity(id string) bool {
	for _, c := range s.opts.Cities {
		if c.ID == id {
			return true
		}
	}
	return false
}
