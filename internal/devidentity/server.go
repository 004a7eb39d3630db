package devidentity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"enclave/internal/domain"
	"enclave/internal/logging"
)

// Options configures a Server. Zero values take defaults.
type Options struct {
	ActivationCodes []string
	Cities          []domain.City
	// SigningKey signs session tokens. A random key is used when empty.
	SigningKey []byte
	TokenTTL   time.Duration

	// SendLimit codes may be sent to one address per SendWindow.
	SendLimit  int
	SendWindow time.Duration
	// MaxVerifyAttempts wrong codes are accepted before the code is locked.
	MaxVerifyAttempts int

	// CodeGenerator returns verification codes. Random six-digit codes by default.
	CodeGenerator func() string
	Now           func() time.Time
	Logger        *logging.Logger
}

// DefaultCities is the directory served when Options.Cities is empty.
func DefaultCities() []domain.City {
	return []domain.City{
		{ID: "syd", Name: "Sydney"},
		{ID: "mel", Name: "Melbourne"},
		{ID: "bne", Name: "Brisbane"},
		{ID: "per", Name: "Perth"},
		{ID: "adl", Name: "Adelaide"},
	}
}

type account struct {
	id           domain.UserID
	username     string
	passwordHash []byte
	phone        string
	email        string
	cityID       string
	createdAt    time.Time
}

// pendingKey scopes an outstanding code to the account that asked for it.
type pendingKey struct {
	userID domain.UserID
	addr   string
}

type pendingCode struct {
	code     string
	attempts int
}

// Server is the in-memory identity service.
type Server struct {
	opts Options
	log  *logging.Logger

	mu        sync.Mutex
	codes     map[string]bool // unused activation codes
	accounts  map[domain.UserID]*account
	usernames map[string]domain.UserID
	phones    map[string]domain.UserID
	emails    map[string]domain.UserID // verified addresses
	pending   map[pendingKey]*pendingCode
	sends     map[string][]time.Time
	lastCode  map[string]string
}

// New returns a Server seeded from opts.
func New(opts Options) (*Server, error) {
	if len(opts.Cities) == 0 {
		opts.Cities = DefaultCities()
	}
	if len(opts.SigningKey) == 0 {
		opts.SigningKey = make([]byte, 32)
		if _, err := rand.Read(opts.SigningKey); err != nil {
			return nil, fmt.Errorf("devidentity: signing key: %w", err)
		}
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.SendLimit <= 0 {
		opts.SendLimit = 3
	}
	if opts.SendWindow <= 0 {
		opts.SendWindow = 10 * time.Minute
	}
	if opts.MaxVerifyAttempts <= 0 {
		opts.MaxVerifyAttempts = 5
	}
	if opts.CodeGenerator == nil {
		opts.CodeGenerator = randomCode
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}

	s := &Server{
		opts:      opts,
		log:       opts.Logger.WithComponent("devidentity"),
		codes:     make(map[string]bool),
		accounts:  make(map[domain.UserID]*account),
		usernames: make(map[string]domain.UserID),
		phones:    make(map[string]domain.UserID),
		emails:    make(map[string]domain.UserID),
		pending:   make(map[pendingKey]*pendingCode),
		sends:     make(map[string][]time.Time),
		lastCode:  make(map[string]string),
	}
	for _, c := range opts.ActivationCodes {
		s.codes[c] = true
	}
	return s, nil
}

// AddActivationCode seeds another single-use activation code.
func (s *Server) AddActivationCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = true
}

// LastCode returns the most recent verification code sent to email.
func (s *Server) LastCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lastCode[normalizeEmail(email)]
	return c, ok
}

// Account is a read-only view of a registered account.
type Account struct {
	ID       domain.UserID
	Username string
	Phone    string
	Email    string
	CityID   string
}

// Lookup returns the account with id.
func (s *Server) Lookup(id domain.UserID) (Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, false
	}
	return Account{ID: a.id, Username: a.username, Phone: a.phone, Email: a.email, CityID: a.cityID}, true
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/accounts/bootstrap", s.handleBootstrap).Methods(http.MethodPost)
	v1.HandleFunc("/usernames/{username}/availability", s.handleUsernameAvailability).Methods(http.MethodGet)
	v1.HandleFunc("/emails/availability", s.handleEmailAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/cities", s.handleCities).Methods(http.MethodGet)

	authed := v1.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/accounts/me", s.handleUpdateAccount).Methods(http.MethodPatch)
	authed.HandleFunc("/emails/verification", s.handleSendCode).Methods(http.MethodPost)
	authed.HandleFunc("/emails/verification/confirm", s.handleConfirmCode).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	return r
}

func (s *Server) newAccount() *account {
	a := &account{id: domain.UserID(uuid.NewString()), createdAt: s.opts.Now()}
	s.accounts[a.id] = a
	return a
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}
