package blog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	maxBodySize   = 64 << 10
	hotListSize   = 10
	healthTimeout = 2 * time.Second
	anonymous     = "anonymous"
)

const (
	codeBadRequest = 400
	codeNotFound   = 404
	codeConflict   = 409
)

// API holds the demo handlers and their in-memory state.
type API struct {
	gate           *goGate.Gate
	users          *Users
	articles       *Articles
	stats          *Stats
	log            zerolog.Logger
	trustForwarded bool
	bcryptCost     int
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the logger used for request logs and handler errors.
func WithLogger(l zerolog.Logger) Option {
	return func(a *API) { a.log = l }
}

// WithTrustForwarded controls whether client addresses come from forwarded headers.
func WithTrustForwarded(trust bool) Option {
	return func(a *API) { a.trustForwarded = trust }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(a *API) { a.bcryptCost = cost }
}

// WithArticles replaces the seeded article table.
func WithArticles(articles *Articles) Option {
	return func(a *API) { a.articles = articles }
}

// New creates the API in front of gate.
func New(gate *goGate.Gate, opts ...Option) *API {
	a := &API{
		gate:           gate,
		stats:          NewStats(),
		log:            zerolog.Nop(),
		trustForwarded: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.users = NewUsers(a.bcryptCost)
	if a.articles == nil {
		a.articles = NewArticles(
			Article{Title: "Hello, world", Content: "The first post on this blog.", Author: "admin"},
			Article{Title: "Rate limiting with Redis", Content: "Sorted sets make a fine sliding window.", Author: "admin"},
		)
	}
	return a
}

// Router returns a chi.Router with every blog route mounted behind the gate.
//
// The chain per request is: request id, panic recovery, access log, client
// address, then (on login and register) the local limiter, the gate itself,
// any distributed limiter the route declares, and the handler.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(AccessLog(a.log))
	r.Use(middleware.ClientIP(a.trustForwarded))

	r.Get("/health", a.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(a.gate, goGate.LimitAuthLocal))
		r.Use(middleware.Authorize(a.gate))
		r.Use(middleware.RateLimit(a.gate, goGate.LimitAuth))

		r.Post("/user/register", a.Register)
		r.Post("/user/login", a.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authorize(a.gate))

		r.Post("/user/logout", a.Logout)
		r.Post("/user/refresh", a.Refresh)
		r.Patch("/user/updatePwd", a.UpdatePassword)
		r.Get("/user/userInfo", a.UserInfo)

		r.Get("/article/list", a.ListArticles)
		r.Get("/article/detail", a.ArticleDetail)
		r.With(middleware.RateLimit(a.gate, goGate.LimitArticleSearch)).Get("/article/search", a.SearchArticles)
		r.Post("/article/add", a.AddArticle)

		r.Post("/statistics/view", a.RecordView)
		r.Get("/statistics/hot", a.HotArticles)
	})

	return r
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, codeBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func writeData(w http.ResponseWriter, data any) {
	goGate.WriteJSON(w, http.StatusOK, goGate.Envelope{Code: goGate.CodeSuccess, Message: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, status, code int, msg string) {
	goGate.WriteJSON(w, status, goGate.Envelope{Code: code, Message: msg})
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, ErrUserExists):
		writeMessage(w, http.StatusConflict, codeConflict, "username already taken")
	case errors.Is(err, ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, goGate.CodeUnauthorized, "invalid username or password")
	case errors.Is(err, ErrArticleNotFound), errors.Is(err, ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, codeNotFound, "not found")
	default:
		status, _ := goGate.ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			a.log.Error().Err(err).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Msg("request failed")
		}
		goGate.WriteError(w, err)
	}
}

// viewer returns the username of an authenticated caller, or "anonymous".
func viewer(ctx context.Context) string {
	if id, ok := goGate.IdentityFromContext(ctx); ok {
		if id.Username != "" {
			return id.Username
		}
		return id.UserID
	}
	return anonymous
}

// Health reports whether the session store answers.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	rtt, err := a.gate.Ping(ctx)
	if err != nil {
		goGate.WriteJSON(w, http.StatusServiceUnavailable, goGate.Envelope{
			Code:    goGate.CodeStoreConnection,
			Message: "session store unavailable",
		})
		return
	}
	writeData(w, map[string]any{"status": "ok", "storeLatencyMs": rtt.Seconds() * 1000})
}
