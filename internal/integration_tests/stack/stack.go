// Package stack assembles a complete in-memory ringside server behind an
// httptest listener for flow and acceptance tests.
package stack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	adminsvc "ringside/internal/admin/service"
	"ringside/internal/identity"
	jwttoken "ringside/internal/jwt_token"
	matchsvc "ringside/internal/matchmaking/service"
	"ringside/internal/matchmaking/store"
	"ringside/internal/platform/metrics"
	ratelimit "ringside/internal/ratelimit/middleware"
	rlmodels "ringside/internal/ratelimit/models"
	"ringside/internal/roster"
	"ringside/internal/settings"
	httptransport "ringside/internal/transport/http"
	audit "ringside/pkg/platform/audit"
	auditmemory "ringside/pkg/platform/audit/store/memory"
)

const signingKey = "stack-signing-key"

// Stack is a running server plus direct handles on its stores.
type Stack struct {
	Server     *httptest.Server
	Audit      *auditmemory.InMemoryStore
	Match      *store.InMemoryStore
	Roster     *roster.InMemoryStore
	Identities *identity.InMemoryStore

	jwt *jwttoken.JWTService
}

type options struct {
	users  []identity.User
	boxers []roster.Boxer
	limits map[rlmodels.EndpointClass]rlmodels.Limit
}

// Option configures New.
type Option func(*options)

// WithUsers preloads the identity directory.
func WithUsers(users ...identity.User) Option {
	return func(o *options) { o.users = append(o.users, users...) }
}

// WithBoxers preloads the roster.
func WithBoxers(boxers ...roster.Boxer) Option {
	return func(o *options) { o.boxers = append(o.boxers, boxers...) }
}

// WithRateLimit turns on the in-memory limiter with limit for class.
func WithRateLimit(class rlmodels.EndpointClass, limit rlmodels.Limit) Option {
	return func(o *options) {
		if o.limits == nil {
			o.limits = make(map[rlmodels.EndpointClass]rlmodels.Limit)
		}
		o.limits[class] = limit
	}
}

// New starts a server. Callers must Close it.
func New(opts ...Option) (*Stack, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()

	auditStore := auditmemory.NewInMemoryStore()
	writer := audit.NewWriter(auditStore, audit.WithLogger(logger))
	settingsStore := settings.NewInMemory()
	matchStore := store.NewInMemory()
	rosterStore := roster.NewInMemory(o.boxers...)
	identities := identity.NewInMemory(o.users...)

	matchmaking := matchsvc.New(matchStore, rosterStore, settings.NewGate(settingsStore, logger), writer,
		matchsvc.WithLogger(logger))
	admin, err := adminsvc.New(identities, settingsStore, writer, adminsvc.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build admin service: %w", err)
	}

	deps := httptransport.RouterDeps{
		Gatherer: registry,
		Metrics:  metrics.New(registry),
		Logger:   logger,
	}
	if len(o.limits) > 0 {
		limiterOpts := []ratelimit.Option{ratelimit.WithLogger(logger)}
		for class, limit := range o.limits {
			limiterOpts = append(limiterOpts, ratelimit.WithLimit(class, limit))
		}
		deps.RateLimit = ratelimit.New(nil, limiterOpts...)
	}

	jwtService := jwttoken.NewJWTService(signingKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
	deps.Verifier = jwttoken.NewIdentityVerifier(jwtService)
	router := httptransport.NewRouter(httptransport.NewHandler(matchmaking, admin, httptransport.WithLogger(logger)), deps)

	return &Stack{
		Server:     httptest.NewServer(router),
		Audit:      auditStore,
		Match:      matchStore,
		Roster:     rosterStore,
		Identities: identities,
		jwt:        jwtService,
	}, nil
}

func (s *Stack) Close() {
	s.Server.Close()
}

// Token mints a bearer token for user.
func (s *Stack) Token(user identity.User) (string, error) {
	return s.jwt.GenerateAccessToken(*user.Identity(), time.Hour)
}

// Response is a decoded reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out any) error {
	return json.Unmarshal(r.Body, out)
}

// Request describes one call against the stack.
type Request struct {
	Method string
	Path   string
	Bearer string
	Body   any
	Header map[string]string
}

// Do sends req and reads the whole reply.
func (s *Stack) Do(req Request) (*Response, error) {
	var reader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequest(req.Method, s.Server.URL+req.Path, reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	res, err := s.Server.Client().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: body}, nil
}
