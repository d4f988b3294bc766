// Package e2e runs the Gherkin acceptance scenarios under features/ against an
// in-process ringside server.
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"ringside/internal/identity"
	"ringside/internal/integration_tests/stack"
	rlmodels "ringside/internal/ratelimit/models"
	"ringside/internal/roster"
	id "ringside/pkg/domain"
	audit "ringside/pkg/platform/audit"
)

// TestContext is the per-scenario world shared by every step package. The
// server starts lazily on the first request so Given steps can shape it.
type TestContext struct {
	stack *stack.Stack

	clubs  map[string]id.ClubID
	boxers map[string]roster.Boxer
	users  map[string]identity.User
	limits map[rlmodels.EndpointClass]rlmodels.Limit
	saved  map[string]string

	caller   string
	clientIP string
	last     *stack.Response
}

func NewTestContext() *TestContext {
	return &TestContext{
		clubs:  make(map[string]id.ClubID),
		boxers: make(map[string]roster.Boxer),
		users:  make(map[string]identity.User),
		limits: make(map[rlmodels.EndpointClass]rlmodels.Limit),
		saved:  make(map[string]string),
	}
}

// Close stops the server if one was started.
func (tc *TestContext) Close() {
	if tc.stack != nil {
		tc.stack.Close()
	}
}

func (tc *TestContext) started() (*stack.Stack, error) {
	if tc.stack != nil {
		return tc.stack, nil
	}
	users := make([]identity.User, 0, len(tc.users))
	for _, u := range tc.users {
		users = append(users, u)
	}
	boxers := make([]roster.Boxer, 0, len(tc.boxers))
	for _, b := range tc.boxers {
		boxers = append(boxers, b)
	}
	opts := []stack.Option{stack.WithUsers(users...), stack.WithBoxers(boxers...)}
	for class, limit := range tc.limits {
		opts = append(opts, stack.WithRateLimit(class, limit))
	}
	s, err := stack.New(opts...)
	if err != nil {
		return nil, err
	}
	tc.stack = s
	return s, nil
}

// Club returns the id for a named club, allocating one on first use.
func (tc *TestContext) Club(name string) id.ClubID {
	club, ok := tc.clubs[name]
	if !ok {
		club = id.ClubID(uuid.New())
		tc.clubs[name] = club
	}
	return club
}

func (tc *TestContext) AddBoxer(name, club string) error {
	if tc.stack != nil {
		return fmt.Errorf("boxer %q added after the server started", name)
	}
	tc.boxers[name] = roster.Boxer{ID: id.BoxerID(uuid.New()), ClubID: tc.Club(club), Name: name, Active: true}
	return nil
}

func (tc *TestContext) Boxer(name string) (roster.Boxer, error) {
	b, ok := tc.boxers[name]
	if !ok {
		return roster.Boxer{}, fmt.Errorf("unknown boxer %q", name)
	}
	return b, nil
}

// AddUser registers a caller. An empty club makes an unaffiliated user.
func (tc *TestContext) AddUser(name, club string, admin bool) error {
	if tc.stack != nil {
		return fmt.Errorf("user %q added after the server started", name)
	}
	u := identity.User{UID: id.UserID(name), Claims: id.Claims{IsPlatformAdmin: admin}}
	if club != "" {
		c := tc.Club(club)
		u.ClubID = &c
	}
	tc.users[name] = u
	return nil
}

func (tc *TestContext) SetLimit(class rlmodels.EndpointClass, limit rlmodels.Limit) error {
	if tc.stack != nil {
		return fmt.Errorf("rate limit set after the server started")
	}
	tc.limits[class] = limit
	return nil
}

// ActAs makes name the caller of subsequent requests. An empty name is anonymous.
func (tc *TestContext) ActAs(name string) error {
	if _, ok := tc.users[name]; name != "" && !ok {
		return fmt.Errorf("unknown user %q", name)
	}
	tc.caller = name
	return nil
}

func (tc *TestContext) FromIP(ip string) {
	tc.clientIP = ip
}

func (tc *TestContext) Save(key, value string) {
	tc.saved[key] = value
}

func (tc *TestContext) Saved(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved under %q", key)
	}
	return v, nil
}

func (tc *TestContext) do(method, path string, body any) error {
	s, err := tc.started()
	if err != nil {
		return err
	}
	req := stack.Request{Method: method, Path: path, Body: body}
	if tc.caller != "" {
		token, err := s.Token(tc.users[tc.caller])
		if err != nil {
			return err
		}
		req.Bearer = token
	}
	if tc.clientIP != "" {
		req.Header = map[string]string{"X-Forwarded-For": tc.clientIP}
	}
	res, err := s.Do(req)
	if err != nil {
		return err
	}
	tc.last = res
	return nil
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PUT(path string, body any) error {
	return tc.do(http.MethodPut, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.last == nil {
		return 0
	}
	return tc.last.Status
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.last == nil {
		return ""
	}
	return tc.last.Header.Get(name)
}

// GetResponseField reads a top-level field of the last JSON body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.last == nil {
		return nil, fmt.Errorf("no response yet")
	}
	var body map[string]any
	if err := json.Unmarshal(tc.last.Body, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w (body %s)", err, strings.TrimSpace(string(tc.last.Body)))
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response %s", field, strings.TrimSpace(string(tc.last.Body)))
	}
	return v, nil
}

// AuditCount counts stored audit entries with action.
func (tc *TestContext) AuditCount(action string) (int, error) {
	s, err := tc.started()
	if err != nil {
		return 0, err
	}
	return s.Audit.Count(audit.Action(action)), nil
}

// BoutCount counts stored bouts.
func (tc *TestContext) BoutCount() (int, error) {
	s, err := tc.started()
	if err != nil {
		return 0, err
	}
	return s.Match.CountBouts(), nil
}
