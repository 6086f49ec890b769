// Package rbac resolves the capability checks that gate restricted
// navigation. The token deliberately carries no role information; the
// RBAC service is authoritative and every check is an RPC.
package rbac

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/traderdesk/traderdesk/internal/session"
)

// Capability checks backing the two cached flags.
const (
	adminAction = "*"
	adminObject = "*"

	teamLeadAction = "read"
	teamLeadObject = "team_lead_dashboard"
)

// PermissionChecker is the RPC surface the resolver needs.
// Implemented by api.Client.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, action, object, userID string) (bool, error)
}

// State holds the two cached capability flags. Both default to false
// while loading or on error (fail closed).
type State struct {
	IsAdmin    bool
	IsTeamLead bool
}

// Resolver caches the admin and team-lead flags for the active user and
// answers on-demand checks for anything else.
type Resolver struct {
	checker  PermissionChecker
	sessions *session.Manager

	mu    sync.RWMutex
	state State
}

// NewResolver creates a resolver bound to the session manager for the
// active user id.
func NewResolver(checker PermissionChecker, sessions *session.Manager) *Resolver {
	return &Resolver{checker: checker, sessions: sessions}
}

// Refresh recomputes both flags for the current session. Unauthenticated
// sessions resolve to all-false without issuing any RPC. The two checks
// run in parallel and fail independently: an error in one defaults that
// flag to false and leaves the other untouched.
func (r *Resolver) Refresh(ctx context.Context) State {
	sess := r.sessions.Session()
	if !sess.Authenticated {
		r.setState(State{})
		return State{}
	}

	var state State
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		state.IsAdmin = r.resolve(ctx, adminAction, adminObject, sess.UserID)
	}()
	go func() {
		defer wg.Done()
		state.IsTeamLead = r.resolve(ctx, teamLeadAction, teamLeadObject, sess.UserID)
	}()
	wg.Wait()

	r.setState(state)

	log.Debug().
		Str("userID", sess.UserID).
		Bool("isAdmin", state.IsAdmin).
		Bool("isTeamLead", state.IsTeamLead).
		Msg("permissions resolved")

	return state
}

// Check is the on-demand, uncached capability check. It never returns an
// error: unauthenticated sessions and RPC failures both resolve to false.
func (r *Resolver) Check(ctx context.Context, action, object string) bool {
	sess := r.sessions.Session()
	if !sess.Authenticated {
		return false
	}
	return r.resolve(ctx, action, object, sess.UserID)
}

// State returns a copy of the cached flags.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Resolver) setState(state State) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
}

func (r *Resolver) resolve(ctx context.Context, action, object, userID string) bool {
	allowed, err := r.checker.CheckPermission(ctx, action, object, userID)
	if err != nil {
		log.Error().
			Err(err).
			Str("action", action).
			Str("object", object).
			Str("userID", userID).
			Msg("permission check failed")
		return false
	}
	return allowed
}
