package flows

import "context"

// Deps groups flow dependency sets. The root gate builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Authorize AuthorizeDeps
	Session   SessionDeps
}

// Service is the centralized flow runner built once by the root gate.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authorize.Verify != nil && s.deps.Session.Store != nil
}

func (s Service) Authorize(ctx context.Context, class RouteClass, token string) AuthorizeResult {
	return RunAuthorize(ctx, class, token, s.deps.Authorize)
}

func (s Service) Issue(ctx context.Context, identity map[string]any, rememberMe bool) SessionResult {
	return RunIssue(ctx, identity, rememberMe, s.deps.Session)
}

func (s Service) Refresh(ctx context.Context, oldToken string) SessionResult {
	return RunRefresh(ctx, oldToken, s.deps.Session)
}

func (s Service) Logout(ctx context.Context, token string) SessionResult {
	return RunLogout(ctx, token, s.deps.Session)
}
