package goGate

import (
	"net/http"
	"testing"
)

func TestDefaultRoutePolicyClassify(t *testing.T) {
	p := DefaultRoutePolicy()

	tests := []struct {
		method string
		path   string
		want   RouteClass
	}{
		{http.MethodOptions, "/article/add", ClassPublic},
		{http.MethodPost, "/user/login", ClassPublic},
		{http.MethodPost, "/user/register", ClassPublic},
		{http.MethodPost, "/statistics/view", ClassPublic},
		{http.MethodGet, "/statistics/hot", ClassPublic},
		{http.MethodGet, "/article/list", ClassReadFallback},
		{http.MethodGet, "/article", ClassReadFallback},
		{http.MethodGet, "/comment/list", ClassReadFallback},
		{http.MethodGet, "/album/1", ClassReadFallback},
		{http.MethodPost, "/article/add", ClassRequiresAuth},
		{http.MethodDelete, "/article/1", ClassRequiresAuth},
		{http.MethodGet, "/articles", ClassRequiresAuth},
		{http.MethodGet, "/user/userInfo", ClassRequiresAuth},
		{http.MethodPost, "/user/logout", ClassRequiresAuth},
		{http.MethodGet, "/user/loginHistory", ClassRequiresAuth},
		{"get", "/article/detail", ClassReadFallback},
	}

	for _, tc := range tests {
		if got := p.Classify(tc.method, tc.path); got != tc.want {
			t.Fatalf("Classify(%s %s) = %s, want %s", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestRoutePolicyFirstMatchWins(t *testing.T) {
	p := RoutePolicy{
		Version: "test",
		Rules: []RouteRule{
			{Prefix: "/admin", Class: ClassRequiresAuth},
			{Prefix: "/", Class: ClassPublic},
		},
	}

	if got := p.Classify(http.MethodGet, "/admin/users"); got != ClassRequiresAuth {
		t.Fatalf("expected requires_auth, got %s", got)
	}
	if got := p.Classify(http.MethodGet, "/anything"); got != ClassPublic {
		t.Fatalf("expected public, got %s", got)
	}
}

func TestRoutePolicyExact(t *testing.T) {
	p := RoutePolicy{
		Version: "test",
		Rules:   []RouteRule{{Prefix: "/ping", Exact: true, Class: ClassPublic}},
	}

	if got := p.Classify(http.MethodGet, "/ping"); got != ClassPublic {
		t.Fatalf("expected public, got %s", got)
	}
	if got := p.Classify(http.MethodGet, "/ping/x"); got != ClassRequiresAuth {
		t.Fatalf("expected requires_auth, got %s", got)
	}
}

func TestRoutePolicyValidate(t *testing.T) {
	if err := DefaultRoutePolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	bad := []RoutePolicy{
		{Version: "", Rules: nil},
		{Version: "v", Rules: []RouteRule{{Prefix: "article", Class: ClassPublic}}},
		{Version: "v", Rules: []RouteRule{{Prefix: "/a", Class: "sometimes"}}},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Fatalf("policy %d: expected validation error", i)
		}
	}
}

func TestRoutePolicyCloneIsDeep(t *testing.T) {
	p := DefaultRoutePolicy()
	c := p.clone()
	c.Rules[0].Methods[0] = http.MethodPost

	if p.Rules[0].Methods[0] != http.MethodOptions {
		t.Fatal("clone shares method slices with the original")
	}
}
