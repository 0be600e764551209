package goGate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MrEthical07/goGate/internal/flows"
)

// RouteClass defines a public type used by goGate APIs.
//
// RouteClass decides how a matched route treats the request token.
type RouteClass string

const (
	// ClassPublic admits every request anonymously, whatever the header holds.
	ClassPublic RouteClass = "public"
	// ClassReadFallback authenticates a valid token and degrades every token failure to anonymous.
	ClassReadFallback RouteClass = "read_fallback"
	// ClassRequiresAuth denies any request without a live, valid token.
	ClassRequiresAuth RouteClass = "requires_auth"
)

// RouteRule matches requests by method and path.
//
// Empty Methods matches any method. Prefix matches at a path-segment boundary,
// so "/article" matches "/article" and "/article/list" but not "/articles".
// Exact requires the whole path to equal Prefix.
type RouteRule struct {
	Methods []string   `yaml:"methods"`
	Prefix  string     `yaml:"prefix"`
	Exact   bool       `yaml:"exact"`
	Class   RouteClass `yaml:"class"`
}

// RoutePolicy is the versioned, ordered route table. The first matching rule
// wins; unmatched requests are ClassRequiresAuth.
type RoutePolicy struct {
	Version string      `yaml:"version"`
	Rules   []RouteRule `yaml:"rules"`
}

// DefaultRoutePolicyVersion identifies the built-in route table.
const DefaultRoutePolicyVersion = "2024-01"

// DefaultRoutePolicy returns the blog route table.
func DefaultRoutePolicy() RoutePolicy {
	readPrefixes := []string{"/article", "/category", "/comment", "/message", "/album", "/statistics"}

	rules := []RouteRule{
		{Methods: []string{http.MethodOptions}, Prefix: "/", Class: ClassPublic},
		{Prefix: "/user/login", Class: ClassPublic},
		{Prefix: "/user/register", Class: ClassPublic},
		{Prefix: "/statistics/view", Class: ClassPublic},
		{Prefix: "/statistics/hot", Class: ClassPublic},
	}
	for _, p := range readPrefixes {
		rules = append(rules, RouteRule{Methods: []string{http.MethodGet}, Prefix: p, Class: ClassReadFallback})
	}
	rules = append(rules, RouteRule{Methods: []string{http.MethodPost}, Prefix: "/statistics/view", Exact: true, Class: ClassPublic})

	return RoutePolicy{Version: DefaultRoutePolicyVersion, Rules: rules}
}

// Classify returns the class of the first rule matching method and path.
func (p RoutePolicy) Classify(method, path string) RouteClass {
	method = strings.ToUpper(method)
	for _, rule := range p.Rules {
		if rule.matches(method, path) {
			return rule.Class
		}
	}
	return ClassRequiresAuth
}

// Validate reports an empty version, unknown classes, and rules without a prefix.
func (p RoutePolicy) Validate() error {
	if strings.TrimSpace(p.Version) == "" {
		return errors.New("route policy version is required")
	}
	for i, rule := range p.Rules {
		if !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("route rule %d: prefix must start with /", i)
		}
		switch rule.Class {
		case ClassPublic, ClassReadFallback, ClassRequiresAuth:
		default:
			return fmt.Errorf("route rule %d: unknown class %q", i, rule.Class)
		}
	}
	return nil
}

func (p RoutePolicy) clone() RoutePolicy {
	out := RoutePolicy{Version: p.Version, Rules: make([]RouteRule, len(p.Rules))}
	for i, rule := range p.Rules {
		rule.Methods = append([]string(nil), rule.Methods...)
		out.Rules[i] = rule
	}
	return out
}

func (r RouteRule) matches(method, path string) bool {
	if len(r.Methods) > 0 {
		ok := false
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if r.Exact {
		return path == r.Prefix
	}
	if r.Prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	rest := path[len(r.Prefix):]
	return rest == "" || rest[0] == '/'
}

func (c RouteClass) flowClass() flows.RouteClass {
	switch c {
	case ClassPublic:
		return flows.RoutePublic
	case ClassReadFallback:
		return flows.RouteReadFallback
	default:
		return flows.RouteRequiresAuth
	}
}
