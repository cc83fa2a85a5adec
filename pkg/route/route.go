// Package route encodes navigation locations as tokens and dispatches them to actions.
//
// A token has the form
//
//	action[,flag1,flag2,...][:param]
//
// Flags are only recognized before the first ':'; everything after it is the
// param, verbatim.
package route

import (
	"context"
	"maps"
	"slices"
	"strings"

	"k8s.io/klog/v2"
)

// Action names.
const (
	Browse = "browse"
	View   = "view"
)

// MapOption selects the map rendering of an album.
const MapOption = "map"

// Options is a set of presence-only flags.
type Options map[string]bool

// Has reports whether flag is set.
func (o Options) Has(flag string) bool {
	return o[flag]
}

// Route is a decoded location.
type Route struct {
	Action  string
	Param   string
	Options Options
}

// Encode returns the token for r. Flags are written in sorted order.
func Encode(r Route) string {
	var sb strings.Builder
	sb.WriteString(r.Action)

	flags := []string{}
	for f, set := range r.Options {
		if set {
			flags = append(flags, f)
		}
	}
	slices.Sort(flags)
	for _, f := range flags {
		sb.WriteByte(',')
		sb.WriteString(f)
	}

	if r.Param != "" || len(flags) > 0 {
		sb.WriteByte(':')
		sb.WriteString(r.Param)
	}
	return sb.String()
}

// Parse splits a token into a route without checking the action name.
func Parse(token string) Route {
	head, param, ok := strings.Cut(token, ":")
	if !ok {
		return Route{Action: token}
	}

	fields := strings.Split(head, ",")
	r := Route{Action: fields[0], Param: param}
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		if r.Options == nil {
			r.Options = Options{}
		}
		r.Options[f] = true
	}
	return r
}

// Handler performs an action.
type Handler func(ctx context.Context, param string, opts Options)

// Table maps recognized action names to their handlers. A recognized action
// with a nil handler is a configuration gap: it decodes, but never dispatches.
type Table map[string]Handler

// Router tracks the current location and the one before it.
type Router struct {
	table    Table
	current  *Route
	previous *Route
}

// New returns a router for the actions in t.
func New(t Table) *Router {
	return &Router{table: t}
}

// Decode parses token and reports whether its action is recognized.
// The empty token is always the root album.
func (r *Router) Decode(token string) (Route, bool) {
	if token == "" {
		return Route{Action: Browse}, true
	}

	rt := Parse(token)
	if _, ok := r.table[rt.Action]; !ok {
		return Route{}, false
	}
	return rt, true
}

// Dispatch decodes token, makes it the current route and runs its handler.
// It returns false and leaves the router untouched when the token matches no
// action or the action has no handler.
func (r *Router) Dispatch(ctx context.Context, token string) bool {
	rt, ok := r.Decode(token)
	if !ok {
		klog.Warningf("no route for %q", token)
		return false
	}

	h := r.table[rt.Action]
	if h == nil {
		klog.Errorf("no handler registered for action %q", rt.Action)
		return false
	}

	if r.current != nil {
		r.previous = r.current
	}
	r.current = &rt

	klog.V(1).Infof("dispatch %s param=%q options=%v", rt.Action, rt.Param, rt.Options)
	h(ctx, rt.Param, rt.Options)
	return true
}

// Route returns a copy of the current route, or nil before the first dispatch.
func (r *Router) Route() *Route {
	return clone(r.current)
}

// Previous returns a copy of the route that was current before the last
// dispatch, or nil.
func (r *Router) Previous() *Route {
	return clone(r.previous)
}

func clone(rt *Route) *Route {
	if rt == nil {
		return nil
	}
	c := *rt
	c.Options = maps.Clone(rt.Options)
	return &c
}
