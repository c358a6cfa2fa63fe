package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	engine, err := NewDefaultEngine(context.Background())
	require.NoError(t, err)

	tests := []struct {
		route         Route
		authenticated bool
		want          Route
	}{
		{RouteDashboard, false, RouteLogin},
		{RouteModels, false, RouteLogin},
		{RouteCredits, false, RouteLogin},
		{RouteChat, false, RouteLogin},
		{RouteDashboard, true, RouteDashboard},
		{RouteChat, true, RouteChat},
		{RouteLogin, true, RouteDashboard},
		{RouteRegister, true, RouteDashboard},
		{RouteLogin, false, RouteLogin},
		{RouteHome, false, RouteHome},
		{RouteHome, true, RouteHome},
		{RouteCompleteRegistration, false, RouteCompleteRegistration},
		{RouteNotFound, false, RouteNotFound},
	}

	for _, tt := range tests {
		got, err := engine.Resolve(context.Background(), tt.route, tt.authenticated)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "route=%s authenticated=%v", tt.route, tt.authenticated)
	}
}

func TestEvaluateDecision(t *testing.T) {
	engine, err := NewDefaultEngine(context.Background())
	require.NoError(t, err)

	d, err := engine.Evaluate(context.Background(), Input{Route: RouteCredits})
	require.NoError(t, err)
	assert.False(t, d.Allow)
	assert.Equal(t, RouteLogin, d.Redirect)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package route_policy\n decision := {")
	assert.Error(t, err)
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path  string
		route Route
		param string
	}{
		{"", RouteHome, ""},
		{"/", RouteHome, ""},
		{"/dashboard/", RouteDashboard, ""},
		{"/chat/abc123", RouteChat, "abc123"},
		{"/chat", RouteChat, ""},
		{"/complete-registration?token=x", RouteCompleteRegistration, ""},
		{"/nope", RouteNotFound, ""},
	}
	for _, tt := range tests {
		route, param := ParseRoute(tt.path)
		assert.Equal(t, tt.route, route, tt.path)
		assert.Equal(t, tt.param, param, tt.path)
	}
}
