package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	routes, err := NewRoutes("https://elevenlabs.io", "*sign-in*", "*[Hh]istory*")
	require.NoError(t, err)

	tests := []struct {
		name    string
		url     string
		onSite  bool
		signIn  bool
		history bool
		authed  bool
	}{
		{"app", "https://elevenlabs.io/app/image-video", true, false, false, true},
		{"subdomain", "https://app.elevenlabs.io/image-video", true, false, false, true},
		{"sign in", "https://elevenlabs.io/app/sign-in?redirect=%2Fapp", true, true, false, false},
		{"history", "https://elevenlabs.io/app/image-video/history/abc", true, false, true, true},
		{"capital history", "https://elevenlabs.io/app/History", true, false, true, true},
		{"other site", "https://accounts.google.com/signin", false, false, false, false},
		{"lookalike", "https://elevenlabs.io.evil.com/app", false, false, false, false},
		{"blank", "about:blank", false, false, false, false},
		{"garbage", "::::", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.onSite, routes.OnSite(tt.url), "OnSite")
			assert.Equal(t, tt.signIn, routes.IsSignIn(tt.url), "IsSignIn")
			assert.Equal(t, tt.history, routes.IsHistory(tt.url), "IsHistory")
			assert.Equal(t, tt.authed, routes.IsAuthenticated(tt.url), "IsAuthenticated")
		})
	}
}

func TestRoutesLocalhost(t *testing.T) {
	routes, err := NewRoutes("http://localhost:8080", "*sign-in*", "*history*")
	require.NoError(t, err)

	assert.True(t, routes.OnSite("http://localhost:8080/app"))
	assert.False(t, routes.OnSite("http://127.0.0.1:8080/app"))
}

func TestNewRoutesErrors(t *testing.T) {
	_, err := NewRoutes("not a url", "*", "*")
	assert.Error(t, err)

	_, err = NewRoutes("https://elevenlabs.io", "[", "*")
	assert.Error(t, err)
}
