// Package site holds the selectors for the ElevenLabs web UI. They are
// Playwright selector lists: comma-separated alternatives, first match wins.
// Expect to touch this file whenever the site's markup changes.
package site

import "fmt"

// Login page
const (
	EmailInput    = `input[name="email"], input[type="email"], input[placeholder*="email" i]`
	PasswordInput = `input[name="password"], input[type="password"]`
	LoginError    = `[role="alert"], .error-message`

	// SignInButtonText is matched against the full button text; the button
	// has no type="submit"
	SignInButtonText = "Sign in"
)

// Image generation page
const (
	PromptInput      = `textarea[placeholder="Describe your image..."], textarea[placeholder*="Describe your"]`
	NegativePrompt   = `textarea[placeholder*="negative" i]`
	GenerateButton   = `button[type="submit"], button[aria-label*="generate" i], button:has(svg[class*="arrow"])`
	ImageToggle      = `button:has-text("Image")`
	ModelSelector    = `button:has-text("GPT Image"), button:has-text("Flux"), button:has-text("Seedream"), button:has-text("Nano")`
	AspectSelector   = `button:has-text("1:1"), button:has-text("16:9"), button:has-text("9:16")`
	LoadingIndicator = `[role="progressbar"], .animate-spin, [data-loading="true"], svg.animate-spin`
	DownloadButton   = `button:has-text("Download"), button[aria-label*="download" i], a[download]`

	// ResultImage matches generated images served from the storage hosts
	ResultImage = `img[src*="replicate"], img[src*="storage.googleapis"]`

	// ScreenshotImage is the looser match used as the last resort
	ScreenshotImage = `img[src*="replicate"], img[src*="storage"]`

	// AnyImage opens the detail view when nothing better matches
	AnyImage = `img`
)

// Overlays
const (
	CookieAccept = `button:has-text("ACCEPT ALL COOKIES")`
	TryNow       = `button:has-text("Try now")`
)

// Navigation
const (
	UserMenu     = `[data-testid="user-menu"], .user-avatar, button[aria-label*="account" i], button[aria-label*="profile" i], img[alt*="avatar" i]`
	LogoutButton = `button:has-text("Log out"), button:has-text("Sign out"), a:has-text("Log out")`
)

// ModelOption matches the dropdown entry for a model display name.
func ModelOption(name string) string {
	return fmt.Sprintf(`button:has-text(%q), [role="menuitem"]:has-text(%q)`, name, name)
}

// AspectOption matches the dropdown entry for an aspect ratio such as "16:9".
func AspectOption(ratio string) string {
	return fmt.Sprintf(`button:has-text(%q), [role="menuitem"]:has-text(%q)`, ratio, ratio)
}
