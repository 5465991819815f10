// Package browser owns the single persistent Chromium profile used to drive
// the ElevenLabs web application through Playwright.
//
// # Architecture
//
// The package is built around three concepts:
//
// 1. Page: the narrow set of page operations the rest of the module needs
// (navigate, wait, click, fill, read attributes, fetch, download, screenshot)
// 2. Session: the Playwright implementation of Page, bound to one persistent
// browser context rooted at an on-disk profile directory
// 3. Manager: the owner of that session. It launches lazily, relaunches when
// the page has been closed underneath it, persists storage state, and
// serializes callers through Exclusive
//
// # Session Lifecycle
//
//  1. Acquire: the first caller launches the persistent context, hides the
//     webdriver fingerprint, sets the Referer header and opens the site root
//  2. Use: auth and generation code drive the returned Page
//  3. Release: closes the context; the next Acquire starts fresh
//  4. Shutdown: Release plus stopping the Playwright driver
//
// # Concurrency
//
// There is exactly one page. Every operation that touches it must run inside
// Manager.Exclusive, which admits one caller at a time and honours context
// cancellation while waiting.
//
// # Example Usage
//
//	manager := browser.NewManager(opts, browser.NewPlaywrightLauncher(log), log)
//	defer manager.Shutdown()
//
//	err := manager.Exclusive(ctx, func(ctx context.Context) error {
//	    page, err := manager.Acquire(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    return page.Navigate("https://elevenlabs.io/app/image-video", browser.NavigateOptions{
//	        WaitUntil: "domcontentloaded",
//	    })
//	})
package browser
