package generation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/imagegen-mcp/pkg/browser"
	"github.com/entrhq/imagegen-mcp/pkg/logging"
	"github.com/entrhq/imagegen-mcp/pkg/site"
)

// Artifact is an image pulled off the page.
type Artifact struct {
	Data []byte

	// Ext includes the leading dot
	Ext string
}

// Strategy is one way of getting the newest result off the page.
type Strategy struct {
	Name    string
	Extract func(ctx context.Context, page browser.Page) (*Artifact, error)
}

const (
	maxSlugLength = 50
	fallbackSlug  = "image"
)

// Timings used while extracting
const (
	historySettle     = 2 * time.Second
	scrollSettle      = time.Second
	detailOpenSettle  = 1500 * time.Millisecond
	detailClickSettle = time.Second
	resultTimeout     = 5 * time.Second
	downloadBtnProbe  = 3 * time.Second
)

var errNoImage = errors.New("no result image")

// Extractor saves the newest result image by trying strategies in order.
type Extractor struct {
	clock           browser.Clock
	downloadTimeout time.Duration
	log             *logging.Logger

	strategies []Strategy
}

// NewExtractor creates an extractor with the default strategies:
// detail-view, thumbnail-scan, download-button, screenshot.
func NewExtractor(clock browser.Clock, downloadTimeout time.Duration, log *logging.Logger) *Extractor {
	e := &Extractor{clock: clock, downloadTimeout: downloadTimeout, log: log}
	e.strategies = []Strategy{
		{Name: "detail-view", Extract: e.detailView},
		{Name: "thumbnail-scan", Extract: e.thumbnailScan},
		{Name: "download-button", Extract: e.downloadButton},
		{Name: "screenshot", Extract: e.screenshot},
	}
	return e
}

// Strategies returns the strategies in the order they are tried.
func (e *Extractor) Strategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// Extract runs the strategies until one yields an image and writes it into
// dir. It returns the written path.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, dir, prompt string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	e.log.Infof("downloading image")
	for _, s := range e.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		artifact, err := s.Extract(ctx, page)
		if err != nil {
			e.log.Debugf("%s failed: %v", s.Name, err)
			continue
		}

		path, err := WriteArtifact(dir, prompt, e.clock.Now(), artifact)
		if err != nil {
			return "", err
		}
		e.log.Infof("image saved via %s to %s", s.Name, path)
		return path, nil
	}

	return "", ErrArtifactNotFound
}

// detailView opens the newest result and fetches its full-size source.
func (e *Extractor) detailView(ctx context.Context, page browser.Page) (*Artifact, error) {
	if err := e.clock.Sleep(ctx, historySettle); err != nil {
		return nil, err
	}

	// Newest results are at the top
	if err := page.PressKey("Home"); err != nil {
		return nil, err
	}
	if err := e.clock.Sleep(ctx, scrollSettle); err != nil {
		return nil, err
	}

	if !page.IsVisible(site.ResultImage, resultTimeout) {
		return nil, errNoImage
	}
	if err := page.Click(browser.ClickOptions{Selector: site.ResultImage}); err != nil {
		return nil, err
	}
	if err := e.clock.Sleep(ctx, detailOpenSettle); err != nil {
		return nil, err
	}

	src, err := page.Attribute(site.ResultImage, "src")
	if err != nil {
		return nil, err
	}
	if src == "" {
		return nil, errNoImage
	}
	return fetchImage(page, src)
}

// thumbnailScan fetches the first result thumbnail on the page.
func (e *Extractor) thumbnailScan(_ context.Context, page browser.Page) (*Artifact, error) {
	srcs, err := page.Attributes(site.ResultImage, "src")
	if err != nil {
		return nil, err
	}
	e.log.Debugf("found %d potential result images", len(srcs))
	if len(srcs) == 0 {
		return nil, errNoImage
	}
	return fetchImage(page, srcs[0])
}

// downloadButton opens the first image and uses the site's download control.
func (e *Extractor) downloadButton(ctx context.Context, page browser.Page) (*Artifact, error) {
	if err := page.Click(browser.ClickOptions{Selector: site.AnyImage, Timeout: resultTimeout}); err != nil {
		return nil, err
	}
	if err := e.clock.Sleep(ctx, detailClickSettle); err != nil {
		return nil, err
	}

	if !page.IsVisible(site.DownloadButton, downloadBtnProbe) {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotVisible, site.DownloadButton)
	}

	dl, err := page.Download(browser.DownloadOptions{
		Selector: site.DownloadButton,
		Timeout:  e.downloadTimeout,
	})
	if err != nil {
		return nil, err
	}
	if len(dl.Data) == 0 {
		return nil, errors.New("empty download")
	}

	ext := strings.ToLower(filepath.Ext(dl.SuggestedFilename))
	if !knownExt(ext) {
		ext = sniffExt(dl.Data)
	}
	return &Artifact{Data: dl.Data, Ext: ext}, nil
}

// screenshot captures the first visible result element.
func (e *Extractor) screenshot(_ context.Context, page browser.Page) (*Artifact, error) {
	if !page.IsVisible(site.ScreenshotImage, 0) {
		return nil, errNoImage
	}
	data, err := page.Screenshot(site.ScreenshotImage)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty screenshot")
	}
	return &Artifact{Data: data, Ext: ".png"}, nil
}

func fetchImage(page browser.Page, src string) (*Artifact, error) {
	res, err := page.Fetch(src)
	if err != nil {
		return nil, err
	}
	if res.Status < 200 || res.Status > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", src, res.Status)
	}
	if len(res.Body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty body", src)
	}
	return &Artifact{Data: res.Body, Ext: imageExt(res.ContentType, src, res.Body)}, nil
}

// imageExt picks a file extension from the response content type, then the
// URL, then the bytes themselves.
func imageExt(contentType, src string, data []byte) string {
	ct := strings.ToLower(contentType)
	u := strings.ToLower(src)
	switch {
	case strings.Contains(ct, "webp") || strings.Contains(u, ".webp"):
		return ".webp"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "jpeg") || strings.Contains(ct, "jpg"):
		return ".jpg"
	}
	return sniffExt(data)
}

func sniffExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/webp":
		return ".webp"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func knownExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return true
	}
	return false
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a prompt into a filename stem: lowercase, runs of anything
// other than a-z0-9 collapsed to "-", at most 50 characters.
func Slug(prompt string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(prompt), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = strings.TrimRight(s[:maxSlugLength], "-")
	}
	if s == "" {
		return fallbackSlug
	}
	return s
}

// WriteArtifact writes a to dir as <slug>-<unix ms><ext>. If that name is
// taken the timestamp is bumped until a free name is found, so two results
// never overwrite each other.
func WriteArtifact(dir, prompt string, now time.Time, a *Artifact) (string, error) {
	stem := Slug(prompt)
	ts := now.UnixMilli()

	for {
		path := filepath.Join(dir, stem+"-"+strconv.FormatInt(ts, 10)+a.Ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			ts++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}

		if _, err := f.Write(a.Data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write image: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to write image: %w", err)
		}
		return path, nil
	}
}
