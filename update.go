package legacyipc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// Release is the part of a published release descriptor the checker reads.
type Release struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Body        string `json:"body"`
	HTMLURL     string `json:"html_url"`
	Draft       bool   `json:"draft"`
	Prerelease  bool   `json:"prerelease"`
	PublishedAt string `json:"published_at"`
}

// UpdateChecker compares the latest published release with the running build.
type UpdateChecker struct {
	url       string
	userAgent string
	current   string
	client    *http.Client
	logger    Logger
}

// NewUpdateChecker creates a checker for the feed in cfg. current is the
// version of the running build.
func NewUpdateChecker(cfg UpdateConfig, current string, logger Logger) *UpdateChecker {
	if logger == nil {
		logger = defaultLogger()
	}
	return &UpdateChecker{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		current:   current,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// Latest fetches the latest release descriptor.
func (u *UpdateChecker) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build release request")
	}
	req.Header.Set("Accept", "application/json")
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request latest release")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("request latest release: %s", resp.Status)
	}

	var release Release
	if err = json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.Wrap(err, "parse release")
	}
	return &release, nil
}

// Check reports whether the latest release is newer than the running build.
func (u *UpdateChecker) Check(ctx context.Context) (*Release, bool, error) {
	release, err := u.Latest(ctx)
	if err != nil {
		return nil, false, err
	}

	newer, err := IsNewer(release.TagName, u.current)
	if err != nil {
		return release, false, err
	}
	return release, newer, nil
}

// Run checks once and logs a notice when a newer release exists. Failures
// are only logged.
func (u *UpdateChecker) Run(ctx context.Context) {
	release, newer, err := u.Check(ctx)
	if err != nil {
		u.logger.Warn("update check failed", "error", err)
		return
	}
	if !newer {
		u.logger.Debug("running latest version", "version", u.current)
		return
	}

	u.logger.Info("new version available", "version", release.TagName, "url", release.HTMLURL)
	if release.Body != "" {
		u.logger.Info("changelog", "body", release.Body)
	}
}

// IsNewer reports whether latest is a higher version than current. Both may
// omit the leading "v".
func IsNewer(latest, current string) (bool, error) {
	l, c := canonicalVersion(latest), canonicalVersion(current)
	if !semver.IsValid(l) {
		return false, errors.Errorf("invalid release version %q", latest)
	}
	if !semver.IsValid(c) {
		return false, errors.Errorf("invalid build version %q", current)
	}
	return semver.Compare(l, c) > 0, nil
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
