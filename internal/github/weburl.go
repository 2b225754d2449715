// internal/github/weburl.go
package github

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	issueOrPullPath   = regexp.MustCompile(`^/[^/]+/[^/]+/(issues|pull)/\d+$`)
	issueCommentPath  = regexp.MustCompile(`/issues/comments/(\d+)$`)
	reviewCommentPath = regexp.MustCompile(`/pulls/comments/(\d+)$`)
)

const enterpriseAPIRoute = "/api/v3"

// URLNormalizer turns GitHub API URLs into browsable web URLs on a given domain.
type URLNormalizer struct {
	domain *url.URL
}

// NewURLNormalizer returns a normalizer for the web domain, e.g. https://github.com.
func NewURLNormalizer(domain string) (*URLNormalizer, error) {
	u, err := url.Parse(strings.TrimRight(domain, "/"))
	if err != nil {
		return nil, err
	}
	return &URLNormalizer{domain: u}, nil
}

// WebURL rewrites target into a web URL. When target is an issue or pull
// request and latestCommentURL is a comment, the result deep-links to it.
// Empty or unparsable targets are returned unchanged.
func (n *URLNormalizer) WebURL(target, latestCommentURL string) string {
	if target == "" {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}

	p := u.Path
	if n.isAPI(u) {
		p = strings.TrimPrefix(p, enterpriseAPIRoute)
		p = strings.TrimPrefix(p, "/repos")
		p = strings.Replace(p, "/pulls/", "/pull/", 1)
		p = strings.Replace(p, "/commits/", "/commit/", 1)
		u = &url.URL{Scheme: n.domain.Scheme, Host: n.domain.Host, Path: path.Join(n.domain.Path, p)}
		p = strings.TrimPrefix(u.Path, n.domain.Path)
	}

	if anchor := commentAnchor(latestCommentURL); anchor != "" && issueOrPullPath.MatchString(p) {
		u.Fragment = anchor
	}
	return u.String()
}

func (n *URLNormalizer) isAPI(u *url.URL) bool {
	return strings.HasPrefix(u.Host, "api.") ||
		strings.HasPrefix(u.Path, enterpriseAPIRoute+"/") ||
		strings.HasPrefix(u.Path, "/repos/")
}

func commentAnchor(commentURL string) string {
	if m := issueCommentPath.FindStringSubmatch(commentURL); m != nil {
		return "issuecomment-" + m[1]
	}
	if m := reviewCommentPath.FindStringSubmatch(commentURL); m != nil {
		return "discussion_r" + m[1]
	}
	return ""
}
