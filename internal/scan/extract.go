// Package scan finds username-bearing elements in a document, extracts their
// handles and decorates them with flag glyphs resolved through the cache and
// request queue.
package scan

import (
	"regexp"
	"strings"

	"github.com/matshaug/flagline/internal/dom"
	"github.com/matshaug/flagline/internal/domain"
)

const (
	attrTestID  = "data-testid"
	attrState   = "data-flag-added"
	attrFlag    = "data-twitter-flag"
	attrShimmer = "data-twitter-flag-shimmer"
	attrHref    = "href"

	testIDTweet    = "tweet"
	testIDUserCell = "UserCell"
	testIDUserName = "User-Name"
)

// Top-level routes that look like profile links but aren't.
var reservedRoutes = map[string]struct{}{
	"home":          {},
	"explore":       {},
	"notifications": {},
	"messages":      {},
	"search":        {},
	"compose":       {},
	"settings":      {},
	"i":             {},
	"jobs":          {},
	"verified":      {},
	"login":         {},
	"logout":        {},
	"about":         {},
	"tos":           {},
	"privacy":       {},
}

var handleTextRx = regexp.MustCompile(`^@([A-Za-z0-9_]{1,15})$`)

// handleFromPath extracts a handle from a relative profile link: a single
// path segment that is not a reserved route and fits handle bounds.
func handleFromPath(href string) (string, bool) {
	if !strings.HasPrefix(href, "/") {
		return "", false
	}
	segment := strings.TrimPrefix(href, "/")
	if segment == "" || strings.ContainsAny(segment, "/?#") {
		return "", false
	}
	if _, reserved := reservedRoutes[strings.ToLower(segment)]; reserved {
		return "", false
	}
	if err := domain.ValidateHandle(segment); err != nil {
		return "", false
	}
	return segment, true
}

// extractHandle locates the handle for a candidate container and the anchor
// node holding its visible "@handle" text. The structural search goes through
// the User-Name marker; if that fails, any relative link whose text matches
// an @handle pattern is accepted.
func extractHandle(container *dom.Node) (handle string, anchor *dom.Node, ok bool) {
	scope := container.Find(func(n *dom.Node) bool {
		testID, _ := n.Attr(attrTestID)
		return testID == testIDUserName
	})

	if scope != nil {
		link := scope.Find(func(n *dom.Node) bool {
			if n.Tag() != "a" {
				return false
			}
			href, _ := n.Attr(attrHref)
			_, valid := handleFromPath(href)
			return valid
		})
		if link != nil {
			href, _ := link.Attr(attrHref)
			handle, _ = handleFromPath(href)
			if anchor = findHandleText(scope, handle); anchor == nil {
				anchor = link
			}
			return handle, anchor, true
		}
	}

	anchor = container.Find(func(n *dom.Node) bool {
		if n.Tag() != "a" {
			return false
		}
		href, _ := n.Attr(attrHref)
		if !strings.HasPrefix(href, "/") {
			return false
		}
		return handleTextRx.MatchString(strings.TrimSpace(n.Text()))
	})
	if anchor == nil {
		return "", nil, false
	}
	match := handleTextRx.FindStringSubmatch(strings.TrimSpace(anchor.Text()))
	return match[1], anchor, true
}

// findHandleText returns the node whose visible text is exactly "@handle".
func findHandleText(scope *dom.Node, handle string) *dom.Node {
	want := "@" + handle
	return scope.Find(func(n *dom.Node) bool {
		return strings.TrimSpace(n.Text()) == want
	})
}
