package facebook

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
)

// ValidTargetId rejects candidates below the digit floor; short numeric
// runs are UI element ids, not post ids.
func ValidTargetId(id string) bool {
	if len(id) < common.MinTargetIdDigits {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// pattern is one row of the extraction cascade: a named matcher plus a
// post-processing step turning the raw capture into a numeric id.
type pattern struct {
	name    string
	matcher *regexp.Regexp
	decode  func(string) string
}

func rawId(s string) string { return s }

func feedbackId(capture string) string {
	raw, err := base64.StdEncoding.DecodeString(capture)
	if err != nil {
		return ""
	}
	m := feedbackDecodedRe.FindStringSubmatch(string(raw))
	if m == nil {
		return ""
	}
	return m[1]
}

var feedbackDecodedRe = regexp.MustCompile(`feedback:(\d+)`)

// ordered by reliability: explicit id fields, encoded feedback identifiers,
// URL path shapes, then legacy field names. Reorder rows, not control flow.
var patterns = []pattern{
	{name: "post_id_field", matcher: regexp.MustCompile(`"post_id"\s*:\s*"(\d+)"`), decode: rawId},
	{name: "postID_field", matcher: regexp.MustCompile(`"postID"\s*:\s*"(\d+)"`), decode: rawId},
	{name: "story_fbid_field", matcher: regexp.MustCompile(`"story_fbid"\s*:\s*"(\d+)"`), decode: rawId},
	{name: "feedback_b64", matcher: regexp.MustCompile(`"feedback"\s*:\s*\{\s*"id"\s*:\s*"([A-Za-z0-9+/=]+)"`), decode: feedbackId},
	{name: "subscription_b64", matcher: regexp.MustCompile(`"subscription_target_id"\s*:\s*"([A-Za-z0-9+/=]{16,})"`), decode: feedbackId},
	{name: "url_posts", matcher: regexp.MustCompile(`/posts/(\d+)`), decode: rawId},
	{name: "url_permalink", matcher: regexp.MustCompile(`/permalink/(\d+)`), decode: rawId},
	{name: "url_story_fbid", matcher: regexp.MustCompile(`story_fbid=(\d+)`), decode: rawId},
	{name: "url_fbid", matcher: regexp.MustCompile(`[?&]fbid=(\d+)`), decode: rawId},
	{name: "legacy_top_level", matcher: regexp.MustCompile(`"top_level_post_id"\s*:\s*"(\d+)"`), decode: rawId},
	{name: "legacy_hideable", matcher: regexp.MustCompile(`"legacy_story_hideable_id"\s*:\s*"(\d+)"`), decode: rawId},
}

// group id siblings found near a post id match
var groupIdRes = []*regexp.Regexp{
	regexp.MustCompile(`"group_id"\s*:\s*"(\d+)"`),
	regexp.MustCompile(`"groupID"\s*:\s*"(\d+)"`),
	regexp.MustCompile(`/groups/(\d+)`),
}

const groupWindow = 600

type Extracted struct {
	Id      string
	GroupId string
	Pattern string
}

// Extract runs the cascade over a page body and returns up to limit unique
// post ids in first-match order. The body is script-embedded data, not
// valid JSON, so association of a group id uses a bounded proximity window
// around each match instead of a structural parse.
func Extract(body string, limit int) []Extracted {
	if body == "" || limit <= 0 {
		return nil
	}
	var seen = make(map[string]struct{})
	var out []Extracted
	for _, p := range patterns {
		for _, m := range p.matcher.FindAllStringSubmatchIndex(body, -1) {
			if len(out) >= limit {
				return out
			}
			var capture = body[m[2]:m[3]]
			var id = p.decode(capture)
			if id == "" || !ValidTargetId(id) {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Extracted{
				Id:      id,
				GroupId: nearbyGroupId(body, m[0]),
				Pattern: p.name,
			})
		}
	}
	return out
}

func nearbyGroupId(body string, at int) string {
	var lo = at - groupWindow
	if lo < 0 {
		lo = 0
	}
	var hi = at + groupWindow
	if hi > len(body) {
		hi = len(body)
	}
	var window = body[lo:hi]
	for _, re := range groupIdRes {
		if m := re.FindStringSubmatch(window); m != nil {
			return m[1]
		}
	}
	return ""
}

// GroupIdFromUrl pulls the container id out of a group URL, "" when the
// URL is not a group surface.
func GroupIdFromUrl(rawUrl string) string {
	if rawUrl == "" {
		return ""
	}
	if m := groupIdRes[2].FindStringSubmatch(rawUrl); m != nil {
		return m[1]
	}
	return ""
}

// ExtractIdFromUrl pulls a post id straight out of a URL string, used by
// the resolver after each redirect hop. Malformed input returns "".
func ExtractIdFromUrl(rawUrl string) string {
	if rawUrl == "" {
		return ""
	}
	for _, p := range patterns {
		if !strings.HasPrefix(p.name, "url_") {
			continue
		}
		if m := p.matcher.FindStringSubmatch(rawUrl); m != nil && ValidTargetId(m[1]) {
			return m[1]
		}
	}
	return ""
}
