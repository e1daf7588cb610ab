package facebook

import (
	"context"
	"regexp"
	"strings"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/request"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type Stats struct {
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	Success  bool   `json:"success"`
	Method   string `json:"method"`
	// Warning marks the soft-success case where every attempt came back
	// empty and zeros were reported instead of an error.
	Warning bool `json:"warning"`
}

func (s *Stats) Model() model.TargetStats {
	return model.TargetStats{Likes: s.Likes, Comments: s.Comments, Shares: s.Shares}
}

// structured json fields first, then data attributes, then visible text.
// Visible-text rows carry localized labels (en + vi) with thousand
// separators.
type statPattern struct {
	name    string
	matcher *regexp.Regexp
}

var likePatterns = []statPattern{
	{"json_reaction_count", regexp.MustCompile(`"reaction_count"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)},
	{"json_likecount", regexp.MustCompile(`"likecount"\s*:\s*"?([\d.,]+)"?`)},
	{"data_testid_like", regexp.MustCompile(`aria-label="([\d.,]+)\s+(?:reactions|likes)`)},
	{"text_like_en", regexp.MustCompile(`([\d.,]+)\s+(?:people like|likes|others)`)},
	{"text_like_vi", regexp.MustCompile(`([\d.,]+)\s+(?:người khác|lượt thích)`)},
}
var commentPatterns = []statPattern{
	{"json_comment_count", regexp.MustCompile(`"comment_count"\s*:\s*\{\s*"total_count"\s*:\s*(\d+)`)},
	{"json_comments", regexp.MustCompile(`"commentcount"\s*:\s*"?([\d.,]+)"?`)},
	{"text_comment_en", regexp.MustCompile(`([\d.,]+)\s+comments?`)},
	{"text_comment_vi", regexp.MustCompile(`([\d.,]+)\s+bình luận`)},
}
var sharePatterns = []statPattern{
	{"json_share_count", regexp.MustCompile(`"share_count"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)},
	{"json_sharecount", regexp.MustCompile(`"sharecount"\s*:\s*"?([\d.,]+)"?`)},
	{"text_share_en", regexp.MustCompile(`([\d.,]+)\s+shares?`)},
	{"text_share_vi", regexp.MustCompile(`([\d.,]+)\s+lượt chia sẻ`)},
}

func firstCount(body string, table []statPattern) (int64, bool) {
	for _, p := range table {
		if m := p.matcher.FindStringSubmatch(body); m != nil {
			return parseCount(m[1]), true
		}
	}
	return 0, false
}

// parseCount tolerates "1,234", "1.234" and bare digits; separator choice
// follows the page locale.
func parseCount(s string) int64 {
	var n int64
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n = n*10 + int64(c-'0')
		}
	}
	return n
}

func statsFromBody(body, method string) (*Stats, bool) {
	likes, okL := firstCount(body, likePatterns)
	comments, okC := firstCount(body, commentPatterns)
	shares, okS := firstCount(body, sharePatterns)
	if !okL && !okC && !okS {
		return nil, false
	}
	return &Stats{
		Likes:    likes,
		Comments: comments,
		Shares:   shares,
		Success:  true,
		Method:   method,
	}, true
}

// FetchStats runs the three-attempt waterfall: structured summary query,
// full permalink page, then the lightweight rendering surface. All three
// coming back empty is reported as zeros with the warning flag instead of
// an error so the caller's filter logic stays uniform.
func (c *Client) FetchStats(ctx context.Context, targetId, targetUrl string) (*Stats, error) {
	if stats := c.statsByQuery(ctx, targetId); stats != nil {
		return stats, nil
	}
	var pageUrl = targetUrl
	if pageUrl == "" {
		pageUrl = common.PermalinkUrl(targetId)
	}
	if stats := c.statsByPage(ctx, pageUrl, "page"); stats != nil {
		return stats, nil
	}
	if stats := c.statsByPage(ctx, common.BasicPermalinkUrl(targetId), "basic"); stats != nil {
		return stats, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.logger.Warn("stats unavailable, reporting zeros", zap.String("target", targetId))
	return &Stats{Success: true, Warning: true, Method: "none"}, nil
}

func (c *Client) statsByQuery(ctx context.Context, targetId string) *Stats {
	var variables = map[string]any{
		"feedbackTargetID": FeedbackScope(targetId),
		"scale":            1,
	}
	body, err := c.graphql(ctx, common.FriendlyFeedbackStats, c.opts.DocFeedbackStats, variables)
	if err != nil {
		c.logger.Debug("stats query failed", zap.String("target", targetId), zap.Error(err))
		return nil
	}
	var j = gjson.Parse(body)
	var feedback = j.Get("data.feedback")
	if feedback.Exists() {
		var likes = feedback.Get("reaction_count.count").Int()
		var comments = feedback.Get("comment_count.total_count").Int()
		if comments == 0 {
			comments = feedback.Get("total_comment_count").Int()
		}
		var shares = feedback.Get("share_count.count").Int()
		if likes > 0 || comments > 0 || shares > 0 {
			return &Stats{Likes: likes, Comments: comments, Shares: shares, Success: true, Method: "query"}
		}
	}
	if stats, ok := statsFromBody(body, "query"); ok {
		return stats
	}
	return nil
}

func (c *Client) statsByPage(ctx context.Context, pageUrl, method string) *Stats {
	if err := ctx.Err(); err != nil {
		return nil
	}
	var opts = request.DefaultRequestOptions()
	opts.Header = request.NewBrowserHeader()
	opts.Timeout = c.opts.Timeout
	opts.Proxy = c.opts.Proxy
	if c.account != nil && c.account.SessionCookie != "" {
		opts.Header.SetCookieText(c.account.SessionCookie)
	}
	resp, err := request.Get(pageUrl, opts)
	if err != nil {
		c.logger.Debug("stats page fetch failed", zap.String("url", pageUrl), zap.Error(err))
		return nil
	}
	defer resp.Close()
	if !resp.Success() {
		return nil
	}
	var body = resp.Text()
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if stats, ok := statsFromBody(body, method); ok {
		return stats
	}
	return nil
}
