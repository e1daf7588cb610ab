package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"

	fhttp "github.com/bogdanfinn/fhttp"
	tlsclient "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/juju/ratelimit"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const jsonGuardPrefix = "for (;;);"
const defaultNamePlaceholder = "{name}"
const genericNameFiller = "bạn"

type Options struct {
	Timeout time.Duration `json:"timeout" validate:"gte=0" default:"30s"`
	Proxy   string        `json:"proxy"`
	// outbound calls per minute across every operation on this client
	RatePerMinute float64 `json:"rate_per_minute" validate:"gte=0" default:"6"`
	// StrictResponses turns the ambiguous-response-is-success heuristic off:
	// a 200 with no identifier and no errors becomes a failure.
	StrictResponses  bool   `json:"strict_responses"`
	DocCreateComment string `json:"doc_create_comment"`
	DocFeedbackStats string `json:"doc_feedback_stats"`
	DocCommentList   string `json:"doc_comment_list"`
	DocViewerQuery   string `json:"doc_viewer_query"`
}

type Transport interface {
	Do(*fhttp.Request) (*fhttp.Response, error)
}

type tlsTransport struct {
	proxy   string
	timeout time.Duration
}

func (t *tlsTransport) Do(req *fhttp.Request) (*fhttp.Response, error) {
	opts := []tlsclient.HttpClientOption{
		tlsclient.WithClientProfile(profiles.Chrome_133),
		tlsclient.WithNotFollowRedirects(),
		tlsclient.WithTimeoutSeconds(int(t.timeout.Seconds())),
	}
	if t.proxy != "" {
		opts = append(opts, tlsclient.WithProxyUrl(t.proxy))
	}
	client, err := tlsclient.NewHttpClient(tlsclient.NewNoopLogger(), opts...)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// Client speaks the platform's internal graphql surface for one account.
type Client struct {
	opts      *Options
	account   *model.Account
	transport Transport
	bucket    *ratelimit.Bucket
	rand      *utils.Rand
	logger    *zap.Logger
}

func NewClient(account *model.Account, opts *Options, logger *zap.Logger) *Client {
	if opts == nil {
		opts = config.TryValidate(&Options{})
	}
	if opts.DocCreateComment == "" {
		opts.DocCreateComment = common.DocIdCreateComment
	}
	if opts.DocFeedbackStats == "" {
		opts.DocFeedbackStats = common.DocIdFeedbackStats
	}
	if opts.DocCommentList == "" {
		opts.DocCommentList = common.DocIdCommentList
	}
	if opts.DocViewerQuery == "" {
		opts.DocViewerQuery = common.DocIdViewerQuery
	}
	if logger == nil {
		logger = common.DefaultLogger
	}
	var proxy = opts.Proxy
	if proxy == "" && account != nil {
		proxy = account.Proxy
	}
	var rate = opts.RatePerMinute
	if rate <= 0 {
		rate = 6
	}
	return &Client{
		opts:      opts,
		account:   account,
		transport: &tlsTransport{proxy: proxy, timeout: opts.Timeout},
		bucket:    ratelimit.NewBucketWithRate(rate/60.0, 1),
		rand:      utils.NewTimeRand(),
		logger:    logger,
	}
}

// WithTransport swaps the wire layer, used by tests.
func (c *Client) WithTransport(t Transport) *Client {
	if t != nil {
		c.transport = t
	}
	return c
}
func (c *Client) WithRand(r *utils.Rand) *Client {
	if r != nil {
		c.rand = r
	}
	return c
}
func (c *Client) Account() *model.Account {
	return c.account
}

// StripNulls removes nil-valued entries recursively. The endpoint rejects
// explicit nulls on optional fields, so they must not be serialized at all.
func StripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		var out = make(map[string]any, len(t))
		for k, item := range t {
			if item == nil {
				continue
			}
			out[k] = StripNulls(item)
		}
		return out
	case []any:
		var out = make([]any, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, StripNulls(item))
		}
		return out
	}
	return v
}

func (c *Client) form(friendlyName, docId string, variables map[string]any) (url.Values, error) {
	raw, err := json.Marshal(StripNulls(variables))
	if err != nil {
		return nil, err
	}
	var body = url.Values{}
	body.Set("av", c.account.ActorId)
	body.Set("__user", c.account.ActorId)
	body.Set("__a", "1")
	body.Set("fb_dtsg", c.account.SessionToken)
	body.Set("jazoest", Checksum(c.account.SessionToken))
	body.Set("fb_api_caller_class", common.DefaultCallerClass)
	body.Set("fb_api_req_friendly_name", friendlyName)
	body.Set("doc_id", docId)
	body.Set("variables", string(raw))
	body.Set("server_timestamps", "true")
	return body, nil
}

func (c *Client) graphql(ctx context.Context, friendlyName, docId string, variables map[string]any) (string, error) {
	body, err := c.form(friendlyName, docId, variables)
	if err != nil {
		return "", model.NewBase().WithTag(model.ErrTaskArgs).WithError(err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.bucket.Wait(1)
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, common.DefaultGraphEndpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return "", model.NewNetError().WithError(err)
	}
	req.Header.Set("user-agent", common.DefaultUserAgent)
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("cookie", c.account.SessionCookie)
	req.Header.Set("origin", common.DefaultDesktopHost)
	req.Header.Set("referer", common.DefaultDesktopHost+"/")
	req.Header.Set("x-fb-friendly-name", friendlyName)
	resp, err := c.transport.Do(req)
	if err != nil {
		return "", model.NewNetError().WithError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", model.NewStatusError(resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewNetError().WithError(err)
	}
	var text = strings.TrimPrefix(string(raw), jsonGuardPrefix)
	if text == "" {
		return "", model.NewBadResponseError()
	}
	return text, nil
}

type PostMode string

const (
	ModeDirect PostMode = "A"
	ModeReply  PostMode = "B"
)

type PostParams struct {
	TargetId       string
	Message        string
	ParentActionId string
	ContainerId    string
	TargetUrl      string
	TargetName     string
}

type PostResult struct {
	Success bool
	Id      string
	Mode    PostMode
	Outcome Outcome
}

func substituteName(message, targetName string) string {
	var name = targetName
	if name == "" {
		name = genericNameFiller
	}
	return strings.ReplaceAll(message, defaultNamePlaceholder, name)
}

func (c *Client) commentVariables(params PostParams) (map[string]any, PostMode, error) {
	var mode = ModeDirect
	var scope = FeedbackScope(params.TargetId)
	var replyParent any
	if params.ParentActionId != "" {
		mode = ModeReply
		derived, err := ReplyScope(params.ParentActionId)
		if err != nil {
			return nil, mode, model.NewBase().WithTag(model.ErrTaskArgs).WithError(err)
		}
		scope = derived
		replyParent = params.ParentActionId
	}
	var containerId any
	if params.ContainerId != "" {
		// explicit container always wins over URL-derived detection
		containerId = params.ContainerId
	} else if id := GroupIdFromUrl(params.TargetUrl); id != "" {
		containerId = id
	}
	var message = params.Message
	if mode == ModeReply {
		message = substituteName(message, params.TargetName)
	} else {
		message = substituteName(message, "")
	}
	var variables = map[string]any{
		"input": map[string]any{
			"client_mutation_id":         SessionId(),
			"actor_id":                   c.account.ActorId,
			"feedback_id":                scope,
			"message":                    map[string]any{"ranges": []any{}, "text": message},
			"reply_comment_parent_fbid":  replyParent,
			"attachments":                nil,
			"feedback_source":            "2",
			"idempotence_token":          "client:" + TrackingId(c.rand),
			"session_id":                 SessionId(),
			"is_tracking_encrypted":      true,
			"tracking":                   []any{},
			"feedback_referrer":          nil,
			"group_id":                   containerId,
			"vod_video_timestamp":        nil,
			"attribution_id_v2":          nil,
		},
		"feedbackSource":        2,
		"feedLocation":          "NEWSFEED",
		"focusCommentID":        nil,
		"includeNestedComments": mode == ModeReply,
		"scale":                 1,
		"useDefaultActor":       false,
	}
	return variables, mode, nil
}

// PostComment sends one comment. Mode is selected solely by the presence
// of ParentActionId: direct on the post, or threaded under that comment.
func (c *Client) PostComment(ctx context.Context, params PostParams) (*PostResult, error) {
	variables, mode, err := c.commentVariables(params)
	if err != nil {
		return nil, err
	}
	body, err := c.graphql(ctx, common.FriendlyCreateComment, c.opts.DocCreateComment, variables)
	if err != nil {
		return nil, err
	}
	var outcome = Classify(body)
	var result = &PostResult{Id: outcome.Id, Mode: mode, Outcome: outcome}
	switch outcome.Kind {
	case OutcomeSuccess, OutcomeWarning:
		result.Success = true
		if outcome.Kind == OutcomeWarning {
			c.logger.Warn("comment accepted with warnings",
				zap.String("target", params.TargetId),
				zap.Strings("warnings", outcome.Warnings))
		}
		return result, nil
	case OutcomeFatal:
		if LooksBlocked(outcome.Message) {
			return result, model.NewBlockError().
				WithField("code", int(outcome.Code)).
				WithField("message", outcome.Message)
		}
		return result, model.NewApiError().WithCode(int(outcome.Code)).WithMessage(outcome.Message)
	default:
		// logged verbatim for later audit
		c.logger.Info("ambiguous comment response",
			zap.String("target", params.TargetId),
			zap.String("body", body))
		if c.opts.StrictResponses {
			return result, model.NewAmbiguousError().WithField("target", params.TargetId)
		}
		result.Success = true
		return result, nil
	}
}

type Comment struct {
	Id         string `json:"id"`
	AuthorId   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Text       string `json:"text"`
}

// RecentComments lists prior comments on a post, used to pick a reply
// parent for threaded mode.
func (c *Client) RecentComments(ctx context.Context, targetId string, limit int) ([]Comment, error) {
	if limit <= 0 {
		limit = 10
	}
	var variables = map[string]any{
		"feedbackID":            FeedbackScope(targetId),
		"feedLocation":          "POST_PERMALINK",
		"first":                 limit,
		"includeNestedComments": false,
		"scale":                 1,
	}
	body, err := c.graphql(ctx, common.FriendlyCommentList, c.opts.DocCommentList, variables)
	if err != nil {
		return nil, err
	}
	var j = gjson.Parse(body)
	var edges = j.Get("data.node.comment_rendering_instance_for_feed_location.comments.edges")
	if !edges.Exists() {
		edges = j.Get("data.feedback.display_comments.edges")
	}
	var comments []Comment
	edges.ForEach(func(_, edge gjson.Result) bool {
		var node = edge.Get("node")
		comments = append(comments, Comment{
			Id:         node.Get("id").String(),
			AuthorId:   node.Get("author.id").String(),
			AuthorName: node.Get("author.name").String(),
			Text:       node.Get("body.text").String(),
		})
		return true
	})
	return comments, nil
}

type HealthState string

const (
	HealthValid        HealthState = "valid"
	HealthUnauthorized HealthState = "unauthorized"
	HealthCheckpoint   HealthState = "checkpoint"
	HealthUnknown      HealthState = "unknown"
)

type HealthReport struct {
	Healthy bool
	State   HealthState
	Reason  string
	Details string
}

var checkpointMarkers = []string{"checkpoint", "/checkpoint/", "confirm your identity", "xác minh danh tính"}
var loginMarkers = []string{"login.php", "/login/", "log in to facebook", "đăng nhập"}

// Health probes the credential bundle: structured viewer query first, page
// fetch as fallback when the query endpoint itself is unavailable.
func (c *Client) Health(ctx context.Context) *HealthReport {
	if c.account == nil || c.account.SessionToken == "" || c.account.SessionCookie == "" {
		return &HealthReport{State: HealthUnauthorized, Reason: "missing credentials"}
	}
	body, err := c.graphql(ctx, common.FriendlyViewerQuery, c.opts.DocViewerQuery, map[string]any{"scale": 1})
	if err != nil {
		if model.HasTag(err, model.ErrNet) || model.HasTag(err, model.ErrStatus) {
			return c.healthByPage(ctx)
		}
		return &HealthReport{State: HealthUnknown, Reason: err.Error()}
	}
	return classifyHealthBody(body)
}

func classifyHealthBody(body string) *HealthReport {
	var lower = strings.ToLower(body)
	for _, marker := range checkpointMarkers {
		if strings.Contains(lower, marker) {
			return &HealthReport{State: HealthCheckpoint, Reason: "checkpoint required", Details: marker}
		}
	}
	var j = gjson.Parse(body)
	if actor := j.Get("data.viewer.actor.id"); actor.Exists() && actor.String() != "" {
		return &HealthReport{Healthy: true, State: HealthValid}
	}
	if errCode := j.Get("error"); errCode.Exists() {
		var code = errCode.Int()
		if code == 1357001 || code == 1357004 {
			return &HealthReport{State: HealthUnauthorized, Reason: "session rejected by endpoint"}
		}
		return &HealthReport{State: HealthUnknown, Reason: j.Get("errorDescription").String()}
	}
	for _, marker := range loginMarkers {
		if strings.Contains(lower, marker) {
			return &HealthReport{State: HealthUnauthorized, Reason: "redirected to login"}
		}
	}
	return &HealthReport{State: HealthUnknown, Reason: "unrecognized probe response"}
}

func (c *Client) healthByPage(ctx context.Context) *HealthReport {
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, common.DefaultDesktopHost+"/me", nil)
	if err != nil {
		return &HealthReport{State: HealthUnknown, Reason: err.Error()}
	}
	req.Header.Set("user-agent", common.DefaultUserAgent)
	req.Header.Set("cookie", c.account.SessionCookie)
	resp, err := c.transport.Do(req)
	if err != nil {
		return &HealthReport{State: HealthUnknown, Reason: err.Error()}
	}
	defer resp.Body.Close()
	var location = resp.Header.Get("Location")
	var lower = strings.ToLower(location)
	for _, marker := range checkpointMarkers {
		if strings.Contains(lower, marker) {
			return &HealthReport{State: HealthCheckpoint, Reason: "checkpoint redirect", Details: location}
		}
	}
	for _, marker := range loginMarkers {
		if strings.Contains(lower, marker) {
			return &HealthReport{State: HealthUnauthorized, Reason: "login redirect"}
		}
	}
	if resp.StatusCode == http.StatusOK || (resp.StatusCode >= 300 && resp.StatusCode <= 399) {
		return &HealthReport{Healthy: true, State: HealthValid}
	}
	return &HealthReport{State: HealthUnknown, Reason: fmt.Sprintf("probe status %d", resp.StatusCode)}
}

// DiscoverFeed fetches the home feed and runs the extractor over it,
// the target source of last resort when a campaign configures nothing
// explicit.
func (c *Client) DiscoverFeed(ctx context.Context, limit int) ([]Extracted, error) {
	if limit <= 0 {
		limit = 5
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.bucket.Wait(1)
	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodGet, common.DefaultDesktopHost+"/", nil)
	if err != nil {
		return nil, model.NewNetError().WithError(err)
	}
	req.Header.Set("user-agent", common.DefaultUserAgent)
	req.Header.Set("cookie", c.account.SessionCookie)
	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, model.NewNetError().WithError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewStatusError(resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewNetError().WithError(err)
	}
	var found = Extract(string(raw), limit)
	if len(found) == 0 {
		return nil, model.NewBase().WithTag(model.ErrExtractNotFound)
	}
	return found, nil
}
