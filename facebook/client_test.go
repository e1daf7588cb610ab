package facebook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"

	fhttp "github.com/bogdanfinn/fhttp"
	"go.uber.org/zap"
)

type fakeTransport struct {
	requests []*fhttp.Request
	forms    []url.Values
	bodies   []string
	status   []int
	err      error
}

func (t *fakeTransport) Do(req *fhttp.Request) (*fhttp.Response, error) {
	t.requests = append(t.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		form, _ := url.ParseQuery(string(raw))
		t.forms = append(t.forms, form)
	} else {
		t.forms = append(t.forms, nil)
	}
	if t.err != nil {
		return nil, t.err
	}
	var i = len(t.requests) - 1
	var body = ""
	if i < len(t.bodies) {
		body = t.bodies[i]
	}
	var code = 200
	if i < len(t.status) {
		code = t.status[i]
	}
	return &fhttp.Response{
		StatusCode: code,
		Header:     make(fhttp.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

var testAccount = &model.Account{
	Id:            "acc-1",
	ActorId:       "100012345678901",
	SessionToken:  "NAcO0vRhGbc:22:1700000000",
	SessionCookie: "c_user=100012345678901; xs=abc",
}

func newTestClient(t *fakeTransport) *Client {
	var opts = &Options{Timeout: time.Second, RatePerMinute: 60000}
	return NewClient(testAccount, opts, zap.NewNop()).
		WithTransport(t).
		WithRand(utils.NewRand(1))
}

func TestStripNulls(t *testing.T) {
	var in = map[string]any{
		"keep":   "x",
		"drop":   nil,
		"nested": map[string]any{"a": nil, "b": 1},
		"list":   []any{nil, "y", map[string]any{"c": nil}},
	}
	var out = StripNulls(in).(map[string]any)
	if _, ok := out["drop"]; ok {
		t.Fatal("nil entry survived")
	}
	var nested = out["nested"].(map[string]any)
	if _, ok := nested["a"]; ok || nested["b"] != 1 {
		t.Fatalf("nested not stripped: %+v", nested)
	}
	var list = out["list"].([]any)
	if len(list) != 2 {
		t.Fatalf("list not stripped: %+v", list)
	}
}

func TestSubstituteName(t *testing.T) {
	if got := substituteName("chào {name} nhé", "Minh"); got != "chào Minh nhé" {
		t.Fatalf("got %q", got)
	}
	if got := substituteName("chào {name} nhé", ""); got != "chào bạn nhé" {
		t.Fatalf("got %q", got)
	}
	if got := substituteName("no placeholder", "Minh"); got != "no placeholder" {
		t.Fatalf("got %q", got)
	}
}

func TestCommentVariablesDirect(t *testing.T) {
	var c = newTestClient(&fakeTransport{})
	vars, mode, err := c.commentVariables(PostParams{
		TargetId: "123456789012345",
		Message:  "hello {name}",
	})
	if err != nil || mode != ModeDirect {
		t.Fatalf("mode %s err %v", mode, err)
	}
	var input = vars["input"].(map[string]any)
	if input["feedback_id"] != FeedbackScope("123456789012345") {
		t.Fatalf("scope %v", input["feedback_id"])
	}
	if input["reply_comment_parent_fbid"] != nil {
		t.Fatal("direct mode must not carry a reply parent")
	}
	var msg = input["message"].(map[string]any)
	if msg["text"] != "hello bạn" {
		t.Fatalf("message %v", msg["text"])
	}
}

func TestCommentVariablesReply(t *testing.T) {
	var parent = base64.StdEncoding.EncodeToString([]byte("comment:123456789012345_778899"))
	var c = newTestClient(&fakeTransport{})
	vars, mode, err := c.commentVariables(PostParams{
		TargetId:       "123456789012345",
		Message:        "hi {name}",
		ParentActionId: parent,
		TargetName:     "Lan",
	})
	if err != nil || mode != ModeReply {
		t.Fatalf("mode %s err %v", mode, err)
	}
	var input = vars["input"].(map[string]any)
	if input["feedback_id"] != FeedbackScope("123456789012345") {
		t.Fatalf("reply scope not rewritten to post feedback: %v", input["feedback_id"])
	}
	if input["reply_comment_parent_fbid"] != parent {
		t.Fatalf("parent %v", input["reply_comment_parent_fbid"])
	}
	if input["message"].(map[string]any)["text"] != "hi Lan" {
		t.Fatalf("message %v", input["message"])
	}
}

func TestCommentVariablesContainerPrecedence(t *testing.T) {
	var c = newTestClient(&fakeTransport{})
	vars, _, err := c.commentVariables(PostParams{
		TargetId:    "123456789012345",
		Message:     "x",
		ContainerId: "999000111",
		TargetUrl:   "https://www.facebook.com/groups/555444333/permalink/123456789012345",
	})
	if err != nil {
		t.Fatal(err)
	}
	if vars["input"].(map[string]any)["group_id"] != "999000111" {
		t.Fatal("explicit container must win over url detection")
	}
	vars, _, _ = c.commentVariables(PostParams{
		TargetId:  "123456789012345",
		Message:   "x",
		TargetUrl: "https://www.facebook.com/groups/555444333/permalink/123456789012345",
	})
	if vars["input"].(map[string]any)["group_id"] != "555444333" {
		t.Fatalf("group not derived from url: %v", vars["input"].(map[string]any)["group_id"])
	}
}

func TestPostCommentSuccessAndFormShape(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{
		`for (;;);{"data":{"comment_create":{"feedback_comment_edge":{"node":{"id":"Y29tbWVudDoxMjM"}}}}}`,
	}}
	var c = newTestClient(ft)
	result, err := c.PostComment(context.Background(), PostParams{
		TargetId: "123456789012345",
		Message:  "nice!",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Mode != ModeDirect || result.Id != "Y29tbWVudDoxMjM" {
		t.Fatalf("unexpected %+v", result)
	}
	var form = ft.forms[0]
	if form.Get("av") != testAccount.ActorId || form.Get("__user") != testAccount.ActorId {
		t.Fatalf("actor fields wrong: %v", form)
	}
	if form.Get("fb_dtsg") != testAccount.SessionToken {
		t.Fatal("session token missing")
	}
	if form.Get("jazoest") != Checksum(testAccount.SessionToken) {
		t.Fatal("checksum mismatch")
	}
	if form.Get("doc_id") == "" || form.Get("fb_api_req_friendly_name") == "" {
		t.Fatal("doc routing fields missing")
	}
	var variables map[string]any
	if err := json.Unmarshal([]byte(form.Get("variables")), &variables); err != nil {
		t.Fatalf("variables not valid json: %v", err)
	}
	var input = variables["input"].(map[string]any)
	if _, ok := input["attachments"]; ok {
		t.Fatal("null field serialized")
	}
}

func TestPostCommentBlockSignal(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{
		`{"errors":[{"severity":"CRITICAL","code":1446036,"message":"You're temporarily blocked from commenting"}]}`,
	}}
	_, err := newTestClient(ft).PostComment(context.Background(), PostParams{TargetId: "123456789012345", Message: "x"})
	if !model.HasTag(err, model.ErrBlockSignal) {
		t.Fatalf("expected block tag, got %v", err)
	}
}

func TestPostCommentFatalApiError(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{
		`{"errors":[{"severity":"CRITICAL","code":1675004,"message":"Rate limit exceeded"}]}`,
	}}
	_, err := newTestClient(ft).PostComment(context.Background(), PostParams{TargetId: "123456789012345", Message: "x"})
	if err == nil || model.HasTag(err, model.ErrBlockSignal) {
		t.Fatalf("expected plain api error, got %v", err)
	}
	if !model.HasTag(err, model.ErrApi) {
		t.Fatalf("expected api tag, got %v", err)
	}
}

func TestPostCommentAmbiguousPolicy(t *testing.T) {
	var lenient = newTestClient(&fakeTransport{bodies: []string{`{"data":{}}`}})
	result, err := lenient.PostComment(context.Background(), PostParams{TargetId: "123456789012345", Message: "x"})
	if err != nil || !result.Success {
		t.Fatalf("lenient policy should count ambiguous as sent: %+v %v", result, err)
	}
	var strict = newTestClient(&fakeTransport{bodies: []string{`{"data":{}}`}})
	strict.opts.StrictResponses = true
	_, err = strict.PostComment(context.Background(), PostParams{TargetId: "123456789012345", Message: "x"})
	if !model.HasTag(err, model.ErrAmbiguousResponse) {
		t.Fatalf("strict policy should fail ambiguous, got %v", err)
	}
}

func TestPostCommentStatusError(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{""}, status: []int{500}}
	_, err := newTestClient(ft).PostComment(context.Background(), PostParams{TargetId: "123456789012345", Message: "x"})
	if !model.HasTag(err, model.ErrStatus) {
		t.Fatalf("expected status tag, got %v", err)
	}
}

func TestRecentComments(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`for (;;);{"data":{"node":{"comment_rendering_instance_for_feed_location":{"comments":{"edges":[
		{"node":{"id":"cid1","author":{"id":"u1","name":"An"},"body":{"text":"first"}}},
		{"node":{"id":"cid2","author":{"id":"u2","name":"Binh"},"body":{"text":"second"}}}
	]}}}}}`}}
	comments, err := newTestClient(ft).RecentComments(context.Background(), "123456789012345", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments", len(comments))
	}
	if comments[0].Id != "cid1" || comments[0].AuthorName != "An" || comments[1].Text != "second" {
		t.Fatalf("unexpected %+v", comments)
	}
}

func TestHealthMissingCredentials(t *testing.T) {
	var c = NewClient(&model.Account{}, &Options{Timeout: time.Second, RatePerMinute: 60000}, zap.NewNop()).
		WithTransport(&fakeTransport{})
	var report = c.Health(context.Background())
	if report.Healthy || report.State != HealthUnauthorized {
		t.Fatalf("unexpected %+v", report)
	}
}

func TestHealthValid(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`{"data":{"viewer":{"actor":{"id":"100012345678901"}}}}`}}
	var report = newTestClient(ft).Health(context.Background())
	if !report.Healthy || report.State != HealthValid {
		t.Fatalf("unexpected %+v", report)
	}
}

func TestHealthCheckpoint(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`{"error":true,"redirect":"https://www.facebook.com/checkpoint/1234"}`}}
	var report = newTestClient(ft).Health(context.Background())
	if report.Healthy || report.State != HealthCheckpoint {
		t.Fatalf("unexpected %+v", report)
	}
}

func TestHealthUnauthorizedCode(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`{"error":1357001,"errorDescription":"Please log in"}`}}
	var report = newTestClient(ft).Health(context.Background())
	if report.Healthy || report.State != HealthUnauthorized {
		t.Fatalf("unexpected %+v", report)
	}
}

func TestDiscoverFeed(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`{"post_id":"123456789012345"},{"post_id":"999888777666555"}`}}
	found, err := newTestClient(ft).DiscoverFeed(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 || found[0].Id != "123456789012345" {
		t.Fatalf("unexpected %+v", found)
	}
}

func TestDiscoverFeedEmpty(t *testing.T) {
	var ft = &fakeTransport{bodies: []string{`<html>no embedded data</html>`}}
	_, err := newTestClient(ft).DiscoverFeed(context.Background(), 5)
	if !model.HasTag(err, model.ErrExtractNotFound) {
		t.Fatalf("expected extract tag, got %v", err)
	}
}
