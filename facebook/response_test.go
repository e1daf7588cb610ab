package facebook

import "testing"

func TestClassifySuccess(t *testing.T) {
	var body = `{"data":{"comment_create":{"feedback_comment_edge":{"node":{"id":"Y29tbWVudDox"}}}}}`
	var out = Classify(body)
	if out.Kind != OutcomeSuccess {
		t.Fatalf("kind %s", out.Kind)
	}
	if out.Id != "Y29tbWVudDox" {
		t.Fatalf("id %q", out.Id)
	}
}
func TestClassifyIdWinsOverNonFatalErrors(t *testing.T) {
	var body = `{"data":{"comment_create":{"comment":{"id":"123"}}},"errors":[{"severity":"WARNING","message":"field deprecated"}]}`
	var out = Classify(body)
	if out.Kind != OutcomeWarning {
		t.Fatalf("kind %s", out.Kind)
	}
	if out.Id != "123" || len(out.Warnings) != 1 {
		t.Fatalf("unexpected %+v", out)
	}
}
func TestClassifyFatalErrors(t *testing.T) {
	var body = `{"errors":[{"severity":"CRITICAL","code":1675004,"message":"Rate limit exceeded"}]}`
	var out = Classify(body)
	if out.Kind != OutcomeFatal {
		t.Fatalf("kind %s", out.Kind)
	}
	if out.Code != 1675004 || out.Message != "Rate limit exceeded" {
		t.Fatalf("unexpected %+v", out)
	}
}
func TestClassifyMissingSeverityIsFatal(t *testing.T) {
	var out = Classify(`{"errors":[{"message":"something broke"}]}`)
	if out.Kind != OutcomeFatal {
		t.Fatalf("kind %s", out.Kind)
	}
}
func TestClassifyTopLevelErrorField(t *testing.T) {
	var out = Classify(`{"error":1357001,"errorSummary":"Sorry","errorDescription":"Please log in"}`)
	if out.Kind != OutcomeFatal {
		t.Fatalf("kind %s", out.Kind)
	}
	if out.Code != 1357001 || out.Message != "Please log in" {
		t.Fatalf("unexpected %+v", out)
	}
}
func TestClassifyAmbiguous(t *testing.T) {
	for _, body := range []string{`{}`, `{"data":{}}`, ``, `not json at all`} {
		if out := Classify(body); out.Kind != OutcomeAmbiguous {
			t.Fatalf("body %q classified %s", body, out.Kind)
		}
	}
}
func TestLooksBlocked(t *testing.T) {
	var cases = map[string]bool{
		"You're Temporarily Blocked from commenting": true,
		"It looks like you were going too fast":      true,
		"This message contains spam":                 true,
		"Rate limit exceeded":                        false,
		"":                                           false,
	}
	for msg, want := range cases {
		if got := LooksBlocked(msg); got != want {
			t.Fatalf("LooksBlocked(%q) = %v", msg, got)
		}
	}
}
