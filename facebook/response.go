package facebook

import (
	"strings"

	"github.com/tidwall/gjson"
)

type OutcomeKind int

const (
	OutcomeAmbiguous OutcomeKind = iota
	OutcomeSuccess
	OutcomeWarning
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeWarning:
		return "warning"
	case OutcomeFatal:
		return "fatal"
	}
	return "ambiguous"
}

// Outcome is the classified shape of a mutation response.
type Outcome struct {
	Kind     OutcomeKind
	Id       string
	Code     int64
	Message  string
	Warnings []string
	Raw      string
}

// success identifier locations, most specific first
var successIdPaths = []string{
	"data.comment_create.feedback_comment_edge.node.id",
	"data.comment_create.comment.id",
	"data.comment_create.feedback_comment_edge.node.legacy_fbid",
	"data.story_create.post_id",
}

// Classify maps a raw graphql response body onto the outcome variants.
// An identifier anywhere in the response wins even when non-fatal error
// entries ride along; fatal only when errors exist and no identifier does;
// a clean 200 with neither is ambiguous and left to the caller's policy.
func Classify(body string) Outcome {
	var out = Outcome{Raw: body}
	if body == "" || !gjson.Valid(body) {
		out.Kind = OutcomeAmbiguous
		return out
	}
	var j = gjson.Parse(body)
	for _, path := range successIdPaths {
		if v := j.Get(path); v.Exists() && v.String() != "" {
			out.Id = v.String()
			break
		}
	}
	var fatal bool
	j.Get("errors").ForEach(func(_, e gjson.Result) bool {
		var severity = e.Get("severity").String()
		var msg = e.Get("message").String()
		if severity == "" || severity == "CRITICAL" || severity == "ERROR" {
			fatal = true
			if out.Message == "" {
				out.Code = e.Get("code").Int()
				out.Message = msg
			}
		} else {
			out.Warnings = append(out.Warnings, msg)
		}
		return true
	})
	if e := j.Get("error"); e.Exists() && e.Type != gjson.Null {
		fatal = true
		if out.Message == "" {
			out.Code = e.Get("code").Int()
			if out.Code == 0 {
				out.Code = e.Int()
			}
			out.Message = j.Get("errorDescription").String()
			if out.Message == "" {
				out.Message = e.Get("message").String()
			}
		}
	}
	switch {
	case out.Id != "" && len(out.Warnings) > 0:
		out.Kind = OutcomeWarning
	case out.Id != "":
		out.Kind = OutcomeSuccess
	case fatal:
		out.Kind = OutcomeFatal
	default:
		out.Kind = OutcomeAmbiguous
	}
	return out
}

// block / spam markers inside a fatal message text
var blockMarkers = []string{
	"temporarily blocked",
	"temporarily restricted",
	"spam",
	"going too fast",
	"feature is temporarily",
	"action is blocked",
	"limit the use",
}

func LooksBlocked(message string) bool {
	var lower = strings.ToLower(message)
	for _, marker := range blockMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
