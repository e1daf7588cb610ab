package facebook

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"
)

// Checksum derives the companion value the graphql endpoint expects next to
// the session token: the literal "2" followed by the sum of the token's
// character codes. Pure, reproducible for any token length.
func Checksum(sessionToken string) string {
	var sum int
	for _, c := range sessionToken {
		sum += int(c)
	}
	return fmt.Sprintf("2%d", sum)
}

// FeedbackScope encodes a post id into the opaque scope identifier the
// mutation payload carries ("feedback:<id>", base64).
func FeedbackScope(targetId string) string {
	return base64.StdEncoding.EncodeToString([]byte("feedback:" + targetId))
}

// ReplyScope derives the scope for a threaded reply by decoding the parent
// comment identifier and rewriting its namespace. Parent ids decode to
// "comment:<postId>_<commentId>"; the reply call wants the same numeric
// tail under the feedback namespace.
func ReplyScope(parentActionId string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(parentActionId)
	if err != nil {
		return "", fmt.Errorf("decode parent id failed,%w", err)
	}
	var decoded = string(raw)
	_, tail, ok := strings.Cut(decoded, ":")
	if !ok || tail == "" {
		return "", fmt.Errorf("parent id[%s] has no namespace", decoded)
	}
	if postId, _, ok := strings.Cut(tail, "_"); ok && postId != "" {
		tail = postId
	}
	return base64.StdEncoding.EncodeToString([]byte("feedback:" + tail)), nil
}

// DecodeScope returns the numeric id inside an encoded scope identifier.
func DecodeScope(scope string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(scope)
	if err != nil {
		return "", false
	}
	_, id, ok := strings.Cut(string(raw), ":")
	if !ok || !ValidTargetId(id) {
		return "", false
	}
	return id, true
}

// SessionId produces the per-call correlation marker sent as client
// mutation id. A fresh uuid per call, hyphens kept.
func SessionId() string {
	return utils.MustDefaultUUID()
}

// TrackingId is the short per-call marker attached to mutation variables.
func TrackingId(r *utils.Rand) string {
	if r == nil {
		r = utils.NewTimeRand()
	}
	return utils.RandString(r, 22)
}
