package common

import (
	"fmt"

	"go.uber.org/zap"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const DefaultDesktopHost = "https://www.facebook.com"
const DefaultBasicHost = "https://mbasic.facebook.com"
const DefaultMobileHost = "https://m.facebook.com"

const DefaultGraphEndpoint = DefaultDesktopHost + "/api/graphql/"

// Persisted doc ids for the mimicked RelayModern calls. These rotate on the
// platform side, so they are overridable from config.
var (
	DocIdCreateComment = "7217596588369605"
	DocIdFeedbackStats = "6235145556566483"
	DocIdCommentList   = "6879268808778459"
	DocIdViewerQuery   = "5010055882427589"
)

const FriendlyCreateComment = "useCometUFICreateCommentMutation"
const FriendlyFeedbackStats = "CometUFISummaryAndActionsRendererQuery"
const FriendlyCommentList = "CommentListComponentsRootQuery"
const FriendlyViewerQuery = "CometSettingsDropdownTriggerQuery"

const DefaultCallerClass = "RelayModern"

// MinTargetIdDigits is the floor below which a run of digits is treated as a
// UI artifact rather than a content id.
const MinTargetIdDigits = 10

var DefaultLogger *zap.Logger = zap.NewNop()

func PermalinkUrl(targetId string) string {
	return fmt.Sprintf("%s/%s", DefaultDesktopHost, targetId)
}
func BasicPermalinkUrl(targetId string) string {
	return fmt.Sprintf("%s/story.php?story_fbid=%s", DefaultBasicHost, targetId)
}
