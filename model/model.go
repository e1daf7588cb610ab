package model

import (
	"time"
)

type CampaignStatus string

const (
	CampaignActive  CampaignStatus = "active"
	CampaignPaused  CampaignStatus = "paused"
	CampaignStopped CampaignStatus = "stopped"
)

type AuthMode string

const (
	AuthCookie AuthMode = "cookie"
	AuthToken  AuthMode = "token"
)

type TokenStatus string

const (
	TokenValid   TokenStatus = "valid"
	TokenExpired TokenStatus = "expired"
	TokenUnknown TokenStatus = "unknown"
)

type HealthStatus struct {
	IsHealthy   bool      `bson:"isHealthy" json:"isHealthy"`
	LastError   string    `bson:"lastError,omitempty" json:"lastError,omitempty"`
	LastErrorAt time.Time `bson:"lastErrorAt,omitempty" json:"lastErrorAt,omitempty"`
}

// Account is the credential bundle captured outside this service. The
// processor only reads it and writes back status fields.
type Account struct {
	Id            string       `bson:"_id" json:"id"`
	Name          string       `bson:"name" json:"name"`
	SessionToken  string       `bson:"sessionToken" json:"sessionToken"`
	SessionCookie string       `bson:"sessionCookie" json:"sessionCookie"`
	CsrfToken     string       `bson:"csrfToken" json:"csrfToken"`
	ActorId       string       `bson:"actorId" json:"actorId"`
	AuthMode      AuthMode     `bson:"authMode" json:"authMode"`
	TokenStatus   TokenStatus  `bson:"tokenStatus" json:"tokenStatus"`
	Health        HealthStatus `bson:"healthStatus" json:"healthStatus"`
	Proxy         string       `bson:"proxy,omitempty" json:"proxy,omitempty"`
	LastCheckedAt time.Time    `bson:"lastCheckedAt,omitempty" json:"lastCheckedAt,omitempty"`
}

type Filters struct {
	MinLikes    int64 `bson:"minLikes" json:"min_likes" validate:"gte=0"`
	MinComments int64 `bson:"minComments" json:"min_comments" validate:"gte=0"`
	MinShares   int64 `bson:"minShares" json:"min_shares" validate:"gte=0"`
}

type DelayRange struct {
	Min time.Duration `bson:"min" json:"min" validate:"gte=0" default:"30s"`
	Max time.Duration `bson:"max" json:"max" validate:"gte=0" default:"120s"`
}

type TargetStats struct {
	Likes    int64 `bson:"likes" json:"likes"`
	Comments int64 `bson:"comments" json:"comments"`
	Shares   int64 `bson:"shares" json:"shares"`
}

func (s TargetStats) Pass(f Filters) bool {
	return s.Likes >= f.MinLikes && s.Comments >= f.MinComments && s.Shares >= f.MinShares
}

// TargetedTarget is the persisted per-post progress record inside a campaign.
type TargetedTarget struct {
	TargetId      string      `bson:"targetId" json:"targetId"`
	TargetUrl     string      `bson:"targetUrl,omitempty" json:"targetUrl,omitempty"`
	GroupId       string      `bson:"groupId,omitempty" json:"groupId,omitempty"`
	ActionsSent   int64       `bson:"actionsSent" json:"actionsSent"`
	IsBlocked     bool        `bson:"isBlocked" json:"isBlocked"`
	Stats         TargetStats `bson:"stats" json:"stats"`
	FirstActionAt time.Time   `bson:"firstActionAt,omitempty" json:"firstActionAt,omitempty"`
	LastActionAt  time.Time   `bson:"lastActionAt,omitempty" json:"lastActionAt,omitempty"`
}

type CampaignStats struct {
	TotalSent    int64 `bson:"totalSent" json:"totalSent"`
	SuccessCount int64 `bson:"successCount" json:"successCount"`
	FailCount    int64 `bson:"failCount" json:"failCount"`
}

type ActivityLog struct {
	Id        string         `bson:"id" json:"id"`
	Action    string         `bson:"action" json:"action"`
	Message   string         `bson:"message" json:"message"`
	TargetId  string         `bson:"targetId,omitempty" json:"targetId,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type Campaign struct {
	Id                  string           `bson:"_id" json:"id"`
	Name                string           `bson:"name" json:"name"`
	Status              CampaignStatus   `bson:"status" json:"status"`
	AccountId           string           `bson:"accountId" json:"accountId"`
	TargetIds           []string         `bson:"targetIds,omitempty" json:"targetIds,omitempty"`
	GroupUrls           []string         `bson:"groupUrls,omitempty" json:"groupUrls,omitempty"`
	PageUrls            []string         `bson:"pageUrls,omitempty" json:"pageUrls,omitempty"`
	Comments            []string         `bson:"comments" json:"comments"`
	MaxActionsPerTarget int64            `bson:"maxActionsPerTarget" json:"maxActionsPerTarget"`
	Filters             Filters          `bson:"filters" json:"filters"`
	DelayRange          DelayRange       `bson:"delayRange" json:"delayRange"`
	TargetedTargets     []TargetedTarget `bson:"targetedTargets" json:"targetedTargets"`
	Stats               CampaignStats    `bson:"stats" json:"stats"`
	ActivityLog         []ActivityLog    `bson:"activityLog" json:"activityLog"`
	UpdatedAt           time.Time        `bson:"updatedAt" json:"updatedAt"`
}

func (c *Campaign) HasExplicitSources() bool {
	return len(c.TargetIds) > 0 || len(c.GroupUrls) > 0 || len(c.PageUrls) > 0
}
func (c *Campaign) Target(targetId string) *TargetedTarget {
	for i := range c.TargetedTargets {
		if c.TargetedTargets[i].TargetId == targetId {
			return &c.TargetedTargets[i]
		}
	}
	return nil
}
func (c *Campaign) Remaining(targetId string) int64 {
	var t = c.Target(targetId)
	if t == nil {
		return c.MaxActionsPerTarget
	}
	if t.IsBlocked {
		return 0
	}
	var left = c.MaxActionsPerTarget - t.ActionsSent
	if left < 0 {
		return 0
	}
	return left
}

// ResolveChain records every hop taken while resolving an input, returned
// to the caller for diagnostics and never persisted.
type ResolveStep struct {
	Step   int    `json:"step"`
	Url    string `json:"url"`
	Method string `json:"method"`
}

type ResolveResult struct {
	Success  bool          `json:"success"`
	FinalUrl string        `json:"finalUrl,omitempty"`
	TargetId string        `json:"targetId,omitempty"`
	Method   string        `json:"method,omitempty"`
	Chain    []ResolveStep `json:"chain"`
	Err      error         `json:"-"`
}

type StepCategory string

const (
	StepMain   StepCategory = "main"
	StepCover  StepCategory = "cover"
	StepFiller StepCategory = "filler"
)

type BehaviorStep struct {
	Order          int           `json:"order"`
	Category       StepCategory  `json:"category"`
	Name           string        `json:"name"`
	Delay          time.Duration `json:"delay"`
	AfterStepIndex int           `json:"afterStepIndex"`
}

type BehaviorSummary struct {
	MainCount     int           `json:"mainCount"`
	CoverCount    int           `json:"coverCount"`
	FillerCount   int           `json:"fillerCount"`
	TotalDuration time.Duration `json:"totalDuration"`
	Naturalness   float64       `json:"naturalness"`
}

type BehaviorPlan struct {
	Steps   []BehaviorStep  `json:"steps"`
	Summary BehaviorSummary `json:"summary"`
}
