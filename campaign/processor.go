package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/cache"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/db"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/facebook"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils/wait"

	"go.uber.org/zap"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/behavior"
)

// ProtocolClient is the slice of the platform surface the processor needs.
// Satisfied by *facebook.Client, replaced by fakes in tests.
type ProtocolClient interface {
	Health(ctx context.Context) *facebook.HealthReport
	FetchStats(ctx context.Context, targetId, targetUrl string) (*facebook.Stats, error)
	PostComment(ctx context.Context, params facebook.PostParams) (*facebook.PostResult, error)
	RecentComments(ctx context.Context, targetId string, limit int) ([]facebook.Comment, error)
	DiscoverFeed(ctx context.Context, limit int) ([]facebook.Extracted, error)
}

type Resolver interface {
	Resolve(ctx context.Context, input string) *model.ResolveResult
}

// ClientFactory builds a protocol client bound to one account's
// credentials.
type ClientFactory func(account *model.Account) ProtocolClient

type Options struct {
	// independent safety ceiling per tick, below the per-target quota
	MaxActionsPerTick int64         `json:"max_actions_per_tick" validate:"gt=0" default:"10"`
	StatsCacheTTL     time.Duration `json:"stats_cache_ttl" validate:"gte=0" default:"10m"`
	ResolveCacheTTL   time.Duration `json:"resolve_cache_ttl" validate:"gte=0" default:"1h"`
	FeedLimit         int           `json:"feed_limit" validate:"gt=0" default:"5"`
	ReplyLookupLimit  int           `json:"reply_lookup_limit" validate:"gt=0" default:"10"`
	// DryRun plans and logs the behavior timeline without posting
	DryRun bool `json:"dry_run"`
}

type Processor struct {
	opts      *Options
	campaigns db.CampaignStore
	accounts  db.AccountStore
	newClient ClientFactory
	resolver  Resolver
	injector  *behavior.Injector
	cache     cache.Cache
	rand      *utils.Rand
	logger    *zap.Logger

	lck   sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProcessor(
	opts *Options,
	campaigns db.CampaignStore,
	accounts db.AccountStore,
	newClient ClientFactory,
	resolver Resolver,
	injector *behavior.Injector,
	kv cache.Cache,
	logger *zap.Logger,
) *Processor {
	if opts == nil {
		opts = config.TryValidate(&Options{})
	}
	if injector == nil {
		injector = behavior.New(nil, nil)
	}
	if kv == nil {
		kv = cache.NewMemory(nil)
	}
	if logger == nil {
		logger = common.DefaultLogger
	}
	return &Processor{
		opts:      opts,
		campaigns: campaigns,
		accounts:  accounts,
		newClient: newClient,
		resolver:  resolver,
		injector:  injector,
		cache:     kv,
		rand:      utils.NewTimeRand(),
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithRand pins the jitter source, used by tests.
func (p *Processor) WithRand(r *utils.Rand) *Processor {
	if r != nil {
		p.rand = r
	}
	return p
}

// campaignLock serializes ticks for one campaign inside this process.
// There is no cross-process lease; a single scheduler instance is assumed.
func (p *Processor) campaignLock(id string) *sync.Mutex {
	p.lck.Lock()
	defer p.lck.Unlock()
	if _, ok := p.locks[id]; !ok {
		p.locks[id] = &sync.Mutex{}
	}
	return p.locks[id]
}

type candidate struct {
	id      string
	url     string
	groupId string
}

func (p *Processor) log(ctx context.Context, campaignId, action, message, targetId string, metadata map[string]any) {
	var entry = model.ActivityLog{
		Action:   action,
		Message:  message,
		TargetId: targetId,
		Metadata: metadata,
	}
	if err := p.campaigns.AppendLog(ctx, campaignId, entry); err != nil {
		p.logger.Warn("append activity log failed", zap.String("campaign", campaignId), zap.Error(err))
	}
}

func (p *Processor) pause(ctx context.Context, campaignId, reason string) {
	if err := p.campaigns.SetStatus(ctx, campaignId, model.CampaignPaused); err != nil {
		p.logger.Error("pause campaign failed", zap.String("campaign", campaignId), zap.Error(err))
	}
	p.log(ctx, campaignId, "pause", reason, "", nil)
}

// stillActive re-reads status, the cooperative cancellation point between
// blocking calls.
func (p *Processor) stillActive(ctx context.Context, campaignId string) bool {
	if ctx.Err() != nil {
		return false
	}
	campaign, err := p.campaigns.Get(ctx, campaignId)
	if err != nil {
		return false
	}
	return campaign.Status == model.CampaignActive
}

func (p *Processor) sleep(ctx context.Context, dr model.DelayRange) error {
	return wait.Sleep(ctx, p.rand.DurationBetween(dr.Min, dr.Max))
}

// Process runs one tick of the focus loop for a campaign.
func (p *Processor) Process(ctx context.Context, campaignId string) error {
	var lock = p.campaignLock(campaignId)
	lock.Lock()
	defer lock.Unlock()

	campaign, err := p.campaigns.Get(ctx, campaignId)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignActive {
		return nil
	}
	account, err := p.accounts.Get(ctx, campaign.AccountId)
	if err != nil {
		p.pause(ctx, campaignId, fmt.Sprintf("account %s unavailable: %v", campaign.AccountId, err))
		return nil
	}
	var client = p.newClient(account)
	var health = client.Health(ctx)
	if !health.Healthy {
		p.accounts.UpdateHealth(ctx, account.Id, model.HealthStatus{
			IsHealthy:   false,
			LastError:   health.Reason,
			LastErrorAt: time.Now(),
		})
		if health.State == facebook.HealthUnauthorized {
			p.accounts.UpdateTokenStatus(ctx, account.Id, model.TokenExpired)
		}
		p.pause(ctx, campaignId, fmt.Sprintf("account unhealthy (%s): %s", health.State, health.Reason))
		return nil
	}
	p.accounts.UpdateHealth(ctx, account.Id, model.HealthStatus{IsHealthy: true})

	// act on a fresh copy, the health probe took real time
	campaign, err = p.campaigns.Get(ctx, campaignId)
	if err != nil {
		return err
	}
	if campaign.Status != model.CampaignActive {
		return nil
	}

	candidates, err := p.selectTargets(ctx, campaign, client)
	if err != nil {
		if model.HasTag(err, model.ErrExtractNotFound) {
			p.logger.Info("no targets from any source", zap.String("campaign", campaignId))
			return nil
		}
		return err
	}
	candidates = p.prefilter(campaign, candidates)
	if len(candidates) == 0 {
		return nil
	}

	var sentThisTick int64
	for _, cand := range candidates {
		if !p.stillActive(ctx, campaignId) {
			break
		}
		if sentThisTick >= p.opts.MaxActionsPerTick {
			p.logger.Info("per-tick cap reached", zap.String("campaign", campaignId))
			break
		}
		fresh, err := p.campaigns.Get(ctx, campaignId)
		if err != nil {
			return err
		}
		campaign = fresh
		var remaining = campaign.Remaining(cand.id)
		if remaining <= 0 {
			continue
		}
		stats, err := p.targetStats(ctx, client, cand)
		if err != nil {
			p.logger.Warn("stats fetch failed, skipping target",
				zap.String("campaign", campaignId), zap.String("target", cand.id), zap.Error(err))
			continue
		}
		if !stats.Model().Pass(campaign.Filters) {
			continue
		}
		if err := p.campaigns.EnsureTarget(ctx, campaignId, model.TargetedTarget{
			TargetId:  cand.id,
			TargetUrl: cand.url,
			GroupId:   cand.groupId,
			Stats:     stats.Model(),
		}); err != nil {
			return err
		}
		if err := p.campaigns.SetTargetStats(ctx, campaignId, cand.id, stats.Model()); err != nil {
			return err
		}
		sent, err := p.focus(ctx, campaign, client, cand, remaining, &sentThisTick)
		if err != nil {
			return err
		}
		if sent && p.sleep(ctx, campaign.DelayRange) != nil {
			break
		}
	}
	return nil
}

// selectTargets applies the strict source priority: any explicit source
// configured means only explicit sources are used; feed discovery is the
// fallback when nothing is configured.
func (p *Processor) selectTargets(ctx context.Context, campaign *model.Campaign, client ProtocolClient) ([]candidate, error) {
	var out []candidate
	if campaign.HasExplicitSources() {
		for _, input := range campaign.TargetIds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var r = p.resolveCached(ctx, input)
			if !r.Success {
				p.logger.Warn("target resolve failed",
					zap.String("campaign", campaign.Id), zap.String("input", input),
					zap.Any("chain", r.Chain), zap.Error(r.Err))
				continue
			}
			out = append(out, candidate{id: r.TargetId, url: r.FinalUrl})
		}
		for _, input := range append(append([]string{}, campaign.GroupUrls...), campaign.PageUrls...) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var r = p.resolveCached(ctx, input)
			if !r.Success {
				p.logger.Warn("source resolve failed",
					zap.String("campaign", campaign.Id), zap.String("input", input),
					zap.Any("chain", r.Chain), zap.Error(r.Err))
				continue
			}
			out = append(out, candidate{id: r.TargetId, url: r.FinalUrl, groupId: facebook.GroupIdFromUrl(input)})
		}
		return out, nil
	}
	found, err := client.DiscoverFeed(ctx, p.opts.FeedLimit)
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		out = append(out, candidate{id: f.Id, groupId: f.GroupId})
	}
	return out, nil
}

// prefilter drops exhausted or blocked targets before any network call and
// dedupes by id, first occurrence wins.
func (p *Processor) prefilter(campaign *model.Campaign, candidates []candidate) []candidate {
	var seen = make(map[string]struct{})
	var out []candidate
	for _, cand := range candidates {
		if _, ok := seen[cand.id]; ok {
			continue
		}
		seen[cand.id] = struct{}{}
		if campaign.Remaining(cand.id) <= 0 {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// resolveCached fronts the resolver with the shared cache. Inputs are
// arbitrary URLs, so the key is a hash rather than the raw string.
func (p *Processor) resolveCached(ctx context.Context, input string) *model.ResolveResult {
	var key = fmt.Sprintf("resolve:%x", utils.StringHash(input))
	var cached model.ResolveResult
	if ok, _ := p.cache.Get(ctx, key, &cached); ok && cached.Success {
		return &cached
	}
	var r = p.resolver.Resolve(ctx, input)
	if r.Success {
		p.cache.Set(ctx, key, r, p.opts.ResolveCacheTTL)
	}
	return r
}

func (p *Processor) targetStats(ctx context.Context, client ProtocolClient, cand candidate) (*facebook.Stats, error) {
	var key = "stats:" + cand.id
	var cached facebook.Stats
	if ok, _ := p.cache.Get(ctx, key, &cached); ok {
		return &cached, nil
	}
	stats, err := client.FetchStats(ctx, cand.id, cand.url)
	if err != nil {
		return nil, err
	}
	p.cache.Set(ctx, key, stats, p.opts.StatsCacheTTL)
	return stats, nil
}

var mainSteps = []string{"open_post", "scroll_comments", "write_comment", "submit_comment"}
var coverPool = []string{"view_profile", "open_notifications", "scroll_feed", "hover_reactions"}
var fillerPool = []string{"pause_read", "scroll_up", "scroll_down", "move_cursor", "idle"}

// focus exhausts the remaining quota on one target before returning. A
// block signal aborts this target only; the campaign moves on.
func (p *Processor) focus(ctx context.Context, campaign *model.Campaign, client ProtocolClient, cand candidate, remaining int64, sentThisTick *int64) (bool, error) {
	var acted bool
	for i := int64(0); i < remaining; i++ {
		if !p.stillActive(ctx, campaign.Id) {
			return acted, nil
		}
		if *sentThisTick >= p.opts.MaxActionsPerTick {
			return acted, nil
		}
		var message = p.pickMessage(campaign)
		if message == "" {
			p.log(ctx, campaign.Id, "skip", model.ErrCommentPool, cand.id, nil)
			return acted, nil
		}
		var plan = p.injector.Plan(mainSteps, coverPool, fillerPool)
		if p.opts.DryRun {
			p.log(ctx, campaign.Id, "dry-run", "behavior plan only, nothing posted", cand.id, map[string]any{
				"steps":       len(plan.Steps),
				"naturalness": plan.Summary.Naturalness,
				"duration":    plan.Summary.TotalDuration.String(),
			})
			*sentThisTick++
			acted = true
			continue
		}
		p.logger.Debug("behavior plan",
			zap.String("target", cand.id),
			zap.Int("steps", len(plan.Steps)),
			zap.Float64("naturalness", plan.Summary.Naturalness))
		var params = facebook.PostParams{
			TargetId:    cand.id,
			Message:     message,
			ContainerId: cand.groupId,
			TargetUrl:   cand.url,
		}
		// opportunistic threaded mode: reply to a recent comment when one
		// exists, fall back to a direct comment when the lookup fails
		if comments, err := client.RecentComments(ctx, cand.id, p.opts.ReplyLookupLimit); err == nil && len(comments) > 0 {
			var pick = comments[p.rand.IntN(len(comments))]
			if pick.Id != "" {
				params.ParentActionId = pick.Id
				params.TargetName = pick.AuthorName
			}
		}
		result, err := client.PostComment(ctx, params)
		*sentThisTick++
		acted = true
		// the persisted counter is the quota source of truth; posting past
		// a failed write would exceed the quota on the next tick
		if incErr := p.campaigns.IncTargetActions(ctx, campaign.Id, cand.id, err == nil); incErr != nil {
			p.logger.Error("action counter write failed",
				zap.String("campaign", campaign.Id), zap.String("target", cand.id), zap.Error(incErr))
			p.pause(ctx, campaign.Id, fmt.Sprintf("action counter write failed: %v", incErr))
			return acted, incErr
		}
		if err != nil {
			p.log(ctx, campaign.Id, "comment-failed", err.Error(), cand.id, nil)
			if model.HasTag(err, model.ErrBlockSignal) {
				if markErr := p.campaigns.MarkTargetBlocked(ctx, campaign.Id, cand.id); markErr != nil {
					p.logger.Error("block flag write failed",
						zap.String("campaign", campaign.Id), zap.String("target", cand.id), zap.Error(markErr))
					return acted, markErr
				}
				p.logger.Warn("block signal, leaving target",
					zap.String("campaign", campaign.Id), zap.String("target", cand.id))
				return acted, nil
			}
			if model.HasTag(err, model.ErrCredentialExpired) || model.HasTag(err, model.ErrCheckpoint) {
				p.pause(ctx, campaign.Id, fmt.Sprintf("credential failure while posting: %v", err))
				return acted, nil
			}
		} else {
			p.log(ctx, campaign.Id, "comment-sent", fmt.Sprintf("mode %s, id %s", result.Mode, result.Id), cand.id, map[string]any{
				"mode": string(result.Mode),
			})
		}
		if i < remaining-1 {
			if p.sleep(ctx, campaign.DelayRange) != nil {
				return acted, nil
			}
		}
	}
	return acted, nil
}

func (p *Processor) pickMessage(campaign *model.Campaign) string {
	if len(campaign.Comments) == 0 {
		return ""
	}
	return campaign.Comments[p.rand.IntN(len(campaign.Comments))]
}

// SweepCredentials revalidates every account and pauses active campaigns
// whose account went unhealthy. Driven by the scheduler's long interval.
func (p *Processor) SweepCredentials(ctx context.Context) error {
	accounts, err := p.accounts.List(ctx)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		var client = p.newClient(account)
		var health = client.Health(ctx)
		if health.Healthy {
			p.accounts.UpdateHealth(ctx, account.Id, model.HealthStatus{IsHealthy: true})
			continue
		}
		p.accounts.UpdateHealth(ctx, account.Id, model.HealthStatus{
			IsHealthy:   false,
			LastError:   health.Reason,
			LastErrorAt: time.Now(),
		})
		if health.State == facebook.HealthUnauthorized {
			p.accounts.UpdateTokenStatus(ctx, account.Id, model.TokenExpired)
		}
		campaigns, err := p.campaigns.ListByAccount(ctx, account.Id)
		if err != nil {
			p.logger.Warn("list campaigns for account failed", zap.String("account", account.Id), zap.Error(err))
			continue
		}
		for _, campaign := range campaigns {
			if campaign.Status == model.CampaignActive {
				p.pause(ctx, campaign.Id, fmt.Sprintf("credential sweep: account unhealthy (%s)", health.State))
			}
		}
	}
	return nil
}
