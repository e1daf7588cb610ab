package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/campaign"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/common"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/db"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/errorx"
	cancelctx "github.com/cnv192/Auto-ShoppeAffilate-sub002/utils/context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// campaign processing interval
	ProcessSpec string `json:"process_spec" validate:"required" default:"@every 5m"`
	// credential revalidation interval
	SweepSpec string `json:"sweep_spec" validate:"required" default:"@every 1h"`
	// campaigns processed concurrently per tick
	Concurrency int `json:"concurrency" validate:"gt=0" default:"3"`
}

// Scheduler drives the processor: a short-interval pass over every active
// campaign and a long-interval credential sweep. Start and Stop are
// idempotent; entry ids are owned so shutdown is clean.
type Scheduler struct {
	opts      *Options
	processor *campaign.Processor
	campaigns db.CampaignStore
	logger    *zap.Logger

	lck     sync.Mutex
	cron    *cron.Cron
	entries []cron.EntryID
	ctx     *cancelctx.CancelContext
	running bool
}

func New(opts *Options, processor *campaign.Processor, campaigns db.CampaignStore, logger *zap.Logger) *Scheduler {
	if opts == nil {
		opts = config.TryValidate(&Options{})
	}
	if logger == nil {
		logger = common.DefaultLogger
	}
	return &Scheduler{
		opts:      opts,
		processor: processor,
		campaigns: campaigns,
		logger:    logger,
	}
}

func (s *Scheduler) Start() error {
	s.lck.Lock()
	defer s.lck.Unlock()
	if s.running {
		return nil
	}
	s.ctx = cancelctx.New(context.Background())
	var c = cron.New()
	processId, err := c.AddFunc(s.opts.ProcessSpec, func() {
		if err := s.ProcessAll(s.ctx.Ctx()); err != nil {
			s.logger.Error("process tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("bad process spec[%s],%w", s.opts.ProcessSpec, err)
	}
	sweepId, err := c.AddFunc(s.opts.SweepSpec, func() {
		if err := s.processor.SweepCredentials(s.ctx.Ctx()); err != nil {
			s.logger.Error("credential sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("bad sweep spec[%s],%w", s.opts.SweepSpec, err)
	}
	s.entries = []cron.EntryID{processId, sweepId}
	s.cron = c
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started",
		zap.String("process", s.opts.ProcessSpec),
		zap.String("sweep", s.opts.SweepSpec))
	return nil
}

func (s *Scheduler) Stop() {
	s.lck.Lock()
	defer s.lck.Unlock()
	if !s.running {
		return
	}
	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = nil
	var stopCtx = s.cron.Stop()
	s.ctx.Cancel()
	select {
	case <-stopCtx.Done():
	case <-time.After(time.Second * 10):
		s.logger.Warn("scheduler stop timed out waiting for running jobs")
	}
	s.cron = nil
	s.running = false
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.lck.Lock()
	defer s.lck.Unlock()
	return s.running
}

// ProcessAll ticks every active campaign. Campaigns run concurrently up to
// the configured limit and are fault isolated: one campaign's failure is
// logged, the rest keep going.
func (s *Scheduler) ProcessAll(ctx context.Context) error {
	campaigns, err := s.campaigns.ListActive(ctx)
	if err != nil {
		return err
	}
	var g = new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for _, c := range campaigns {
		var id = c.Id
		g.Go(func() error {
			defer func() {
				if v := recover(); v != nil {
					s.logger.Error("campaign tick panicked",
						zap.String("campaign", id),
						zap.String("trace", errorx.Verbose().Newf("%v", v).Error()))
				}
			}()
			if err := s.processor.Process(ctx, id); err != nil {
				s.logger.Error("campaign tick failed", zap.String("campaign", id), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// RunNow processes one campaign immediately, bypassing the schedule.
func (s *Scheduler) RunNow(ctx context.Context, campaignId string) error {
	return s.processor.Process(ctx, campaignId)
}
