package behavior

import (
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/config"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"
)

type Options struct {
	// chance of splicing filler after an eligible main step
	FillerProbability float64       `json:"filler_probability" validate:"gte=0,lte=1" default:"0.3"`
	FillerDelayMin    time.Duration `json:"filler_delay_min" validate:"gte=0" default:"2s"`
	FillerDelayMax    time.Duration `json:"filler_delay_max" validate:"gte=0" default:"8s"`
	CoverDelayMin     time.Duration `json:"cover_delay_min" validate:"gte=0" default:"5s"`
	CoverDelayMax     time.Duration `json:"cover_delay_max" validate:"gte=0" default:"20s"`
	MainDelayMin      time.Duration `json:"main_delay_min" validate:"gte=0" default:"1s"`
	MainDelayMax      time.Duration `json:"main_delay_max" validate:"gte=0" default:"4s"`
	// main step indices that additionally pull from the cover pool
	Checkpoints []int `json:"checkpoints"`
}

// Injector builds randomized action timelines that bury the real steps in
// organic-looking noise. All randomness flows through the injected source.
type Injector struct {
	opts *Options
	rand *utils.Rand
}

func New(opts *Options, rand *utils.Rand) *Injector {
	if opts == nil {
		opts = config.TryValidate(&Options{})
	}
	if len(opts.Checkpoints) == 0 {
		opts.Checkpoints = []int{0, 2}
	}
	if rand == nil {
		rand = utils.NewTimeRand()
	}
	return &Injector{opts: opts, rand: rand}
}

func (inj *Injector) isCheckpoint(index int) bool {
	for _, c := range inj.opts.Checkpoints {
		if c == index {
			return true
		}
	}
	return false
}

// drawWithoutReplacement picks n distinct entries from pool. The pool copy
// is shuffled in place so repeated splices inside one plan stay cheap.
func (inj *Injector) draw(pool []string, n int) []string {
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	var cpy = make([]string, len(pool))
	copy(cpy, pool)
	for i := 0; i < n; i++ {
		j := i + inj.rand.IntN(len(cpy)-i)
		cpy[i], cpy[j] = cpy[j], cpy[i]
	}
	return cpy[:n]
}

func (inj *Injector) splice(steps []model.BehaviorStep, pool []string, category model.StepCategory, afterIndex int, min, max time.Duration) []model.BehaviorStep {
	var count = 1 + inj.rand.IntN(2)
	for _, name := range inj.draw(pool, count) {
		steps = append(steps, model.BehaviorStep{
			Order:          len(steps) + 1,
			Category:       category,
			Name:           name,
			Delay:          inj.rand.DurationBetween(min, max),
			AfterStepIndex: afterIndex,
		})
	}
	return steps
}

// Plan interleaves the main steps with filler and cover actions. Filler is
// spliced probabilistically after every main step except the last two;
// cover is spliced at the fixed checkpoint indices regardless.
func (inj *Injector) Plan(mainSteps, coverPool, fillerPool []string) *model.BehaviorPlan {
	var steps []model.BehaviorStep
	for i, name := range mainSteps {
		steps = append(steps, model.BehaviorStep{
			Order:          len(steps) + 1,
			Category:       model.StepMain,
			Name:           name,
			Delay:          inj.rand.DurationBetween(inj.opts.MainDelayMin, inj.opts.MainDelayMax),
			AfterStepIndex: i,
		})
		if inj.isCheckpoint(i) {
			steps = inj.splice(steps, coverPool, model.StepCover, i, inj.opts.CoverDelayMin, inj.opts.CoverDelayMax)
		}
		if i < len(mainSteps)-2 && inj.rand.Float64() < inj.opts.FillerProbability {
			steps = inj.splice(steps, fillerPool, model.StepFiller, i, inj.opts.FillerDelayMin, inj.opts.FillerDelayMax)
		}
	}
	return &model.BehaviorPlan{Steps: steps, Summary: summarize(steps)}
}

func summarize(steps []model.BehaviorStep) model.BehaviorSummary {
	var s model.BehaviorSummary
	for _, step := range steps {
		switch step.Category {
		case model.StepMain:
			s.MainCount++
		case model.StepCover:
			s.CoverCount++
		case model.StepFiller:
			s.FillerCount++
		}
		s.TotalDuration += step.Delay
	}
	var total = s.MainCount + s.CoverCount + s.FillerCount
	if total > 0 {
		s.Naturalness = float64(s.CoverCount+s.FillerCount) / float64(total)
	}
	return s
}
