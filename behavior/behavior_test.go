package behavior

import (
	"testing"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"
)

var mainSteps = []string{"open-post", "read-comments", "write-comment", "submit"}
var coverPool = []string{"scroll-feed", "view-story", "open-notifications"}
var fillerPool = []string{"hover-photo", "expand-replies", "scroll-comments"}

func testOptions(p float64) *Options {
	return &Options{
		FillerProbability: p,
		FillerDelayMin:    time.Second,
		FillerDelayMax:    2 * time.Second,
		CoverDelayMin:     time.Second,
		CoverDelayMax:     2 * time.Second,
		MainDelayMin:      time.Second,
		MainDelayMax:      2 * time.Second,
		Checkpoints:       []int{0, 2},
	}
}

func countByCategory(steps []model.BehaviorStep) map[model.StepCategory]int {
	var counts = make(map[model.StepCategory]int)
	for _, s := range steps {
		counts[s.Category]++
	}
	return counts
}

func TestPlanKeepsMainOrder(t *testing.T) {
	var inj = New(testOptions(0.5), utils.NewRand(7))
	var plan = inj.Plan(mainSteps, coverPool, fillerPool)
	var got []string
	for _, s := range plan.Steps {
		if s.Category == model.StepMain {
			got = append(got, s.Name)
		}
	}
	if len(got) != len(mainSteps) {
		t.Fatalf("main count %d", len(got))
	}
	for i := range mainSteps {
		if got[i] != mainSteps[i] {
			t.Fatalf("main order broken at %d: %v", i, got)
		}
	}
}

func TestPlanZeroProbabilityNoFiller(t *testing.T) {
	var inj = New(testOptions(0), utils.NewRand(7))
	for i := 0; i < 20; i++ {
		var counts = countByCategory(inj.Plan(mainSteps, coverPool, fillerPool).Steps)
		if counts[model.StepFiller] != 0 {
			t.Fatalf("filler injected with p=0: %v", counts)
		}
	}
}

func TestPlanCertainProbabilityFillsEligibleSteps(t *testing.T) {
	var inj = New(testOptions(1), utils.NewRand(7))
	var plan = inj.Plan(mainSteps, coverPool, fillerPool)
	var perStep = make(map[int]int)
	for _, s := range plan.Steps {
		if s.Category == model.StepFiller {
			perStep[s.AfterStepIndex]++
		}
	}
	// the final two main steps stay clean so the mutation lands promptly
	for i := len(mainSteps) - 2; i < len(mainSteps); i++ {
		if perStep[i] != 0 {
			t.Fatalf("filler after protected step %d", i)
		}
	}
	for i := 0; i < len(mainSteps)-2; i++ {
		if perStep[i] < 1 || perStep[i] > 2 {
			t.Fatalf("step %d spliced %d filler entries", i, perStep[i])
		}
	}
}

func TestPlanCoverAtCheckpoints(t *testing.T) {
	var inj = New(testOptions(0), utils.NewRand(3))
	var plan = inj.Plan(mainSteps, coverPool, fillerPool)
	var at = make(map[int]int)
	for _, s := range plan.Steps {
		if s.Category == model.StepCover {
			at[s.AfterStepIndex]++
		}
	}
	if at[0] == 0 || at[2] == 0 {
		t.Fatalf("cover missing at checkpoints: %v", at)
	}
	if at[1] != 0 || at[3] != 0 {
		t.Fatalf("cover outside checkpoints: %v", at)
	}
}

func TestPlanSeededDeterminism(t *testing.T) {
	var a = New(testOptions(0.5), utils.NewRand(42)).Plan(mainSteps, coverPool, fillerPool)
	var b = New(testOptions(0.5), utils.NewRand(42)).Plan(mainSteps, coverPool, fillerPool)
	if len(a.Steps) != len(b.Steps) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Steps), len(b.Steps))
	}
	for i := range a.Steps {
		if a.Steps[i] != b.Steps[i] {
			t.Fatalf("step %d differs: %+v vs %+v", i, a.Steps[i], b.Steps[i])
		}
	}
}

func TestPlanDelaysWithinBounds(t *testing.T) {
	var opts = testOptions(1)
	var plan = New(opts, utils.NewRand(11)).Plan(mainSteps, coverPool, fillerPool)
	for _, s := range plan.Steps {
		if s.Delay < time.Second || s.Delay > 2*time.Second {
			t.Fatalf("step %+v delay out of range", s)
		}
	}
}

func TestDrawWithoutReplacement(t *testing.T) {
	var inj = New(testOptions(0), utils.NewRand(5))
	var picked = inj.draw(coverPool, 3)
	var seen = make(map[string]bool)
	for _, name := range picked {
		if seen[name] {
			t.Fatalf("duplicate %q", name)
		}
		seen[name] = true
	}
	if len(picked) != 3 {
		t.Fatalf("got %d", len(picked))
	}
	if got := inj.draw(coverPool, 10); len(got) != len(coverPool) {
		t.Fatalf("overdraw returned %d", len(got))
	}
	if got := inj.draw(nil, 2); got != nil {
		t.Fatalf("empty pool returned %v", got)
	}
}

func TestSummary(t *testing.T) {
	var plan = New(testOptions(1), utils.NewRand(9)).Plan(mainSteps, coverPool, fillerPool)
	var s = plan.Summary
	if s.MainCount != len(mainSteps) {
		t.Fatalf("main count %d", s.MainCount)
	}
	if s.CoverCount == 0 || s.FillerCount == 0 {
		t.Fatalf("expected noise: %+v", s)
	}
	var total = s.MainCount + s.CoverCount + s.FillerCount
	var want = float64(s.CoverCount+s.FillerCount) / float64(total)
	if s.Naturalness != want {
		t.Fatalf("naturalness %f want %f", s.Naturalness, want)
	}
	if s.TotalDuration <= 0 {
		t.Fatal("total duration not accumulated")
	}
}
