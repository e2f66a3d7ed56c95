package vulkan

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/maiadx/openxr-app/engine/core"
)

// TeardownRank orders destruction. Lower ranks are released first, so every
// device child is gone before the device, and the device before the surface
// and instance.
type TeardownRank int

const (
	RankSync TeardownRank = iota
	RankFramebuffers
	RankSwapchain
	RankPipeline
	RankRenderPass
	RankDevice
	RankSurface
	RankDebugCallback
	RankInstance
)

func (r TeardownRank) String() string {
	switch r {
	case RankSync:
		return "sync"
	case RankFramebuffers:
		return "framebuffers"
	case RankSwapchain:
		return "swapchain"
	case RankPipeline:
		return "pipeline"
	case RankRenderPass:
		return "render pass"
	case RankDevice:
		return "device"
	case RankSurface:
		return "surface"
	case RankDebugCallback:
		return "debug callback"
	case RankInstance:
		return "instance"
	default:
		return "unknown"
	}
}

type teardownStage struct {
	rank    TeardownRank
	name    string
	release func() error
}

// Teardown collects release functions as objects are created and runs them
// by rank, not by registration order.
type Teardown struct {
	stages []teardownStage
	done   bool
}

// Register adds a release function. Within a rank, later registrations are
// released first.
func (t *Teardown) Register(rank TeardownRank, name string, release func() error) {
	t.stages = append(t.stages, teardownStage{rank: rank, name: name, release: release})
}

// Ranks lists the registered ranks in release order.
func (t *Teardown) Ranks() []TeardownRank {
	stages := t.ordered()
	ranks := make([]TeardownRank, len(stages))
	for i, s := range stages {
		ranks[i] = s.rank
	}
	return ranks
}

func (t *Teardown) ordered() []teardownStage {
	stages := make([]teardownStage, len(t.stages))
	// Reverse first so the stable sort keeps later registrations ahead
	// within a rank.
	for i, s := range t.stages {
		stages[len(t.stages)-1-i] = s
	}
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].rank < stages[j].rank
	})
	return stages
}

// Run releases everything once. It stops at the first failure, since later
// ranks depend on earlier ones being gone. The failed stage and those after
// it stay registered, so a later Run resumes there.
func (t *Teardown) Run() error {
	if t.done {
		return nil
	}

	stages := t.ordered()
	for i, stage := range stages {
		core.LogDebug("Releasing %s (%s).", stage.name, stage.rank)
		if err := stage.release(); err != nil {
			t.stages = t.stages[:0]
			for j := len(stages) - 1; j >= i; j-- {
				t.stages = append(t.stages, stages[j])
			}
			return errors.Wrapf(err, "release %s", stage.name)
		}
	}
	t.stages = nil
	t.done = true
	return nil
}
