package planner

import (
	"sort"
	"strings"

	"github.com/ibuild/ib/internal/ibex"
	"github.com/ibuild/ib/internal/job"
	"github.com/ibuild/ib/internal/spec"
)

// YieldWaves computes the ordered sequence of job batches needed to produce
// every spec in outputs, where each wave's jobs may run in parallel but
// must wait for every prior wave. A spec becomes ready once its input (if
// any) has already been made, and becoming ready may pull in new pending
// specs via its plan's input spec or the header-implies-object rule, so the
// inner loop keeps draining newly discovered specs before a wave is cut.
func (p *Planner) YieldWaves(outputs []spec.Spec) ([][]*job.Job, error) {
	for _, s := range outputs {
		pl, err := p.GetPlan(s)
		if err != nil {
			return nil, err
		}
		if !pl.Doable() {
			return nil, ibex.New(ibex.Plan, "%s is not doable: %s", s.Relpath(), pl.Desc())
		}
	}

	old := map[spec.Spec]bool{}
	pending := map[spec.Spec]bool{}
	for _, s := range outputs {
		old[s] = true
		pending[s] = true
	}

	var waves [][]*job.Job
	for {
		ready := map[spec.Spec]bool{}
		unready := map[spec.Spec]bool{}

		for len(pending) > 0 {
			discovered := map[spec.Spec]bool{}
			for s := range pending {
				pl, err := p.GetPlan(s)
				if err != nil {
					return nil, err
				}
				if inputSpec, ok := pl.InputSpec(); ok && !old[inputSpec] {
					discovered[inputSpec] = true
				}
				if pl.IsReady(p) {
					ready[s] = true
					for _, implied := range pl.ImpliedSpecs(p) {
						if !old[implied] {
							discovered[implied] = true
						}
					}
				} else {
					unready[s] = true
				}
			}
			for s := range discovered {
				old[s] = true
			}
			pending = discovered
		}

		if len(ready) == 0 {
			if len(unready) == 0 {
				break
			}
			names := make([]string, 0, len(unready))
			for s := range unready {
				names = append(names, s.Relpath())
			}
			sort.Strings(names)
			return waves, ibex.New(ibex.NoProgress, "no progress on %s", strings.Join(names, ", "))
		}

		seen := map[*job.Job]bool{}
		var jobs []*job.Job
		readyList := make([]spec.Spec, 0, len(ready))
		for s := range ready {
			readyList = append(readyList, s)
		}
		sort.Slice(readyList, func(i, j int) bool { return readyList[i].Relpath() < readyList[j].Relpath() })
		for _, s := range readyList {
			pl, _ := p.GetPlan(s)
			if j := pl.Job(); j != nil && !seen[j] {
				seen[j] = true
				jobs = append(jobs, j)
			}
		}
		if len(jobs) > 0 {
			waves = append(waves, jobs)
		}

		for s := range ready {
			p.made[s] = true
		}
		pending = unready
	}
	return waves, nil
}
