package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/cs-au-dk/jpeval/analysis/checks"
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/analysis/flowgraph"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/utils"
	"github.com/cs-au-dk/jpeval/utils/dot"
)

var plog = commonlog.GetLogger("jpeval.pipeline")

type (
	// input is one assembled file.
	input struct {
		file string
		prog *cf.Program
	}

	// pipeline evaluates the selected methods of all inputs.
	pipeline struct {
		inputs []input
		config evaluator.Config
	}

	// job is one method to evaluate. Jobs are numbered in input order.
	job struct {
		index  int
		in     *input
		method *cf.Method
	}

	// result is the outcome of a job.
	result struct {
		job
		Outcome string
		time    time.Duration
		stats   evaluator.Stats
		err     error

		output   string
		snapshot evaluator.MethodSnapshot
	}

	// taskFunc runs on a method after it has been evaluated by e.
	taskFunc func(e *evaluator.Evaluator, r *result) error
)

func (r *result) Performance() string {
	return r.time.String()
}

func (r *result) Error() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

// configFor attaches the recordings of the input when loading.
func (p *pipeline) configFor(in *input) (evaluator.Config, error) {
	config := p.config
	if config.Invocation != evaluator.InvocationLoading || config.Recordings != nil {
		return config, nil
	}
	recordings, err := invocation.ReadRecordings(opts.Recordings(), in.prog)
	if err != nil {
		return config, fmt.Errorf("cannot read recordings for %s: %w", in.file, err)
	}
	config.Recordings = recordings
	return config, nil
}

// jobs lists the selected methods with code.
func (p *pipeline) jobs() (jobs []job) {
	for i := range p.inputs {
		in := &p.inputs[i]
		for _, m := range in.prog.Methods() {
			if selected(m) {
				jobs = append(jobs, job{len(jobs), in, m})
			}
		}
	}
	return
}

// run evaluates every selected method on opts.Parallelism() workers and
// applies do to each evaluated method. Results are in job order. Failing
// methods are logged and skipped.
func (p *pipeline) run(do taskFunc) []*result {
	jobs := p.jobs()
	results := make([]*result, len(jobs))

	configs := make(map[*input]evaluator.Config, len(p.inputs))
	for i := range p.inputs {
		in := &p.inputs[i]
		config, err := p.configFor(in)
		if err != nil {
			log.Fatalln(err)
		}
		configs[in] = config
	}

	workers := opts.Parallelism()
	if workers < 1 {
		workers = 1
	}
	log.Printf("Evaluating %d methods on %d workers...", len(jobs), workers)

	queue := make(chan job)
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Evaluators are reused for all methods of the same program.
			evaluators := map[*input]*evaluator.Evaluator{}
			for j := range queue {
				e, ok := evaluators[j.in]
				if !ok {
					e = evaluator.New(j.in.prog, configs[j.in])
					evaluators[j.in] = e
				}
				results[j.index] = runJob(e, j, do)
			}
		}()
	}
	for _, j := range jobs {
		queue <- j
	}
	close(queue)
	wg.Wait()

	log.Println("Evaluation done")
	return results
}

func runJob(e *evaluator.Evaluator, j job, do taskFunc) (r *result) {
	r = &result{job: j}
	if len(j.method.Code) == 0 {
		r.Outcome = OUTCOME_SKIP
		return
	}

	start := time.Now()
	defer func() {
		r.time = time.Since(start)
		if err := recover(); err != nil {
			r.Outcome = OUTCOME_PANIC
			r.err = fmt.Errorf("%v", err)
			plog.Errorf("%s: %v", j.method, err)
		}
	}()

	if err := e.Evaluate(j.method); err != nil {
		r.Outcome = OUTCOME_FAILED
		r.err = err
		plog.Warningf("skipping %s: %v", j.method, err)
		return
	}
	r.stats = e.Stats()
	if err := do(e, r); err != nil {
		r.Outcome = OUTCOME_FAILED
		r.err = err
		plog.Warningf("%s: %v", j.method, err)
		return
	}
	r.Outcome = OUTCOME_EVALUATED
	return
}

// evaluate lists the traced states and the findings of every method.
func (p *pipeline) evaluate(e *evaluator.Evaluator, r *result) error {
	b := &strings.Builder{}
	if err := e.Dump(b); err != nil {
		return err
	}
	findings := checks.Analyze(e)
	if len(findings) > 0 {
		b.WriteString("Findings:\n")
		for _, f := range findings {
			fmt.Fprintln(b, "  "+f.String())
		}
	}
	r.output = b.String()
	return nil
}

func (p *pipeline) evaluateQuietly(*evaluator.Evaluator, *result) error {
	return nil
}

// methodFileName turns a method into a file name component.
func methodFileName(m *cf.Method) string {
	return strings.NewReplacer("/", "_", "<", "", ">", "", "(", "-", ")", "-", ";", "", "[", "A").
		Replace(m.Class + "." + m.Name + m.Descriptor)
}

// cfgToDot writes the basic block graph of every method next to its input,
// in the format given by -format.
func (p *pipeline) cfgToDot(e *evaluator.Evaluator, r *result) error {
	G := flowgraph.New(e)
	base := utils.OutputPath(r.in.file, "."+methodFileName(r.method))

	buf := &bytes.Buffer{}
	switch format := opts.OutputFormat(); format {
	case "lattice":
		buf.WriteString(flowgraph.LatticeDOT(r.method.String(), G))
	default:
		if err := G.WriteDot(buf); err != nil {
			return err
		}
		if format != "dot" {
			img, err := dot.DotToImage(base, format, buf.Bytes())
			if err != nil {
				return err
			}
			log.Println("Wrote", img)
			return nil
		}
	}

	out := base + ".dot"
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Println("Wrote", out)
	return nil
}

// snapshot keeps the traced states of the method for writeSnapshots.
func (p *pipeline) snapshot(e *evaluator.Evaluator, r *result) error {
	r.snapshot = e.MethodSnapshot()
	return nil
}

// writeSnapshots writes the snapshots of each input to a canonical CBOR
// file next to it.
func (p *pipeline) writeSnapshots(results []*result) error {
	byInput := map[*input][]evaluator.MethodSnapshot{}
	for _, r := range results {
		if r.Outcome == OUTCOME_EVALUATED {
			byInput[r.in] = append(byInput[r.in], r.snapshot)
		}
	}
	for i := range p.inputs {
		in := &p.inputs[i]
		snaps, ok := byInput[in]
		if !ok {
			continue
		}
		data, err := utils.CanonicalCBOR.Marshal(snaps)
		if err != nil {
			return err
		}
		out := utils.OutputPath(in.file, ".snapshot.cbor")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		log.Printf("Wrote %d method snapshots to %s", len(snaps), out)
	}
	return nil
}
