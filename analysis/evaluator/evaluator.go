// Package evaluator computes, for every instruction of a method, the
// abstract stack and local variables that hold whenever the instruction
// executes. States eventually stabilize because values only grow more
// general when control flow merges.
package evaluator

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/tliron/commonlog"

	"github.com/cs-au-dk/jpeval/analysis/branch"
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/frame"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/analysis/processor"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/utils"
	"github.com/cs-au-dk/jpeval/utils/pq"
)

var (
	ErrFallOff = errors.New("control falls off the end of the code")
	ErrTarget  = errors.New("control transfer to an invalid offset")
)

var log = commonlog.GetLogger("jpeval.evaluator")

// Error reports a failed evaluation. Offset is -1 for failures that are
// not tied to an instruction.
type Error struct {
	Method *cf.Method
	Offset int
	Err    error
}

func (e *Error) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s at offset %d: %v", e.Method, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Stats summarizes the work of the last evaluation.
type Stats struct {
	// Traced is the number of reachable instructions.
	Traced int
	// Simulations counts instruction simulations, including repeated ones.
	Simulations int
	// Generalizations counts merges that changed a before-state.
	Generalizations int
	// HandlerRounds counts re-evaluations caused by exception handlers.
	HandlerRounds int
	// DivisionFailures counts divisions by a particular zero.
	DivisionFailures int
	// MaxStackSize is the largest observed stack size, in slots.
	MaxStackSize int
}

// state holds what is known about one instruction offset.
type state struct {
	varsBefore  *frame.TracedVariables
	stackBefore *frame.TracedStack
	varsAfter   *frame.TracedVariables
	stackAfter  *frame.TracedStack

	// targets are the branch targets reported by the branch unit, and
	// successors additionally include fall-through.
	targets    value.InstructionOffsetValue
	successors value.InstructionOffsetValue
	origins    value.InstructionOffsetValue

	branched    bool
	handler     bool
	simulations int
}

// Evaluator is a partial evaluator for single methods. An instance is not
// safe for concurrent use; evaluate different methods in parallel on
// separate instances.
type Evaluator struct {
	prog   *cf.Program
	config Config

	factory   value.Factory
	branch    branch.Unit
	invoke    *invocation.Unit
	processor *processor.Processor
	tracers   []invocation.OffsetTracer

	method   *cf.Method
	index    []cf.Instruction
	states   []*state
	entry    *frame.TracedVariables
	worklist pq.PriorityQueue[int]
	current  int

	subroutines map[int]*subroutine
	// returnSites maps return addresses to the jsr that pushes them.
	returnSites map[int]int

	stats Stats
}

// New creates an evaluator for the methods of prog. It panics if the
// configuration is invalid.
func New(prog *cf.Program, config Config) *Evaluator {
	config = config.withDefaults()
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if config.Invocation == InvocationStoring && config.Recordings == nil {
		config.Recordings = invocation.NewRecordings()
	}

	var h value.Hierarchy
	if prog != nil {
		h = prog
	}

	e := &Evaluator{
		prog:     prog,
		config:   config,
		factory:  config.factory(h),
		branch:   config.branchUnit(),
		worklist: pq.Empty(func(a, b int) bool { return a < b }),
	}
	semantics := config.semantics(prog, e.factory)
	e.invoke = invocation.NewUnit(semantics)
	e.processor = processor.New(e.factory, e.branch, e.invoke)

	if t, ok := e.factory.(invocation.OffsetTracer); ok {
		e.tracers = append(e.tracers, t)
	}
	if t, ok := semantics.(invocation.OffsetTracer); ok {
		e.tracers = append(e.tracers, t)
	}
	return e
}

// Reset discards the results of the last evaluation and prepares storage
// for code of the given length.
func (e *Evaluator) Reset(capacity int) {
	if cap(e.states) < capacity {
		e.states = make([]*state, capacity)
	} else {
		e.states = e.states[:capacity]
		for i := range e.states {
			e.states[i] = nil
		}
	}
	e.worklist.Clear()
	e.subroutines = map[int]*subroutine{}
	e.returnSites = map[int]int{}
	e.method, e.index, e.entry = nil, nil, nil
	e.current = -1
	e.stats = Stats{}
	e.processor.DivisionFailures = 0
	e.factory.Reset()
}

// Evaluate computes the states of every instruction of m. A malformed
// method, or a violated operand contract during simulation, is reported as
// an *Error.
func (e *Evaluator) Evaluate(m *cf.Method) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = e.recovered(r)
		}
		e.stats.DivisionFailures = e.processor.DivisionFailures
	}()

	if err := e.begin(m); err != nil {
		return err
	}
	if err := e.drain(); err != nil {
		return err
	}
	if err := e.handlers(); err != nil {
		return err
	}
	e.collectSubroutines()

	for _, st := range e.states {
		if st != nil {
			e.stats.Traced++
		}
	}
	return nil
}

// begin prepares the evaluation of m and schedules its first instruction
// with the parameters stored in the variables.
func (e *Evaluator) begin(m *cf.Method) error {
	e.Reset(m.CodeLength())
	e.method = m
	if err := m.Validate(); err != nil {
		return &Error{m, -1, err}
	}
	e.index = m.Index()
	e.processor.Method = m

	log.Debugf("evaluating %s", m)

	vars := frame.NewTracedVariables(m.MaxLocals)
	e.trace(0)
	if err := e.invoke.EnterMethod(m, vars); err != nil {
		return &Error{m, -1, err}
	}
	e.entry = vars.Copy()
	_, err := e.merge(0, -1, false, vars, frame.NewTracedStack(m.MaxStack))
	return err
}

func (e *Evaluator) recovered(r any) error {
	switch r := r.(type) {
	case runtime.Error:
		panic(r)
	case error:
		return &Error{e.method, e.current, r}
	}
	panic(r)
}

// trace points the provenance of values created from now on to offset.
func (e *Evaluator) trace(offset int) {
	for _, t := range e.tracers {
		t.SetTraceOffset(offset)
	}
}

func (e *Evaluator) drain() error {
	for !e.worklist.IsEmpty() {
		if err := e.simulate(e.worklist.GetNext()); err != nil {
			return err
		}
	}
	return nil
}

// simulate runs the instruction at offset on a copy of its before-state
// and merges the result into its successors.
func (e *Evaluator) simulate(offset int) error {
	m := e.method
	st := e.states[offset]
	ins := e.index[offset]
	e.current = offset
	st.simulations++
	e.stats.Simulations++

	vars := st.varsBefore.Copy()
	stack := st.stackBefore.Copy()
	producer := value.NewOffsets(offset)
	vars.SetProducerValue(producer)
	stack.SetProducerValue(producer)
	e.trace(offset)
	e.branch.Reset()

	if e.config.Trace {
		log.Debugf("%s %s vars %s stack %s", utils.OffsetString(offset), utils.InsString(ins), vars, stack)
	}

	if err := e.processor.Process(ins, stack, vars); err != nil {
		return &Error{m, offset, err}
	}
	if size := stack.Size(); size > e.stats.MaxStackSize {
		e.stats.MaxStackSize = size
	}

	if st.varsAfter == nil {
		st.varsAfter, st.stackAfter = vars.Copy(), stack.Copy()
	} else {
		st.varsAfter.Generalize(vars, false)
		st.stackAfter.Generalize(stack)
	}

	var successors value.InstructionOffsetValue
	branched := e.branch.WasCalled()
	if branched {
		successors = e.branch.Targets()
		st.targets = st.targets.Union(successors)
		st.branched = true
	} else {
		next := cf.Next(ins)
		if next >= len(e.index) {
			return &Error{m, offset, ErrFallOff}
		}
		successors = value.NewOffsets(next)
	}
	st.successors = st.successors.Union(successors)

	e.subroutineFacts(offset, ins, successors)

	for _, target := range successors.Offsets() {
		if _, err := e.merge(target, offset, branched, vars, stack); err != nil {
			return err
		}
	}
	return nil
}

// merge generalizes the before-state at target with the given frames and
// schedules target if its state changed. A negative origin marks the
// method entry and exception handlers.
func (e *Evaluator) merge(target, origin int, branched bool, vars *frame.TracedVariables, stack *frame.TracedStack) (bool, error) {
	if target < 0 || target >= len(e.index) || e.index[target] == nil {
		at := origin
		if at < 0 {
			at = target
		}
		return false, &Error{e.method, at, fmt.Errorf("%w: %d", ErrTarget, target)}
	}

	changed := false
	st := e.states[target]
	if st == nil {
		st = &state{varsBefore: vars.Copy(), stackBefore: stack.Copy()}
		e.states[target] = st
		changed = true
	} else {
		varsChanged := st.varsBefore.Generalize(vars, false)
		stackChanged := st.stackBefore.Generalize(stack)
		if varsChanged || stackChanged {
			e.stats.Generalizations++
			changed = true
		}
	}
	if branched && origin >= 0 {
		st.origins = st.origins.Add(value.Origin{Offset: origin})
	}
	if changed {
		e.worklist.Add(target)
	}
	return changed, nil
}

// handlers enters every exception handler whose try range was reached,
// until the handler states no longer change.
func (e *Evaluator) handlers() error {
	m := e.method
	for {
		changed := false
		for _, h := range m.ExceptionTable {
			vars := e.rangeVariables(h)
			if vars == nil {
				continue
			}

			e.current = h.Handler
			e.trace(h.Handler)
			stack := frame.NewTracedStack(m.MaxStack)
			stack.SetProducerValue(value.NewOrigins(value.Origin{Offset: h.Handler, Kind: value.OriginExceptionHandler}))
			e.invoke.EnterExceptionHandler(m, h, stack)

			c, err := e.merge(h.Handler, -1, false, vars, stack)
			if err != nil {
				return err
			}
			e.states[h.Handler].handler = true
			changed = changed || c
		}
		if !changed {
			return nil
		}
		e.stats.HandlerRounds++
		if err := e.drain(); err != nil {
			return err
		}
	}
}

// rangeVariables joins the variables before every traced instruction in
// the try range of h. It returns nil if none is traced, unless all code is
// evaluated.
func (e *Evaluator) rangeVariables(h cf.ExceptionHandler) *frame.TracedVariables {
	var vars *frame.TracedVariables
	for offset := h.Start; offset < h.End && offset < len(e.states); offset++ {
		st := e.states[offset]
		if st == nil {
			continue
		}
		if vars == nil {
			vars = st.varsBefore.Copy()
		} else {
			vars.Generalize(st.varsBefore, false)
		}
	}
	if vars == nil && e.config.EvaluateAllCode {
		vars = e.entry.Copy()
	}
	return vars
}
