package evaluator

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cs-au-dk/jpeval/analysis/branch"
	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/analysis/value"
	"github.com/cs-au-dk/jpeval/utils"
)

var (
	ErrConfig = errors.New("invalid configuration")
	// ErrNoRecordings is wrapped by ErrConfig when a loading configuration
	// has no recordings attached.
	ErrNoRecordings = errors.New("loading invocations need recordings")
)

const (
	ValuesGeneric    = "generic"
	ValuesParticular = "particular"
	ValuesIdentified = "identified"

	BranchingBasic  = "basic"
	BranchingTraced = "traced"

	InvocationBasic   = "basic"
	InvocationTracing = "tracing"
	InvocationStoring = "storing"
	InvocationLoading = "loading"
)

// Config selects the components of an evaluator. It is passed by value at
// construction and does not change afterwards.
type Config struct {
	// Values selects the value factory: generic, particular or identified.
	Values string `toml:"values"`
	// Branching selects the branch unit. A basic unit follows every arm of
	// a conditional, a traced unit prunes arms that are never taken.
	Branching string `toml:"branching"`
	// Invocation selects the semantics of member accesses: basic, tracing,
	// storing or loading.
	Invocation string `toml:"invocation"`
	// TraceReferences attaches provenance to reference values.
	TraceReferences bool `toml:"trace-references"`
	// Conservative makes clients keep instructions whose failure is certain.
	Conservative bool `toml:"conservative"`
	// EvaluateAllCode evaluates every exception handler, also when its try
	// range is unreachable.
	EvaluateAllCode bool `toml:"evaluate-all-code"`
	// Trace logs every simulated instruction.
	Trace bool `toml:"trace"`

	// Recordings are written to by a storing and read by a loading
	// evaluator.
	Recordings *invocation.Recordings `toml:"-"`
}

// DefaultConfig evaluates with particular values and traced branches.
func DefaultConfig() Config {
	return Config{
		Values:     ValuesParticular,
		Branching:  BranchingTraced,
		Invocation: InvocationBasic,
	}
}

// ConfigFromOpts builds a configuration from the command line options.
func ConfigFromOpts() Config {
	return DefaultConfig().WithOpts()
}

// WithOpts overrides c with the settings given on the command line.
func (c Config) WithOpts() Config {
	opts := utils.Opts()
	if v := opts.Values(); v != "" {
		c.Values = v
	}
	c.Conservative = c.Conservative || opts.Conservative()
	c.EvaluateAllCode = c.EvaluateAllCode || opts.EvaluateAllCode()
	c.Trace = c.Trace || opts.Trace()
	return c
}

// LoadConfig reads a TOML configuration file. Unset keys keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("cannot read %s: %w", path, err)
	}
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return c, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return c, fmt.Errorf("%w: %s: unknown key %s", ErrConfig, path, undecoded[0])
	}
	return c, c.Validate()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Values == "" {
		c.Values = d.Values
	}
	if c.Branching == "" {
		c.Branching = d.Branching
	}
	if c.Invocation == "" {
		c.Invocation = d.Invocation
	}
	return c
}

// Validate checks the component names. Empty names select the defaults.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch c.Values {
	case ValuesGeneric, ValuesParticular, ValuesIdentified:
	default:
		return fmt.Errorf("%w: unknown values %q", ErrConfig, c.Values)
	}
	switch c.Branching {
	case BranchingBasic, BranchingTraced:
	default:
		return fmt.Errorf("%w: unknown branching %q", ErrConfig, c.Branching)
	}
	switch c.Invocation {
	case InvocationBasic, InvocationTracing, InvocationStoring:
	case InvocationLoading:
		if c.Recordings == nil {
			return fmt.Errorf("%w: %w", ErrConfig, ErrNoRecordings)
		}
	default:
		return fmt.Errorf("%w: unknown invocation %q", ErrConfig, c.Invocation)
	}
	return nil
}

func (c Config) factory(h value.Hierarchy) value.Factory {
	var f value.Factory
	switch c.Values {
	case ValuesGeneric:
		f = value.NewGeneric(h)
	case ValuesIdentified:
		f = value.NewIdentified(h)
	default:
		f = value.NewParticular(h)
	}
	if c.TraceReferences {
		f = value.NewReferenceTracing(f)
	}
	return f
}

func (c Config) branchUnit() branch.Unit {
	if c.Branching == BranchingBasic {
		return branch.NewBasic()
	}
	return branch.NewTraced()
}

// semantics stacks the invocation decorators. Tracing is outermost so that
// recorded and loaded values also carry their provenance.
func (c Config) semantics(prog *cf.Program, f value.Factory) invocation.Semantics {
	var s invocation.Semantics = invocation.NewBasic(f)
	switch c.Invocation {
	case InvocationStoring:
		s = invocation.NewStoring(s, c.Recordings, prog)
	case InvocationLoading:
		s = invocation.NewLoading(s, c.Recordings, prog)
	}
	if c.Invocation == InvocationTracing || c.TraceReferences {
		s = invocation.NewTracing(s)
	}
	return s
}
