package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	method       string
	outputFormat string
	configPath   string
	recordings   string
	values       string
	task         string
	parallelism  uint
	minlen       uint
	nodesep      float64
	metrics      bool
	noColorize   bool
	verbose      bool
	conservative bool
	evaluateAll  bool
	trace        bool
}

const (
	_EVALUATE = iota
	_CFG_TO_DOT
	_SNAPSHOT
	_RECORD
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%v", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"evaluate",
	"Partially evaluate every selected method and print the traced state at each offset",
}, {
	"cfg-to-dot",
	"Render the control-flow graph discovered by the evaluator",
}, {
	"snapshot",
	"Write the canonical CBOR snapshot of every evaluated method next to its input",
}, {
	"record",
	"Evaluate with a storing invocation unit and write the observed member values to -recordings",
}}

var values = []string{"generic", "particular", "identified"}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}

// SetNoColorize toggles colorization. Tests use it to get stable strings.
func (optInterface) SetNoColorize(b bool) {
	opts.noColorize = b
}

func (optInterface) Method() string {
	return opts.method
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) ConfigPath() string {
	return opts.configPath
}
func (optInterface) Recordings() string {
	return opts.recordings
}
func (optInterface) Values() string {
	return opts.values
}
func (optInterface) Parallelism() int {
	return int(opts.parallelism)
}
func (optInterface) Conservative() bool {
	return opts.conservative
}
func (optInterface) EvaluateAllCode() bool {
	return opts.evaluateAll
}
func (optInterface) Trace() bool {
	return opts.trace
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsEvaluate() bool {
	return opts.task == task[_EVALUATE].flag
}
func (taskInterface) IsCfgToDot() bool {
	return opts.task == task[_CFG_TO_DOT].flag
}
func (taskInterface) IsSnapshot() bool {
	return opts.task == task[_SNAPSHOT].flag
}
func (taskInterface) IsRecord() bool {
	return opts.task == task[_RECORD].flag
}
func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Metrics() bool {
	return opts.metrics
}
func (optInterface) Verbose() bool {
	return opts.verbose
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.StringVar(&(opts.method), "method", "", "only evaluate methods whose Class.name matches the given prefix.\n"+
		"- A simple name (without a class) matches methods of that name in any class.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for cfg-to-dot [svg | png | dot | lattice]")
	flag.StringVar(&(opts.configPath), "config", "", "path to a TOML file with evaluator settings; flags override it")
	flag.StringVar(&(opts.recordings), "recordings", "", "CBOR file with recorded member values (read when loading, written by -task record)")
	flag.StringVar(&(opts.values), "values", "", "value precision ["+strings.Join(values, " | ")+"]")
	flag.StringVar(&(opts.task), "task", task[_EVALUATE].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.UintVar(&(opts.parallelism), "j", 4, "number of methods evaluated in parallel")
	flag.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider output).")
	flag.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller output).")
	flag.BoolVar(&(opts.metrics), "metrics", false, "Enable collection of performance metrics for partial evaluation")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.conservative), "conservative", false, "forbid rewrites of certain failures (division by zero, null dereference)")
	flag.BoolVar(&(opts.evaluateAll), "all-code", false, "evaluate every exception handler, even when its range is unreachable")
	flag.BoolVar(&(opts.trace), "trace", false, "log every simulated instruction")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}
	if opts.values != "" {
		valid := false
		for _, v := range values {
			valid = valid || v == opts.values
		}
		if !valid {
			log.Fatalf("Value \"%s\" is not valid for -values", opts.values)
		}
	}
	if opts.parallelism == 0 {
		opts.parallelism = 1
	}
	if Opts().Task().IsCfgToDot() {
		opts.noColorize = true
	}
	if Opts().Task().IsRecord() && opts.recordings == "" {
		log.Fatal("-task record requires -recordings")
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
