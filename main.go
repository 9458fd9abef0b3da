package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	cf "github.com/cs-au-dk/jpeval/analysis/classfile"
	"github.com/cs-au-dk/jpeval/analysis/classfile/asm"
	"github.com/cs-au-dk/jpeval/analysis/evaluator"
	"github.com/cs-au-dk/jpeval/analysis/invocation"
	"github.com/cs-au-dk/jpeval/utils"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()

	config, err := loadConfig()
	if err != nil {
		log.Fatalln(err)
	}

	// Warnings are shown by default. Instruction traces are debug output.
	verbosity := 0
	if opts.Verbose() || config.Trace {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	files := utils.InputFiles()
	if len(files) == 0 {
		log.Println("No " + utils.AsmExtension + " files found")
		return
	}

	p := pipeline{config: config}
	for _, file := range files {
		prog, err := asm.ParseFile(file)
		if err != nil {
			log.Println(color.RedString("Failed to assemble %s", file))
			log.Println(err)
			os.Exit(1)
		}
		p.inputs = append(p.inputs, input{file, prog})
	}

	switch {
	case task.IsEvaluate():
		results := p.run(p.evaluate)
		for _, r := range results {
			if r.output != "" {
				fmt.Println(r.output)
			}
		}
		gatherMetrics(results)
	case task.IsCfgToDot():
		gatherMetrics(p.run(p.cfgToDot))
	case task.IsSnapshot():
		results := p.run(p.snapshot)
		gatherMetrics(results)
		if err := p.writeSnapshots(results); err != nil {
			log.Fatalln(err)
		}
	case task.IsRecord():
		p.config.Recordings = invocation.NewRecordings()
		gatherMetrics(p.run(p.evaluateQuietly))
		if err := saveRecordings(p.config.Recordings, opts.Recordings()); err != nil {
			log.Fatalln(err)
		}
		log.Printf("Recorded %d member values to %s", p.config.Recordings.Len(), opts.Recordings())
	}
}

// loadConfig reads the -config file, if any, and applies the command line
// flags on top of it. Recordings for loading are attached per program.
func loadConfig() (evaluator.Config, error) {
	config := evaluator.DefaultConfig()
	if path := opts.ConfigPath(); path != "" {
		var err error
		config, err = evaluator.LoadConfig(path)
		if err != nil && !errors.Is(err, evaluator.ErrNoRecordings) {
			return config, err
		}
	}
	config = config.WithOpts()
	switch {
	case task.IsRecord():
		if opts.Recordings() == "" {
			return config, errors.New("recording needs a -recordings output file")
		}
		config.Invocation = evaluator.InvocationStoring
	case opts.Recordings() != "":
		config.Invocation = evaluator.InvocationLoading
	case config.Invocation == evaluator.InvocationLoading:
		return config, fmt.Errorf("%w: no -recordings file given", evaluator.ErrNoRecordings)
	}
	return config, nil
}

func saveRecordings(r *invocation.Recordings, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// selected reports whether the method matches the -method filter.
func selected(m *cf.Method) bool {
	filter := opts.Method()
	if filter == "" {
		return true
	}
	if !strings.Contains(filter, ".") {
		return m.Name == filter
	}
	return strings.HasPrefix(fmt.Sprintf("%s.%s", m.Class, m.Name), filter)
}
