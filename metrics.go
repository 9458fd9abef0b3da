package main

import (
	"fmt"
	"time"
)

// Encoding of method outcomes.
var (
	OUTCOME_EVALUATED = "Evaluated"
	OUTCOME_FAILED    = "Failed"
	OUTCOME_PANIC     = "Panicked"
	OUTCOME_SKIP      = "Skipped"
)

func gatherMetrics(results []*result) {
	if !opts.Metrics() || len(results) == 0 {
		return
	}

	var (
		total         time.Duration
		instructions  int
		traced        int
		simulations   int
		outcomes      = map[string]int{}
		failedMethods []*result
	)

	msg := "================ Results =====================\n\n"

	for _, r := range results {
		outcomes[r.Outcome]++
		msg += "Method: " + r.method.String() + "\n"
		msg += "Outcome: " + r.Outcome + "\n"

		switch r.Outcome {
		case OUTCOME_SKIP:
			msg += "Method finished\n\n"
			continue
		case OUTCOME_PANIC, OUTCOME_FAILED:
			failedMethods = append(failedMethods, r)
			msg += r.Error() + "\nMethod finished\n\n"
			continue
		}

		total += r.time
		instructions += len(r.method.Code)
		traced += r.stats.Traced
		simulations += r.stats.Simulations

		msg += "Time: " + r.Performance() + "\n"
		msg += fmt.Sprintf("Traced instructions: %d/%d\n", r.stats.Traced, len(r.method.Code))
		msg += fmt.Sprintf("Simulations: %d\n", r.stats.Simulations)
		msg += fmt.Sprintf("Generalizations: %d\n", r.stats.Generalizations)
		if r.stats.HandlerRounds > 0 {
			msg += fmt.Sprintf("Handler rounds: %d\n", r.stats.HandlerRounds)
		}
		if r.stats.DivisionFailures > 0 {
			msg += fmt.Sprintf("Division failures: %d\n", r.stats.DivisionFailures)
		}
		msg += fmt.Sprintf("Max stack size: %d\n", r.stats.MaxStackSize)
		msg += "Method finished\n\n"
	}

	msg += fmt.Sprintf("Methods: %d (", len(results))
	for i, outcome := range []string{OUTCOME_EVALUATED, OUTCOME_FAILED, OUTCOME_PANIC, OUTCOME_SKIP} {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s: %d", outcome, outcomes[outcome])
	}
	msg += ")\n"
	msg += "Instructions covered: " + fmt.Sprint(traced) + "/" + fmt.Sprint(instructions) + "\n"
	msg += "Total simulations: " + fmt.Sprint(simulations) + "\n"
	msg += "Total time: " + total.String() + "\n"
	if len(failedMethods) > 0 {
		msg += "Not evaluated: {\n"
		for _, r := range failedMethods {
			msg += "  " + r.method.String() + "\n"
		}
		msg += "}\n"
	}
	msg += "================ Results ====================="
	fmt.Println(msg)
}
