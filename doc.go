/*
Package qcal is a training environment for calibrating a parametrized quantum operation
in the context of the circuit it runs in.

A context is a fixed instruction sequence containing one or more occurrences of a target
operation. For every occurrence the environment derives a truncation: the minimal
sub-program holding the operations that causally precede the occurrence on the target
qubits and their neighbors. The custom version of a truncation replaces each target
instance up to the occurrence with a parametrized operation built by a Parametrizer.

An episode selects one truncation and accepts one action batch per target instance it
contains. The last Step executes the custom program with all accumulated actions and
turns the scores into the reward -ln(1-score).

# Usage

	env, err := qcal.New(simulator.New(simulator.Config{}), domain.Pattern{Name: "cx", Qubits: []int{0, 1}},
		qcal.Options{BatchSize: 8, ActionDim: 1, StepsPerOccurrence: 100, NReps: 1})
	if err != nil {
		log.Fatal(err)
	}
	if err := env.SetContext(ctx, program); err != nil {
		log.Fatal(err)
	}

	obs, _, _ := env.Reset(ctx, nil)
	for {
		res, err := env.Step(ctx, policy(obs))
		if err != nil {
			log.Fatal(err)
		}
		if res.Terminated {
			break
		}
		obs = res.Observation
	}

Runner wraps this loop for a ports.Policy. The cmd/qcal binary exposes the same
environment over a CLI, HTTP and MCP.
*/
package qcal
