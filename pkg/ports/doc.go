/*
Package ports defines the driven ports (interfaces) of the calibration environment.

These interfaces decouple the episode logic from execution backends, parametrization
callbacks and history persistence.

# Key Interfaces

  - Executor: runs a bound truncated program for a batch of actions and returns scores.
  - Parametrizer: inserts the parametrized replacement of a target instance.
  - HistoryStore: persists terminal episodes of a training run.
  - DistributedLocker: serializes access to a run across replicas.
*/
package ports
