/*
Package history orchestrates access to persisted training runs.

The Manager serializes writes per run id, optionally across replicas through a
ports.DistributedLocker, and computes run summaries from a ports.HistoryStore.
*/
package history
