/*
Package observability turns the environment's lifecycle hooks into Prometheus
metrics and structured log lines.

Both helpers return domain.LifecycleHooks, so they can be merged with
domain.ChainHooks and passed to the environment as a single hook set.
*/
package observability
