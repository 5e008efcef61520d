/*
Package session holds the explicitly owned state of one simulation run.

A SimulationSession carries the run id, the seed and the random source handed to
executors. Nothing in the environment keeps process-wide simulation state; every
Reset and Step operates on the session owned by its environment.
*/
package session
