/*
Package domain contains the core domain models of the qcal calibration environment.

It defines the program representation (Instructions and Programs), the products of context
truncation (QubitMapping, Layout, Truncation, Target) and the episode state exchanged with a
training loop. This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Instruction: One scheduled operation. A closed variant over Play, ShiftPhase, ShiftFrequency, Delay and Generic.
  - Program: An ordered instruction sequence over a declared qubit universe.
  - QubitMapping: The frozen context-qubit to (role, slot) assignment of one truncation.
  - Truncation: The baseline and custom sub-programs built around one occurrence of the target.
  - EpisodeState: The runtime snapshot of one episode (truncation index, sub-step, phase).
*/
package domain
