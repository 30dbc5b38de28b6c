// Package core holds the shared primitives of the hivecast runtime: the
// role-based content model exchanged with language models, the run state
// machine owned by the subagent manager, and the sentinel errors of the
// orchestration contract.
package core
