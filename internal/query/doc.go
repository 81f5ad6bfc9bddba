// Package query is the incremental memoization engine under the analysis
// queries.
//
// A Database owns a revision counter and a registry of query kinds. Inputs
// (Input) are set from outside and stamped with the revision that wrote them.
// Derived queries (Query) are pure functions of their key and the inputs they
// read; each evaluation records the inputs and queries it read as dependency
// edges, and the result is memoized together with those edges.
//
// Reads happen through a Runtime obtained from Database.Attach or Run. A
// runtime is bound to one revision; a pending write cancels every attached
// runtime, which unwinds with ErrCancelled at its next store operation.
//
// Validation is lazy. A memo verified in the current revision is returned
// directly. Otherwise each dependency is asked whether it changed after the
// memo was last verified; if none did, the memo is re-stamped without running
// the function. When the function does run and produces a value equal to the
// previous one, the memo keeps its old change revision (backdating), so
// dependents further up stay green.
//
// Cycles are detected with each runtime's active stack and, across runtimes,
// with a wait-for graph. Query kinds that register a recovery function get
// their fallback substituted for every participant; kinds without one turn
// the cycle into a *CycleError for the caller of the cycle head.
package query
