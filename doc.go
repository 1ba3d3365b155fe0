// Package logi implements the logi abstract machine: the execution core of
// the logi logic-programming runtime.
//
// The machine runs compiled code through direct control transfer between code
// addresses rather than nested calls, so backtracking can resume into code
// that has already returned. State lives in a tagged-cell heap, a trail of
// destructive bindings, a deterministic stack of environment frames, and a
// nondeterministic stack of choicepoints. Failure pops the newest
// choicepoint, undoes the trail above its saved mark in reverse order,
// rewinds the heap, and jumps to the stored retry address.
//
// Programs are built with Assembler, executed with CallEngine or the Run
// iterator, and observed through per-subsystem debug flags and the trace
// command contract consumed by the interactive debugger in the cli package.
package logi
