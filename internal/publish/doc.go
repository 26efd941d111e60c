// Package publish promotes the contents of a source directory into a git
// working tree and records the result on a target branch.
//
// Service runs a fixed sequence of named steps. Target and source are
// validated before anything is mutated; the source is staged into a private
// scratch directory so it survives the branch switch and the content wipe
// even when it lives inside the target. Every git invocation goes through an
// external git binary.
package publish
