// Package recipe builds the generated image build recipe.
//
// A [Builder] accumulates instructions from a build configuration: base
// image, environment, labels, exposed ports, run commands, the single
// content-inclusion instruction for the resolved assembly, health check,
// entrypoint, and command. The finished document serializes to a
// Dockerfile in a target directory.
//
// Instruction state accumulates through chained setters, and the
// document is validated when content is produced: a recipe without a
// base image cannot be serialized. The optional optimise pass coalesces
// the consecutive run block into a single instruction to reduce layer
// count; it never reorders instructions across the content inclusion.
package recipe
