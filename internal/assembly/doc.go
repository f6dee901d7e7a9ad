// Package assembly models the declared and resolved content of a build
// context.
//
// An assembly [Config] declares what files belong in the context and how
// they should be treated: an inline [Spec], a descriptor reference, the
// target mount point, the packaging [Mode], the owning user, and the
// permission-normalization policy. A [Resolver] turns a [Source] request
// into one resolved [Assembly], a flat list of (source file, destination
// path) pairs that is immutable once produced.
//
// Production and tracking passes resolve the same configuration
// independently, distinguished only by the pass ID on the request, so
// each pass's side effects stay isolated. Resolvers must therefore be
// pure with respect to their inputs: identical requests yield identical
// entry sets.
//
// [InlineResolver] is the reference implementation for inline specs.
// Descriptor-based resolution is supplied by the embedding tool.
package assembly
