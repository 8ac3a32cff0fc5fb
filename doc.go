// Package passwordless provides token-based sign-in primitives: a strategy
// dispatch contract for heterogeneous sign-in mechanisms (magic links,
// password-reset tokens) plus a staged verification pipeline that turns an
// opaque bearer token into a verified, single-use authentication event.
//
// Strategies:
//   - Each Strategy declares its lifecycle phases, the HTTP verb for every
//     phase, and the route templates derived from its resource's subject name
//     and the strategy's own name. New mechanisms are added by implementing
//     Strategy, never by ad-hoc dispatch.
//   - A Registry holds configured strategies keyed by name and resource.
//     Registration is one-time configuration; dispatch is read-only and safe
//     across concurrent requests.
//
// Sign-in pipeline:
//   - SignInPipeline runs an explicit ordered list of stages: config check,
//     token verification, subject decode, constrained lookup, cardinality
//     check, revocation, and session reissue. Every stage takes and returns
//     an explicit context so claims and tenant information never ride along
//     in ambient state.
//   - Single-use semantics are enforced by a RevocationStore whose Consume
//     operation is an atomic check-and-mark. Redis, Bun, and in-memory
//     implementations share the same contract.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the pipeline and
//     the request-link handler to describe sign-in and delivery events. Sinks
//     run best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package passwordless
