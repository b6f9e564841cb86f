// Package auth reconciles the client side view of who is signed in, what
// role they hold, and which local identity record backs them.
//
// Session life-cycle:
//   - SessionManager subscribes to an IdentityProvider, bootstraps the
//     current session on Start, and applies every auth event through a
//     single consumer goroutine. SessionStateMachine guards the graph
//     UNINITIALIZED -> RESOLVING -> {AUTHENTICATED, UNAUTHENTICATED}.
//   - Role lookups run in the background and are tagged with a generation.
//     A newer event or a sign out bumps the generation, so results computed
//     for an older session are dropped instead of overwriting newer state.
//
// Identity provisioning:
//   - IdentityProvisioner links a seeded team member record (matched by
//     email) to the principal on first login, or creates one with the
//     default role. It is idempotent and best-effort, failures are logged
//     and never surface to the sign in flow.
//
// Activity sinks:
//   - ActivitySink receives bootstrap, sign in, sign out, provisioning and
//     role resolution events. Sinks run best-effort (errors are logged).
//
// The tenant package holds the shop registry that follows the same auth
// events, and the repository package provides the bun backed stores.
package auth
