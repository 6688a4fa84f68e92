// Package cookietap extracts authentication cookies from locally installed
// browsers (Chrome-family, Firefox, Safari) so that tooling can reuse an
// existing logged-in session instead of asking for credentials again.
//
// The package only ever reads browser state: cookie databases are copied to a
// temporary snapshot before being opened, and the OS secret stores are queried
// through short-lived, timeout-bounded lookups. Reads may trigger a
// keychain/keyring prompt, so this is meant for local tooling, not servers.
package cookietap
