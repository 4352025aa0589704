// Package poller implements a generic periodic fetch loop.
//
// The Poller:
//   - Fetches once immediately on start, then every Interval
//   - Bounds every fetch with a per-call timeout
//   - Hands successful results to a Handler
//   - Logs failures and leaves the handler's previous data untouched
package poller
