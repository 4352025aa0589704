// Package market holds the registry of tracked trading pairs.
//
// The tracked set is fixed at startup: either the built-in defaults or the
// subset named in feed.symbols. Every other component (feed subscription,
// price store, views) iterates symbols in registry order.
package market
