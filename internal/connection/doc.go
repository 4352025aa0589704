// Package connection implements the live price feed connector.
//
// The feed:
//   - Holds one multiplexed WebSocket stream for every tracked symbol
//   - Reconnects with bounded exponential backoff after an error or close
//   - Gives up after a configurable number of failed attempts until a
//     manual Reconnect
//   - Forwards raw frames to the message router
package connection
