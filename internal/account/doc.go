// Package account provides the client for the upstream account endpoints
// shown on the dashboard: balance, realized PnL, fees and open positions.
//
// Every endpoint answers with the envelope {"code": 0, "msg": "", "data": ...}.
// A non-zero code is reported as *UpstreamError, an HTTP failure as *APIError.
package account
