// Package twitch is the adapter layer isolating the Helix API contract.
//
// AppTokenSource owns the client-credentials token lifecycle; Client wraps
// the Helix endpoints the monitor needs (user lookup, stream info) behind
// domain interfaces, with rate limiting and a circuit breaker on the hot
// polling path.
package twitch
