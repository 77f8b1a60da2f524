// Package pacing implements driven.Pacer.
//
// Fixed sleeps a constant interval between provider calls, which is what the
// Alpha Vantage free tier needs (5 calls per minute, so 15 seconds apart).
// Limiter is a token bucket built on golang.org/x/time/rate that also honours
// a backoff after the provider reports throttling.
package pacing
