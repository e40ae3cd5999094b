// Package middleware provides gin middleware for the scene API.
//
//   - CORS: cross-origin resource sharing, exposing the trace headers
//   - RateLimit: per-IP token buckets with idle client eviction
//   - GlobalRateLimit: one token bucket for every caller
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
