// Package limiter counts failed login attempts per email in Redis and locks
// an email out once the configured budget is spent within the window.
package limiter
