// Package otp provides helpers for generating one-time passwords (OTP),
// focused on TOTP (time-based OTP), and the time-step arithmetic needed to
// submit them at the right moment.
//
// This is used by the second-factor solver: pick the step that is current
// (after the configured skew offset), generate its code, and when a code is
// rejected, sleep until just past the next step boundary so the retry uses a
// fresh code.
package otp
