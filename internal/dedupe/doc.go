// Package dedupe remembers recently seen event ids so a redelivered chat
// event is processed at most once within a time window.
package dedupe
