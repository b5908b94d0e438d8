// Package redis implements lock.Locker on top of Redis so that only one
// replica runs the assignment engine at a time.
package redis
