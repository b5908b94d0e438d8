// Package store defines the persistence interfaces for users, tasks and
// assignment runs, together with the error values every implementation
// reports and a helper for running work inside a transaction.
package store
