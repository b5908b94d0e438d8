// Package domain contains the core business entities of the assignment
// system: users with their skills and workload, tasks with their sizing,
// and the assignment records produced by the matching engine. Entities
// validate themselves and report problems as *InputError values.
package domain
