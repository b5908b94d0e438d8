// Package postgres implements the store interfaces on PostgreSQL via pgx and
// owns the goose migrations for the users, tasks and assignments schema.
package postgres
