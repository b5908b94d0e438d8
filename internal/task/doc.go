// Package task runs background work outside the request path. Assignment
// notifications are queued as tasks and executed by a fixed pool of workers;
// notifications left undelivered by a previous process are recovered on start.
package task
