// Package service holds the application use cases: importing and exporting
// users and tasks, managing tasks, and running assignments.
//
// AssignmentService is the centre of the package. A run takes the run lock,
// loads available users and assignable tasks, asks the matching engine for
// a plan, and persists every assignment, task update and workload change in
// one transaction. Notifications are emitted only after the commit, so a
// failed run never emails anyone.
//
// Services depend on the store interfaces and never on a concrete database.
// Errors leave the package wrapped in ServiceError so the API layer can
// tell which operation failed without parsing messages.
package service
