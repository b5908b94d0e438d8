// Package api exposes users, tasks and assignment runs over HTTP. Handlers
// decode and validate requests, call the service layer, and map service
// and store errors onto status codes with messages safe to show clients.
package api
