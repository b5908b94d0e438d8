// Package events carries domain events between the assignment service and
// the components that react to them (notification tasks, the message broker
// publisher) without those components depending on each other.
package events
