// Package rabbitmq publishes assignment events to a RabbitMQ topic exchange
// so that systems outside this service can follow assignment runs.
package rabbitmq
