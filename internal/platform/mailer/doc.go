// Package mailer delivers assignment notifications by email.
//
// Messages are written in markdown, rendered to HTML with goldmark and sent
// as multipart/alternative over SMTP. Delivery goes through a rate limiter
// and a circuit breaker so a failing mail server cannot stall the
// notification workers.
package mailer
