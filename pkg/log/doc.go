/*
Package log provides structured logging for cutover using zerolog.

A single global logger is initialized once via Init and refined into child
loggers with WithComponent, WithRunID and WithEnvironment. Output is JSON
for production and a console writer for interactive use.

Emergency returns a dedicated channel used exclusively by the rollback
controller: a rollback is an operationally significant event, and tagging
it lets alerting match on channel=emergency instead of grepping messages.
*/
package log
