// Command cadence is the CLI for the content delivery program: it runs the
// daemon, enrolls clients, drives generation and review, and inspects scores
// and webhook subscriptions.
package main
