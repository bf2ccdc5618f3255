// Command airlift is the operator CLI for the Airlift intake queue: it
// lists and maintains queue items, inspects show profiles, drains pending
// work, and bootstraps configuration.
package main
