// Package main provides a CLI for working with rowguard policy models.
//
// The CLI supports:
//   - validate: Check the policy and path tables for declaration errors
//   - inspect: Render the effective policy table
//   - simulate: Evaluate one decision against a database or sample data
//
// Commands that evaluate relationship paths against live rows (simulate
// with --db) need a database; validate and inspect work on the static
// model alone.
//
// Usage:
//
//	rowguard [flags] <command>
package main

func main() {
	Execute()
}
