// Package authctl implements the operator command line tool: signing key
// generation, password hashing, ledger pruning and revoking every session
// of a user.
//
// Database and Redis settings come from the same JSON file and APP_CONFIG__
// environment variables as the server, and can be overridden per command
// with -driver, -dsn and -redis.
package authctl
