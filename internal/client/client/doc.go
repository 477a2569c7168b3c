// Package client talks to the vault server for the CLI.
//
// GRPCClient implements Client over the VaultService. A unary interceptor
// attaches the access token from a TokenStore and, when the server reports
// an expired token, refreshes it once with the stored refresh token and
// retries the call. Server status errors come back as the sentinels in
// internal/common where the message names one, otherwise as ErrUnauthorized,
// ErrUnavailable or a wrapped rpc error.
//
// InitDatabase opens the client's local SQLite database and applies the
// embedded goose migrations.
package client
