// Package config resolves the client's settings: built-in defaults, then an
// optional JSON file (-c / -config), then flags.
//
//	-a host:port   vault server (default 127.0.0.1:50051)
//	-d path        local SQLite file (default vault.db)
//	-t duration    per-request timeout (default 10s)
//	-i duration    reachability check interval (default 3s)
//
// The file uses the keys server_endpoint_addr, local_db_path,
// request_timeout and online_check_interval. Durations may be strings such
// as "3s" or integer nanoseconds.
package config
