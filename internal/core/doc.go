// Package core runs table operations against a user's workspace.
//
// It sits between the surfaces (web handlers, the CLI) and the engines in
// package table. It has no HTTP dependencies and can be driven by tests
// without a server.
//
// # Architecture
//
//   - Workspace: each session owns a registry of named tables, the current
//     table and the last unsaved result (package session). Every Service
//     method runs inside [session.Session.Do], so calls for one user never
//     overlap.
//   - Service: the entry point for uploads, imports, overview, filter,
//     aggregate, join, save and export.
//   - Limiter: bounds concurrent decodes (uploads and Postgres imports).
//
// # Operations
//
// Engine operations never modify their inputs. Each result becomes the
// workspace's last result and can be saved under a name later:
//
//	res, err := svc.Join(ctx, sess, core.JoinRequest{
//	    Left: "orders", Right: "customers", Spec: spec,
//	})
//	name, err := svc.SaveResult(ctx, sess, "") // "orders_join_customers"
//
// Every operation is timed, logged with its input and output row counts and
// counted in the metrics package.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - COL001, CFG001: unknown columns and invalid operation settings
//   - FILE001-FILE006: upload size, format and parse errors
//   - TBL001-TBL004, SES001: workspace errors
//   - UPL002-UPL005, SRC001-SRC002, DB004, DB006: load and import errors
//   - RATE001, REQ001: request errors
package core
