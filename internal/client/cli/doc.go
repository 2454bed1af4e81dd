// Package cli provides the interactive gophauth command-line client.
//
// The client keeps the access and refresh tokens in memory only. A typical
// session registers or logs in, calls the protected hello route, rotates the
// token pair with refresh and finally logs out.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
