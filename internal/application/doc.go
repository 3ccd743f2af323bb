// Package application wires resolved settings into the running service.
// It opens task storage, builds the media classifier, handlers and router,
// and constructs the HTTP server so the main package only deals with CLI
// parsing and process lifecycle.
package application
