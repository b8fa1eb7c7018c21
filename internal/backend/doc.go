// Package backend is the HTTP client for the reasoning backend: the /ask
// forwarding call used by the relay and the admin poll endpoints used by
// the console. Each exported call lives in its own file.
package backend
