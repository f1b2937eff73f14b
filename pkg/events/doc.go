// Package events provides an in-process broker for deployment lifecycle
// events. The migrator publishes; the CLI subscribes for progress output.
// Delivery is best-effort per subscriber: a slow subscriber's buffer
// overflowing drops events for that subscriber only.
package events
