// Package resolver inspects the traffic router to determine which of the
// two environments is currently active and which is idle. An unset router
// selector is a valid bootstrap state (blue defaults to active); a router
// that cannot be read at all is the distinct, fatal RouterUnreadable
// condition.
package resolver
