// Package clientsync holds the reconciliation rules a realtime client
// applies to what it receives: duplicate suppression for chat messages,
// self-expiring typing indicators, and an ordered lead feed that merges
// history pages with live events.
//
// The types are not safe for concurrent use; a client owns one per view.
package clientsync
