// Package store holds the bounded window of captured records.
//
// Records enter as in-flight entries through Append, change through Update
// and are finalized by Complete or Fail. Every change replaces the stored
// record with a fresh copy carrying a higher revision, so a reader holding
// a snapshot never observes a half-applied mutation.
//
// The store keeps at most its retention bound of records, evicting the
// oldest first. Listeners registered with OnEvict learn about evictions so
// derived caches can be reclaimed; Subscribe delivers every change as an
// Event for displays that refresh on activity.
package store
