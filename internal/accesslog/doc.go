// Package accesslog records how long visitors spend on actor profile pages.
//
// A Recorder lives for one profile view. It opens an access_logs row when the
// view knows its subject and closes it once, on whichever exit signal comes
// first: the page becoming hidden, the page unloading, or the view being torn
// down. The close is sent as a beacon: fired detached from the caller, never
// awaited, never retried.
//
// Store is the server side of the same table: it inserts sessions, applies
// the first exit write (later ones are ignored), and feeds the admin
// timeline and per-actor summary.
package accesslog
