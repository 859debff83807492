// Package replaylib replays a recorded timeline of events at their original
// spacing against a remote clock.
//
// A Controller owns one playback session. It pulls events from a
// HistorySource one index at a time, holds at most one fetched but not yet
// due event in an EventBuffer, and reveals it through a Renderer once the
// reconciled clock reaches the event's due time. Transport commands (start,
// stop, step, fast step, reset) are serialized through the controller's event
// loop together with timer callbacks and fetch completions, so a stale fetch
// or a superseded timer can never touch the displayed state.
package replaylib
