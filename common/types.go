package common

import "github.com/rewindhq/rewind/pkg/replaylib"

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// StartParams is the input for replay.start. A nil AtEpochMs starts at
// the first event.
type StartParams struct {
	AtEpochMs *int64 `json:"atEpochMs,omitempty"`
}

type LogParams struct {
	Limit int `json:"limit,omitempty"`
}

type LogResult struct {
	Lines []string `json:"lines"`
}

type IndexParams struct {
	Index int `json:"index"`
}

type FindParams struct {
	AtOrAfterEpochMs int64 `json:"atOrAfterEpochMs"`
}

type CountResult struct {
	Count int `json:"count"`
}

type FindResult struct {
	Index int `json:"index"`
}

// StatusResult is the response for replay.status and the payload of
// replay.state notifications.
type StatusResult = replaylib.Snapshot

// ShowNotification is pushed whenever an event is displayed.
type ShowNotification struct {
	SessionID string          `json:"sessionId"`
	Frame     replaylib.Frame `json:"frame"`
}

// CountdownNotification is pushed on every countdown tick.
type CountdownNotification struct {
	SessionID   string `json:"sessionId"`
	RemainingMs int64  `json:"remainingMs"`
}

// ScheduleItem is one pending autoplay in schedule.list.
type ScheduleItem struct {
	Name           string `json:"name"`
	Cron           string `json:"cron,omitempty"`
	NextEpochMs    int64  `json:"nextEpochMs"`
	StartAtEpochMs *int64 `json:"startAtEpochMs,omitempty"`
}

type ScheduleResult struct {
	Schedules []ScheduleItem `json:"schedules"`
}

// EmptyResult is returned by methods with no data.
type EmptyResult struct{}
