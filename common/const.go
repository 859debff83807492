package common

// JSON-RPC method names.
const (
	MethodVersion      = "system.getVersion"
	MethodStart        = "replay.start"
	MethodStop         = "replay.stop"
	MethodStepForward  = "replay.stepForward"
	MethodStepBackward = "replay.stepBackward"
	MethodFastForward  = "replay.fastForward"
	MethodFastBackward = "replay.fastBackward"
	MethodReset        = "replay.reset"
	MethodReconnect    = "replay.reconnect"
	MethodStatus       = "replay.status"
	MethodLog          = "replay.log"
	MethodCount        = "history.count"
	MethodGet          = "history.get"
	MethodFind         = "history.find"
	MethodSchedules    = "schedule.list"
)

// Push notification names sent over the WebSocket channel.
const (
	NotifyShow      = "replay.show"
	NotifyCountdown = "replay.countdown"
	NotifyState     = "replay.state"
)

// Paths served by the rewind server.
const (
	RPCPath   = "/jsonrpc"
	RPCWSPath = "/jsonrpc/ws"
)
