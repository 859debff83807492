package replaycli

import (
	"github.com/creachadair/jrpc2"
	"github.com/rewindhq/rewind/common"
)

// Handlers receive push notifications. Nil fields ignore their
// notification.
type Handlers struct {
	OnShow      func(*common.ShowNotification)
	OnCountdown func(*common.CountdownNotification)
	OnState     func(*common.StatusResult)
	// OnError is called when a notification cannot be decoded.
	OnError func(method string, err error)
}

func (h *Handlers) dispatch(req *jrpc2.Request) {
	var err error
	switch req.Method() {
	case common.NotifyShow:
		err = handle(req, h.OnShow)
	case common.NotifyCountdown:
		err = handle(req, h.OnCountdown)
	case common.NotifyState:
		err = handle(req, h.OnState)
	}
	if err != nil && h.OnError != nil {
		h.OnError(req.Method(), err)
	}
}

func handle[T any](req *jrpc2.Request, callback func(*T)) error {
	if callback == nil {
		return nil
	}
	var v T
	if err := req.UnmarshalParams(&v); err != nil {
		return err
	}
	callback(&v)
	return nil
}
