package redirect

import "kilometers.ai/standin/internal/core/component"

// Entry identifies which operation produced an outcome
type Entry string

const (
	EntryLaunch          Entry = "launch"
	EntryLaunchForResult Entry = "launch_for_result"
	EntryConvert         Entry = "convert"
)

// Reason explains why a request was left for default platform handling
type Reason string

const (
	ReasonNoTarget     Reason = "no_target"
	ReasonUnknownClass Reason = "unknown_class"
)

// Observer receives registry outcomes. Calls are made synchronously after the
// registry lock has been released.
type Observer interface {
	Bound(logical, physical component.Name)
	Rewritten(entry Entry, logical, physical component.Name)
	NotHandled(entry Entry, reason Reason)
}

type nopObserver struct{}

func (nopObserver) Bound(component.Name, component.Name)            {}
func (nopObserver) Rewritten(Entry, component.Name, component.Name) {}
func (nopObserver) NotHandled(Entry, Reason)                        {}
