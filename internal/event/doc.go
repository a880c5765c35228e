// Package event provides a pub-sub event bus for broadcast signaling between
// document sessions and the rest of the application.
//
// Requests that are not addressed to a specific document (save the focused
// document, toggle its view mode, export it) are published on the bus; each
// session subscribes when it is created and unsubscribes when it is destroyed,
// so no listener outlives its session.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//   - [On], [OnOwned]: typed subscriptions; owned ones are released together by [Bus.ReleaseOwner]
//
// # Event Categories
//
// Requests:
//   - [SaveRequestedEvent], [SaveAllRequestedEvent]
//   - [ModeToggleRequestedEvent]
//   - [ExportImageRequestedEvent], [ExportHTMLRequestedEvent]
//
// Document state:
//   - [DocumentDirtyEvent], [DocumentSavedEvent], [SaveFailedEvent]
//   - [ViewModeChangedEvent], [OutlineRefreshedEvent]
//   - [ExportCompletedEvent], [ExportFailedEvent]
//
// Files and sessions:
//   - [FileChangedEvent], [FileRemovedEvent]
//   - [SessionOpenedEvent], [SessionFocusedEvent], [SessionClosedEvent]
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//
//	event.OnOwned(bus, sessionID, event.TypeSaveRequested, func(e event.SaveRequestedEvent) {
//	    session.Save(ctx, docsession.SaveOptions{OnSuccess: e.OnSuccess})
//	})
//	defer bus.ReleaseOwner(sessionID)
//
//	bus.Publish(event.NewSaveRequestedEvent(nil))
//
// # Thread Safety
//
// Publishing is synchronous: handlers run on the publisher's goroutine in
// registration order, specific subscribers before wildcard ones. A panicking
// handler is recovered and logged; delivery continues.
package event
