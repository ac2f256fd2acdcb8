// Package event defines the contracts shared by producers, handlers and the
// dispatcher.
//
// # Event Interface
//
// All events implement the Event interface:
//
//   - Identity: ID, Type, AggregateID
//   - Correlation: CorrelationID (groups related events), CausationID (parent event)
//   - OccurredAt: when it happened, used by replay filters
//   - Data: the payload, opaque to the dispatcher
//
// Use BaseEvent[T] so producers and consumers share a typed payload:
//
//	type AssessmentCompleted struct {
//	    PersonID string
//	    Score    int
//	}
//
//	evt := event.New("assessment.completed", assessmentID, AssessmentCompleted{...})
//
// Validate enforces the envelope invariants before anything is dispatched.
//
// # Handlers
//
// A Handler names itself and the event type it consumes. Optional
// capabilities are discovered by type assertion:
//
//   - Filter: CanHandle lets a handler skip events routed to it
//   - Prioritized: Priority orders handlers within one dispatch
//   - RetryPolicy: SupportsRetry and MaxRetries override dispatcher defaults
//
// NewHandler builds a FuncHandler implementing all of them:
//
//	h := event.NewHandler("notify-learner", "assessment.completed", notify,
//	    event.WithPriority(10),
//	    event.WithMaxRetries(5),
//	)
//
// TypedHandler decodes the payload first:
//
//	h := event.TypedHandler("award-badge", "level.achieved",
//	    func(ctx context.Context, p LevelAchieved, meta event.Metadata) error {
//	        return badges.Award(ctx, p.PersonID, p.Level)
//	    })
//
// # Registry
//
// Registry keeps eventType -> handlers in registration order. Subscribing the
// same handler twice results in two invocations; Unsubscribe removes the
// first identical subscription.
package event
