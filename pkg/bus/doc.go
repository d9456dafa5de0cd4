// Package bus implements the in-process typed publish/subscribe bus that
// decouples the schema core, field manager, and orchestrator: FieldValueSet,
// SchemaLoaded, SchemaChanged, TransformTriggered, TransformExecuted, and
// correlation-id request/response pairs for admin flows.
//
// Each subscriber owns a bounded, dedicated-worker queue; overflow drops the
// oldest undelivered event for that subscriber only and records a counter.
// Publish is non-blocking and preserves publication order within a topic;
// there is no ordering guarantee across topics.
package bus
