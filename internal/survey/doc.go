// Package survey defines the content model shared by the ingestion pipeline,
// the content store, and the scoring layer.
//
// # Key Types
//
// Identity: (Kind, Stage) key naming one content set. Kind 1 is single-event
// judgement, kind 2 is audio-event tagging, kind 3 is paired quality comparison.
//
// AudioRef: opaque locator handed to callers instead of filesystem paths.
//
// Item / PairItem: presentable units with stable zero-based indices.
//
// AnswerKey: ground truth for guide stages, keyed by item index.
//
// StageData: the immutable result of one build, cached per Identity.
package survey
