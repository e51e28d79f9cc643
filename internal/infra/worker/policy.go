package worker

import (
	"financeflow/internal/domain"
	"financeflow/internal/infra/i18n"
)

// FailureKind classifies how a job attempt went wrong.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureExtraction
	FailureTransient
	FailureAllPersistFailed
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureExtraction:
		return "extraction"
	case FailureTransient:
		return "transient"
	case FailureAllPersistFailed:
		return "all_persist_failed"
	}
	return "unknown"
}

// Action is what the worker does with a job once its failure kind is known.
type Action struct {
	// NotifyKey is the reply sent to the chat, empty for none.
	NotifyKey string
	// Retry hands the error back to the queue so the retry policy applies.
	Retry bool
}

// Decide is the single failure policy table of the worker.
func Decide(kind FailureKind) Action {
	switch kind {
	case FailureExtraction, FailureTransient:
		return Action{NotifyKey: i18n.KeyProcessingFailed, Retry: true}
	case FailureAllPersistFailed:
		return Action{NotifyKey: i18n.KeySaveFailed}
	}
	return Action{}
}

// Classify maps an error raised while handling a job onto a FailureKind.
// Unknown errors are treated as transient.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case domain.IsExtraction(err):
		return FailureExtraction
	case domain.IsPersistence(err):
		return FailureAllPersistFailed
	}
	return FailureTransient
}
