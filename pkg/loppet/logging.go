package loppet

import "context"

// OperationLogger records domain-level events emitted by service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing marketplace operation.
type OperationLog struct {
	Operation string
	ActorID   AccountID
	Subject   string
	SubjectID string
	Status    string
	Error     error
}

const (
	operationStatusOK    = "ok"
	operationStatusError = "error"
)

// ServiceOption configures a service instance.
type ServiceOption func(*operationLogging)

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(logging *operationLogging) {
		logging.logger = logger
	}
}

type operationLogging struct {
	logger OperationLogger
}

func (logging *operationLogging) applyOptions(options []ServiceOption) {
	for _, option := range options {
		if option != nil {
			option(logging)
		}
	}
}

func (logging *operationLogging) logOperation(ctx context.Context, entry OperationLog) {
	if logging.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logging.logger.LogOperation(ctx, entry)
}
