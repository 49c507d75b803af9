package worker

import (
	"go.uber.org/zap"
)

// HandlerRegistrar subscribes notification handlers on the event dispatcher.
type HandlerRegistrar interface {
	RegisterHandlers()
}

// StartNotificationWorker wires the outbox producer to lifecycle and admin events.
func StartNotificationWorker(registrar HandlerRegistrar, logger *zap.Logger) {
	if registrar == nil {
		return
	}
	registrar.RegisterHandlers()
	if logger != nil {
		logger.Info("notification worker subscribed")
	}
}
