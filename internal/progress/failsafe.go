package progress

import (
	"github.com/wenqi/jobtailor/internal/domain"
	"github.com/wenqi/jobtailor/internal/logger"
)

// Failsafe decorates a Publisher so that delivery failures are logged and
// swallowed. The pipeline publishes through this type only: by contract a
// progress notification can never fail a job.
type Failsafe struct {
	inner Publisher
	log   *logger.Logger
}

// NewFailsafe wraps the given publisher. A nil logger uses the default.
func NewFailsafe(inner Publisher, log *logger.Logger) *Failsafe {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Failsafe{inner: inner, log: log}
}

// Publish forwards the event and always reports success.
func (f *Failsafe) Publish(ev domain.ProgressEvent) error {
	if f.inner == nil {
		return nil
	}
	if err := f.inner.Publish(ev); err != nil {
		f.log.WithFields(logger.Fields{
			logger.FieldRequestID: ev.RequestID,
			logger.FieldUserID:    ev.UserID,
			logger.FieldStage:     ev.Step,
		}).WithError(err).Warn("Dropped progress event")
	}
	return nil
}
