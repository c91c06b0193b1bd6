package runner

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// ErrBusy is returned when Run is called while another run is in flight on
// the same Runner.
var ErrBusy = errors.New("runner is already running")

// RunError reports a failed run. Session holds every message appended
// before the failure.
type RunError struct {
	TemplateID string
	Session    *domain.Session
	Err        error
}

func (e *RunError) Error() string {
	if e.TemplateID == "" {
		return fmt.Sprintf("run failed: %v", e.Err)
	}
	return fmt.Sprintf("run failed at %q: %v", e.TemplateID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// templateIDOf extracts the template id carried by typed engine errors.
func templateIDOf(err error) string {
	var (
		cfg    *domain.ConfigurationError
		tool   *domain.UnknownToolError
		collab *domain.CollaboratorError
		render *domain.RenderError
	)
	switch {
	case errors.As(err, &cfg):
		return cfg.TemplateID
	case errors.As(err, &tool):
		return tool.TemplateID
	case errors.As(err, &collab):
		return collab.TemplateID
	case errors.As(err, &render):
		return render.TemplateID
	}
	return ""
}
