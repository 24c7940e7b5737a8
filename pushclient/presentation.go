package pushclient

import "sync"

// PresentationPolicy is the process-wide policy for handling a notification
// that arrives while the application is in the foreground.
type PresentationPolicy struct {
	ShowAlert bool
	PlaySound bool
	SetBadge  bool
}

var (
	presentationOnce sync.Once
	presentation     = PresentationPolicy{ShowAlert: true, PlaySound: false, SetBadge: false}
)

// ConfigurePresentation installs the foreground presentation policy. It is
// process-wide, not session state: the first call wins and later calls are
// ignored, so install it before any session exists.
func ConfigurePresentation(policy PresentationPolicy) {
	presentationOnce.Do(func() {
		presentation = policy
	})
}

// Presentation returns the installed policy.
func Presentation() PresentationPolicy {
	return presentation
}
