package speech

import "context"

// IService turns text into audible speech. Say returns once playback has
// finished or failed.
type IService interface {
	Say(ctx context.Context, text string) error
	Close() error
}
