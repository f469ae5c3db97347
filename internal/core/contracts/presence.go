package contracts

import "context"

// PresenceStore tracks which users currently hold a live stream connection.
// Entries age out on their own, so a crashed process leaves no ghosts.
type PresenceStore interface {
	// Touch marks the user online now. Called on connect and refreshed
	// periodically while the connection lives.
	Touch(ctx context.Context, userID string) error
	// Online returns the users seen within the liveness window.
	Online(ctx context.Context) ([]string, error)
	// Clear drops all presence state.
	Clear(ctx context.Context) error
}
