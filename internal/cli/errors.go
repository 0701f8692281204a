package cli

import (
	"errors"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/state"
)

// errorMessage is what the user sees on stderr.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, state.ErrSessionExpired):
		return "session expired; run `taskflow login`"
	case errors.Is(err, state.ErrNotSignedIn):
		return "not signed in; run `taskflow login`"
	}
	return api.Message(err)
}
