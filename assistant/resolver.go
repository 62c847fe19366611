package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/tradelog/journal"
)

// Resolver maps a spoken session name to one of the user's sessions.
type Resolver struct {
	store journal.Store
}

func NewResolver(store journal.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the first of userID's sessions whose name contains
// fragment, ignoring case. Matches come back in store order, so with
// several candidates the earliest created one wins; no ranking is done.
// No match is reported as ok == false, not as an error.
func (r *Resolver) Resolve(ctx context.Context, fragment, userID string) (journal.SessionRecord, bool, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || userID == "" {
		return journal.SessionRecord{}, false, nil
	}
	matches, err := r.store.FindSessions(ctx, userID, fragment)
	if err != nil {
		return journal.SessionRecord{}, false, fmt.Errorf("resolve session: %w", err)
	}
	if len(matches) == 0 {
		return journal.SessionRecord{}, false, nil
	}
	return matches[0], true, nil
}
