package debugger

import (
	"fmt"
	"strconv"
)

// ResolveSession picks the session a call targets.
//
// With an id, the session with that id is returned or ErrSessionNotFound.
// Without one: no sessions is ErrNoActiveSession, a single session is
// returned as is, and several sessions resolve to the provider's current
// session (falling back to the first live one).
func ResolveSession(p SessionProvider, id string) (Session, error) {
	sessions := p.Sessions()
	if id != "" {
		for _, s := range sessions {
			if s.ID() == id {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return pick(sessions, p.Current(), ErrNoActiveSession, func(s Session) bool {
		return s.State() != StateTerminated
	})
}

// ResolveRunSession applies the ResolveSession policy to run sessions.
// An explicit id matches either the session id or the OS process id.
func ResolveRunSession(p RunProvider, id string) (RunSession, error) {
	sessions := p.RunSessions()
	if id != "" {
		for _, s := range sessions {
			if s.ID() == id {
				return s, nil
			}
			if pid, ok := s.ProcessID(); ok && strconv.Itoa(pid) == id {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrRunSessionNotFound, id)
	}
	return pick(sessions, p.CurrentRun(), ErrNoActiveRunSession, func(s RunSession) bool {
		return !s.Terminated()
	})
}

func pick[S comparable](sessions []S, current S, none error, live func(S) bool) (S, error) {
	var zero S
	switch len(sessions) {
	case 0:
		return zero, none
	case 1:
		return sessions[0], nil
	}
	if current != zero {
		return current, nil
	}
	for _, s := range sessions {
		if live(s) {
			return s, nil
		}
	}
	return sessions[0], nil
}
