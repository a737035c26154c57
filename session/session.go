// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package session is the session/token manager: resolving the
// interactive console user's primary token, checking logon state with a
// short-lived cache so a busy supervisor does not hammer WTS on every
// tick, and deriving the per-user environment and data directory the
// launcher needs to start a child as that user.
package session

import (
	"fmt"
	"time"

	"github.com/gpii-project/gpii-service/osbind"
	"github.com/gpii-project/gpii-service/util/cache"
)

// logonCacheTTL bounds how long IsUserLoggedOn trusts a previous answer
// before re-querying the console session: cheap enough to poll on every
// supervisor tick, but must not be a syscall on every tick.
const logonCacheTTL = 250 * time.Millisecond

// Manager resolves the interactive user's token and derived state. The
// zero value is not usable; construct with New.
type Manager struct {
	logonCache cache.Memory[struct{}, bool]
}

// New returns a ready-to-use Manager.
func New() *Manager {
	return &Manager{}
}

// CurrentUserToken returns a duplicated primary token for whichever user
// currently owns the console session, or osbind.ErrNoInteractiveUser if no
// user is logged on at the console. The caller owns the returned token and
// must Close it.
func (m *Manager) CurrentUserToken() (osbind.Token, error) {
	sessionID, err := osbind.ActiveConsoleSessionID()
	if err != nil {
		return osbind.Token{}, err
	}
	return osbind.QueryUserTokenForSession(sessionID)
}

// IsUserLoggedOn reports whether a user currently owns the console
// session, by acquiring that user's token and closing it straight away.
// It uses a short TTL cache (logonCacheTTL) so repeated polling
// from the supervisor's event loop does not translate into a WTS call per
// tick.
func (m *Manager) IsUserLoggedOn() (bool, error) {
	return m.logonCache.Get(struct{}{}, func() (bool, time.Time, error) {
		token, err := m.CurrentUserToken()
		if err == osbind.ErrNoInteractiveUser {
			return false, time.Now().Add(logonCacheTTL), nil
		}
		if err != nil {
			return false, time.Time{}, err
		}
		token.Close()
		return true, time.Now().Add(logonCacheTTL), nil
	})
}

// EnvironmentFor returns the environment block a child spawned under t
// should inherit, augmented with productOverrides: the launcher passes its
// caller's Options.Env here, layered on top of the user's profile
// environment before it reaches CreateProcessAsUser.
func EnvironmentFor(t osbind.Token, productOverrides []string) (osbind.EnvironmentBlock, error) {
	base, err := osbind.EnvironmentFor(t)
	if err != nil {
		return osbind.EnvironmentBlock{}, fmt.Errorf("session: resolve environment: %w", err)
	}
	if len(productOverrides) == 0 {
		return base, nil
	}
	return base.Augment(productOverrides), nil
}

// UserDataDir locates the per-user data directory for product
// ("%APPDATA%\<product>") under the profile referenced by t. APPDATA is
// looked up case-insensitively because CreateEnvironmentBlock's ordering
// and casing are not guaranteed across Windows versions.
func UserDataDir(t osbind.Token, product string) (string, error) {
	env, err := osbind.EnvironmentFor(t)
	if err != nil {
		return "", fmt.Errorf("session: resolve environment: %w", err)
	}
	appData, ok := env.Lookup("APPDATA")
	if !ok || appData == "" {
		return "", fmt.Errorf("session: APPDATA not present in user environment")
	}
	return appData + `\` + product, nil
}
