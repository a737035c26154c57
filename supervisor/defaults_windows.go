// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package supervisor

import (
	"github.com/gpii-project/gpii-service/ipc"
	"github.com/gpii-project/gpii-service/launcher"
	"github.com/gpii-project/gpii-service/osbind"
	"github.com/gpii-project/gpii-service/session"
)

func applyPlatformDefaults(deps *Deps) {
	if deps.Spawn == nil {
		deps.Spawn = launcher.Spawn
	}
	if deps.NewEndpoint == nil {
		deps.NewEndpoint = ipc.NewPipeEndpoint
	}
	if deps.PidFile == "" && deps.PidFilePath == nil {
		sess := deps.Session
		product := deps.Product
		deps.PidFilePath = func() (string, bool) {
			token, err := sess.CurrentUserToken()
			if err != nil {
				return "", false
			}
			defer token.Close()
			dir, err := session.UserDataDir(token, product)
			if err != nil {
				return "", false
			}
			return dir + `\gpii.pid`, true
		}
	}
}

func killBestEffort(pid uint32) {
	osbind.KillBestEffort(int(pid))
}
