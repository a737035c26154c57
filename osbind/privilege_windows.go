// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import "golang.org/x/sys/windows"

// requiredPrivileges are the privileges CreateProcessAsUser needs when the
// caller is running as LocalSystem.
var requiredPrivileges = []string{
	"SeAssignPrimaryTokenPrivilege",
	"SeIncreaseQuotaPrivilege",
	"SeTcbPrivilege",
	"SeImpersonatePrivilege",
}

// EnableLaunchPrivileges adjusts the current process token to enable the
// privileges CreateProcessAsUserLaunch requires. It is best-effort: a
// privilege that cannot be enabled (already running unprivileged, as in
// the foreground-dev-mode path) is silently skipped rather than treated
// as fatal, since CreateProcessAsUser itself will surface a clear error if
// a privilege that was actually required is missing.
func EnableLaunchPrivileges() {
	for _, name := range requiredPrivileges {
		_ = enablePrivilege(name)
	}
}

func enablePrivilege(name string) error {
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return err
	}
	defer token.Close()

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(name), &luid); err != nil {
		return err
	}

	tp := windows.Tokenprivileges{
		PrivilegeCount: 1,
	}
	tp.Privileges[0] = windows.LUIDAndAttributes{
		Luid:       luid,
		Attributes: windows.SE_PRIVILEGE_ENABLED,
	}

	return windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil)
}
