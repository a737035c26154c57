// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modAdvapi32 = windows.NewLazySystemDLL("advapi32.dll")

	procCreateProcessAsUserW = modAdvapi32.NewProc("CreateProcessAsUserW")
)

// startupInfoW mirrors the Win32 STARTUPINFOW layout with the reserved-2
// fields exposed, unlike golang.org/x/sys/windows.StartupInfo which blanks
// them. lpReserved2 needs to carry the CRT-compatible handle-inheritance
// blob, so this package defines its own copy of the struct rather than
// extend the stdlib one.
type startupInfoW struct {
	cb              uint32
	lpReserved      *uint16
	lpDesktop       *uint16
	lpTitle         *uint16
	dwX             uint32
	dwY             uint32
	dwXSize         uint32
	dwYSize         uint32
	dwXCountChars   uint32
	dwYCountChars   uint32
	dwFillAttribute uint32
	dwFlags         uint32
	wShowWindow     uint16
	cbReserved2     uint16
	lpReserved2     *byte
	hStdInput       windows.Handle
	hStdOutput      windows.Handle
	hStdError       windows.Handle
}

const (
	startfUseStdHandles = 0x00000100

	// fopen is the flag CRT startup code expects on each inherited
	// handle's entry in the flags array of the handle-inheritance blob.
	fopen = 0x01
)

// InheritedHandles describes the standard handles and any extra handles to
// transfer to a spawned child.
type InheritedHandles struct {
	Stdin, Stdout, Stderr windows.Handle
	Extra                 []windows.Handle
}

// buildHandleBlob packs the CRT-compatible handle-inheritance structure: a
// 4-byte count, one flag byte per handle (FOPEN for all of them here), then
// each handle as a little-endian u64.
func buildHandleBlob(handles []windows.Handle) []byte {
	count := len(handles)
	buf := make([]byte, 4+count+8*count)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(count))
	flagsOff := 4
	for i := range handles {
		buf[flagsOff+i] = fopen
	}
	handlesOff := flagsOff + count
	for i, h := range handles {
		binary.LittleEndian.PutUint64(buf[handlesOff+i*8:handlesOff+i*8+8], uint64(h))
	}
	return buf
}

// LaunchOptions bundles everything CreateProcessAsUserLaunch needs beyond
// the token: the command to run, the environment to give it, and which
// handles (if any) it should inherit.
type LaunchOptions struct {
	CommandLine string
	CurrentDir  string
	Env         EnvironmentBlock
	Inherit     *InheritedHandles // nil means no handle inheritance at all
}

// LaunchResult is what CreateProcessAsUserLaunch hands back on success.
type LaunchResult struct {
	Pid            uint32
	ProcessHandle  windows.Handle
}

// CreateProcessAsUserLaunch builds the environment block, encodes the
// command line and working directory, builds the extended startup info
// (with the CRT handle-inheritance blob when handles are supplied), and
// calls CreateProcessAsUser with CREATE_UNICODE_ENVIRONMENT |
// CREATE_NEW_CONSOLE.
func CreateProcessAsUserLaunch(t Token, opts LaunchOptions) (LaunchResult, error) {
	envBlock, err := SerializeEnvironmentBlock(opts.Env)
	if err != nil {
		return LaunchResult{}, fmt.Errorf("osbind: serialize environment: %w", err)
	}

	cmdLinePtr, err := windows.UTF16PtrFromString(opts.CommandLine)
	if err != nil {
		return LaunchResult{}, fmt.Errorf("osbind: encode command line: %w", err)
	}

	var dirPtr *uint16
	if opts.CurrentDir != "" {
		dirPtr, err = windows.UTF16PtrFromString(opts.CurrentDir)
		if err != nil {
			return LaunchResult{}, fmt.Errorf("osbind: encode current dir: %w", err)
		}
	}

	desktop, _ := windows.UTF16PtrFromString(`winsta0\default`)
	si := startupInfoW{
		lpDesktop: desktop,
	}
	si.cb = uint32(unsafe.Sizeof(si))

	if opts.Inherit != nil {
		si.dwFlags |= startfUseStdHandles
		si.hStdInput = opts.Inherit.Stdin
		si.hStdOutput = opts.Inherit.Stdout
		si.hStdError = opts.Inherit.Stderr

		all := make([]windows.Handle, 0, 3+len(opts.Inherit.Extra))
		all = append(all, opts.Inherit.Stdin, opts.Inherit.Stdout, opts.Inherit.Stderr)
		all = append(all, opts.Inherit.Extra...)
		blob := buildHandleBlob(all)
		si.cbReserved2 = uint16(len(blob))
		si.lpReserved2 = &blob[0]
	}

	var pi windows.ProcessInformation
	const flags = windows.CREATE_UNICODE_ENVIRONMENT | windows.CREATE_NEW_CONSOLE
	inheritHandles := uintptr(0)
	if opts.Inherit != nil {
		inheritHandles = 1
	}

	r1, _, callErr := procCreateProcessAsUserW.Call(
		uintptr(windowsHandle(t)),
		0, // lpApplicationName
		uintptr(unsafe.Pointer(cmdLinePtr)),
		0, // lpProcessAttributes
		0, // lpThreadAttributes
		inheritHandles,
		uintptr(flags),
		uintptr(unsafe.Pointer(envBlock)),
		uintptr(unsafe.Pointer(dirPtr)),
		uintptr(unsafe.Pointer(&si)),
		uintptr(unsafe.Pointer(&pi)),
	)
	if r1 == 0 {
		return LaunchResult{}, &CallError{Call: "CreateProcessAsUserW", Code: codeOf(callErr), Err: callErr}
	}

	windows.CloseHandle(pi.Thread)
	return LaunchResult{Pid: pi.ProcessId, ProcessHandle: pi.Process}, nil
}
