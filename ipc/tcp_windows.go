// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package ipc

import (
	"fmt"
	"net"
	"os"

	"github.com/gpii-project/gpii-service/osbind"
	"github.com/gpii-project/gpii-service/util/set"
)

// maxAncestorDepth bounds how many parent-of hops the peer-authentication
// check will walk looking for an ancestor/descendant relationship.
const maxAncestorDepth = 5

// NewTCPListener opens the loopback-TCP alternative to a named pipe. The
// named pipe remains the default transport; this exists for callers that
// explicitly ask for it. The returned address is what gets passed to the
// child in place of a pipe path.
func NewTCPListener() (*net.TCPListener, string, error) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return nil, "", fmt.Errorf("ipc: listen loopback tcp: %w", err)
	}
	return l, l.Addr().String(), nil
}

// AcceptAuthenticated accepts one connection on l and authenticates it:
// the local endpoint's owning pid must be this process, and the remote
// endpoint's owning pid must be either the expected child pid or an
// ancestor/descendant of it to a depth of maxAncestorDepth. A connection
// that fails this check is closed and ErrPeerAuthenticationFailed is
// returned; no message.* event is ever emitted for that connection, so
// callers must treat this error as "reject silently (but log it), do not
// dispatch".
func AcceptAuthenticated(l *net.TCPListener, expectedChildPid int) (net.Conn, error) {
	conn, err := l.Accept()
	if err != nil {
		return nil, fmt.Errorf("ipc: accept: %w", err)
	}

	ok, err := authenticatePeer(conn, expectedChildPid)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ipc: authenticate peer: %w", err)
	}
	if !ok {
		conn.Close()
		return nil, ErrPeerAuthenticationFailed
	}
	return conn, nil
}

func authenticatePeer(conn net.Conn, expectedChildPid int) (bool, error) {
	localAddr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return false, fmt.Errorf("ipc: connection has no TCP local address")
	}
	remoteAddr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return false, fmt.Errorf("ipc: connection has no TCP remote address")
	}

	table, err := osbind.TCPTable()
	if err != nil {
		return false, err
	}

	selfPid := os.Getpid()
	var localOwner, remoteOwner uint32
	var foundLocal, foundRemote bool
	for _, row := range table {
		if int(row.LocalPort) == localAddr.Port {
			localOwner = row.OwningPid
			foundLocal = true
		}
		// The remote endpoint's pid is recovered by finding the row whose
		// *local* endpoint matches our connection's remote endpoint — a
		// TCP row only ever records the owner of its own local side.
		if int(row.LocalPort) == remoteAddr.Port {
			remoteOwner = row.OwningPid
			foundRemote = true
		}
	}
	if !foundLocal || int(localOwner) != selfPid {
		return false, nil
	}
	if !foundRemote {
		return false, nil
	}
	if int(remoteOwner) == expectedChildPid {
		return true, nil
	}
	return isAncestorOrDescendant(int(remoteOwner), expectedChildPid, maxAncestorDepth)
}

// isAncestorOrDescendant reports whether candidate is within depth hops of
// target in the parent-of relation, in either direction.
func isAncestorOrDescendant(candidate, target, depth int) (bool, error) {
	procs, err := osbind.Snapshot()
	if err != nil {
		return false, err
	}
	parentOf := make(map[int]int, len(procs))
	for _, p := range procs {
		parentOf[p.Pid] = p.Ppid
	}

	ancestorsOfTarget := set.New[int]()
	pid := target
	for i := 0; i < depth; i++ {
		ppid, ok := parentOf[pid]
		if !ok {
			break
		}
		ancestorsOfTarget.Add(ppid)
		pid = ppid
	}
	if ancestorsOfTarget.Contains(candidate) {
		return true, nil
	}

	ancestorsOfCandidate := set.New[int]()
	pid = candidate
	for i := 0; i < depth; i++ {
		ppid, ok := parentOf[pid]
		if !ok {
			break
		}
		ancestorsOfCandidate.Add(ppid)
		pid = ppid
	}
	return ancestorsOfCandidate.Contains(target), nil
}
