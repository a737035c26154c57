// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package osbind

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modIphlpapi = windows.NewLazySystemDLL("iphlpapi.dll")

	procGetExtendedTcpTable = modIphlpapi.NewProc("GetExtendedTcpTable")
)

const (
	tcpTableOwnerPIDAll = 5
	afINET              = 2

	// tableGrowthMargin is added to the table buffer between the size
	// probe and the fetch to tolerate concurrent growth of the TCP table.
	tableGrowthMargin = 100

	winErrInsufficientBuffer = 122
)

// TCPConnection is one row of the IPv4 TCP table: the local endpoint this
// process (or any process) is bound to, the peer it is connected to, and
// the pid that owns the local endpoint. Ports are already unmasked and
// byte-swapped to host order; addresses stay in network byte order, which
// is what net.IP expects when constructed from raw bytes.
type TCPConnection struct {
	LocalAddr  [4]byte
	LocalPort  uint16
	RemoteAddr [4]byte
	RemotePort uint16
	OwningPid  uint32
}

type mibTCPRowOwnerPID struct {
	State      uint32
	LocalAddr  uint32
	LocalPort  uint32
	RemoteAddr uint32
	RemotePort uint32
	OwningPid  uint32
}

// TCPTable snapshots the system's IPv4 TCP table with owning pids. The
// loopback peer-authentication check cross-references two rows of this
// table: the one matching this process's local endpoint (to confirm the
// connection really terminates here) and the one whose local endpoint
// matches the connection's remote endpoint (to recover the true owning
// pid of the peer, since a TCP row only records the pid of its own local
// side).
func TCPTable() ([]TCPConnection, error) {
	var size uint32
	procGetExtendedTcpTable.Call(
		0, uintptr(unsafe.Pointer(&size)), 0, afINET, tcpTableOwnerPIDAll, 0,
	)

	for attempt := 0; attempt < 5; attempt++ {
		bufSize := size + tableGrowthMargin
		buf := make([]byte, bufSize)
		gotSize := bufSize
		r1, _, callErr := procGetExtendedTcpTable.Call(
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&gotSize)),
			0, afINET, tcpTableOwnerPIDAll, 0,
		)
		switch r1 {
		case 0: // NO_ERROR
			return parseTCPTable(buf), nil
		case uintptr(winErrInsufficientBuffer):
			size = gotSize
			continue
		default:
			return nil, &CallError{Call: "GetExtendedTcpTable", Code: uint32(r1), Err: callErr}
		}
	}
	return nil, fmt.Errorf("osbind: GetExtendedTcpTable: table kept growing faster than the margin")
}

func parseTCPTable(buf []byte) []TCPConnection {
	if len(buf) < 4 {
		return nil
	}
	numEntries := *(*uint32)(unsafe.Pointer(&buf[0]))
	rows := make([]TCPConnection, 0, numEntries)
	rowSize := int(unsafe.Sizeof(mibTCPRowOwnerPID{}))
	base := 4
	for i := uint32(0); i < numEntries; i++ {
		off := base + int(i)*rowSize
		if off+rowSize > len(buf) {
			break
		}
		row := (*mibTCPRowOwnerPID)(unsafe.Pointer(&buf[off]))
		rows = append(rows, TCPConnection{
			LocalAddr:  addrBytes(row.LocalAddr),
			LocalPort:  unmaskPort(row.LocalPort),
			RemoteAddr: addrBytes(row.RemoteAddr),
			RemotePort: unmaskPort(row.RemotePort),
			OwningPid:  row.OwningPid,
		})
	}
	return rows
}

func addrBytes(raw uint32) [4]byte {
	return [4]byte{byte(raw), byte(raw >> 8), byte(raw >> 16), byte(raw >> 24)}
}

// unmaskPort masks off the high 16 bits of the port field, which are
// documented as uninitialized, and swaps the low 16 bits out of network
// (big-endian) order.
func unmaskPort(raw uint32) uint16 {
	masked := uint16(raw & 0xFFFF)
	return masked>>8 | masked<<8
}
