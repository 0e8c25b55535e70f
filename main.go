// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("supervisync - Offline Supervision Form Sync")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("supervisync synchronizes health-facility supervision forms between")
	fmt.Println("offline field devices and a central PostgreSQL-backed server with")
	fmt.Println("idempotent batch uploads, watermark downloads and admin verification.")
	fmt.Println()

	fmt.Println("Available Examples:")
	fmt.Println()
	fmt.Println("1. HTTP Server Example (examples/nethttp_server/)")
	fmt.Println("   A complete supervision sync server using Go's net/http package")
	fmt.Println("   Features: JWT auth with roles, idempotent uploads, verify cascade")
	fmt.Println("   Run: cd examples/nethttp_server && go run .")
	fmt.Println()

	fmt.Println("2. Field Client (fieldclient/)")
	fmt.Println("   Offline-first SQLite client library for field devices")
	fmt.Println("   Features: local form capture, pending queue, background sync")
	fmt.Println()
}
