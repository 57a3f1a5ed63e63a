package main

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// localIP finds the address this host uses for outbound traffic.
// The UDP dial never sends a packet; it only makes the kernel pick a route.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			return addr.IP.String()
		}
	}

	// Fallback to hostname resolution
	if hostname, err := os.Hostname(); err == nil {
		if addrs, err := net.LookupHost(hostname); err == nil && len(addrs) > 0 {
			return addrs[0]
		}
	}
	return "127.0.0.1"
}

// printServerInfo prints the startup banner with access URLs and routes
func printServerInfo(port int) {
	ip := localIP()
	ruler := strings.Repeat("=", 60)

	fmt.Println(ruler)
	fmt.Println("Instance Monitor Server Starting...")
	fmt.Println(ruler)
	fmt.Printf("Local IP: %s\n", ip)
	fmt.Printf("Local Access: http://localhost:%d\n", port)
	fmt.Printf("Network Access: http://%s:%d\n", ip, port)
	fmt.Println(ruler)
	fmt.Println("Dashboard: Access the web interface at the URLs above")
	fmt.Println("API Endpoints:")
	fmt.Println("   POST /instance/start  - Register new instance")
	fmt.Println("   POST /instance/alive  - Send heartbeat")
	fmt.Println("   POST /instance/crash  - Report crash")
	fmt.Println("   POST /instance/stop   - Report stop")
	fmt.Println("   GET  /instances       - List all instances")
	fmt.Println("   GET  /health          - Health check")
	fmt.Println(ruler)
	fmt.Println("Press Ctrl+C to stop the server")
	fmt.Println(ruler)
}
