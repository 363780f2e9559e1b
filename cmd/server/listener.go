package server

import (
	"net"
	"os"
	"strings"

	"frp-manager/internal/logger"
)

type ListenAddr struct {
	Network string
	Address string
}

/**
 * Parse server.address into listener addresses
 * @param {string} address - 逗号分隔，unix:前缀表示unix socket
 * @returns {[]ListenAddr} Listener addresses
 * @example
 * ParseListenAddrs(":3001,unix:/run/frp-manager.sock")
 */
func ParseListenAddrs(address string) []ListenAddr {
	var addrs []ListenAddr
	for _, part := range strings.Split(address, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "unix:"):
			addrs = append(addrs, ListenAddr{Network: "unix", Address: strings.TrimPrefix(part, "unix:")})
		default:
			addrs = append(addrs, ListenAddr{Network: "tcp", Address: part})
		}
	}
	return addrs
}

/**
 * Create TCP and Unix socket listeners
 * @param {[]ListenAddr} addrs - Listener Address
 * @returns {[]net.Listener} Array of created listeners
 * @returns {error} Last error if any listener failed
 * @description
 * - Cleans up existing socket files before creating new ones
 * - 一个地址失败不影响其他地址
 */
func CreateListeners(addrs []ListenAddr) ([]net.Listener, error) {
	var listeners []net.Listener

	var lastErr error
	for _, addr := range addrs {
		if addr.Network == "unix" {
			if err := os.Remove(addr.Address); err != nil && !os.IsNotExist(err) {
				logger.Errorf("Failed to remove existing socket file: %v", err)
				continue
			}
		}
		l, err := net.Listen(addr.Network, addr.Address)
		if err != nil {
			logger.Errorf("Failed to create listener on %s://%s: %v", addr.Network, addr.Address, err)
			lastErr = err
			continue
		}
		if addr.Network == "unix" {
			os.Chmod(addr.Address, 0600)
		}
		logger.Infof("Listening on %s://%s", addr.Network, addr.Address)
		listeners = append(listeners, l)
	}
	return listeners, lastErr
}
