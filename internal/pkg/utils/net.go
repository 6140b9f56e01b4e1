package utils

import (
	"errors"

	"github.com/zeromicro/go-zero/core/netx"
)

// GetLocalIP 返回本机内网 IP，用于 Kafka client.id 等标识
func GetLocalIP() (string, error) {
	ip := netx.InternalIp()
	if ip == "" {
		return "", errors.New("no internal ip found")
	}
	return ip, nil
}
