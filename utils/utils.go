package utils

import (
	"errors"
	"fmt"
	"github.com/MeloQi/EasyGoLib/utils"
	"net"
	"os/exec"
	"strings"
)

func GetFullAddress(addr string) string {
	if len(addr) > 0 {
		ret := addr
		if ':' == addr[0] {
			ret = fmt.Sprintf("localhost%s", ret)
		}
		return ret
	}

	return ""
}

func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

func ExternalIP() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return "", err
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue // not an ipv4 address
			}
			return ip.String(), nil
		}
	}
	return "", errors.New("are you connected to the network?")
}

func GetHostName() string {
	port := utils.Conf().Section("http").Key("port").MustInt(10008)
	host, err := ExternalIP()
	if err != nil {
		host = "localhost"
	}
	defaultHost := fmt.Sprintf("http://%s:%d", host, port)
	return utils.Conf().Section("http").Key("hostname").MustString(defaultHost)
}

// SafeFileName reduces a stream title to something usable inside a file
// name: alphanumerics, '_' and '-' survive, everything else becomes '_'.
func SafeFileName(title string) string {
	if title == "" {
		title = "untitled"
	}
	out := make([]rune, 0, len(title))
	for _, c := range title {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			out = append(out, c)
		} else {
			out = append(out, '_')
		}
	}
	s := strings.Trim(string(out), "_-")
	if s == "" {
		s = "untitled"
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}
