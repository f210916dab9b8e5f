// Package iface implements the pluggable InterfaceProvider capability the
// capture manager uses for list_interfaces(), with a 60s result cache so
// repeated callers don't pay for an OS-level enumeration each time.
package iface

import (
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/gopacket/pcap"
	cache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/netshark/netshark/captureerr"
	"github.com/netshark/netshark/model"
	"github.com/netshark/netshark/printer"
)

// cacheTTL matches the spec's "cached for 60 s" requirement for
// list_interfaces().
const cacheTTL = 60 * time.Second

const cacheKey = "interfaces"

// Provider lists and describes host network interfaces.
type Provider interface {
	List() ([]model.InterfaceInfo, error)
}

// DefaultProvider enumerates interfaces via net.Interfaces() for
// up/loopback/address metadata and via pcap.FindAllDevs for the
// device names the capture handle actually opens, merging the two by
// name. Results are cached for cacheTTL.
type DefaultProvider struct {
	cache *cache.Cache
}

// NewDefaultProvider returns a ready-to-use DefaultProvider.
func NewDefaultProvider() *DefaultProvider {
	return &DefaultProvider{cache: cache.New(cacheTTL, 2*cacheTTL)}
}

// List implements Provider.
func (p *DefaultProvider) List() ([]model.InterfaceInfo, error) {
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.([]model.InterfaceInfo), nil
	}

	infos, err := p.list()
	if err != nil {
		return nil, err
	}
	p.cache.Set(cacheKey, infos, cache.DefaultExpiration)
	return infos, nil
}

func (p *DefaultProvider) list() ([]model.InterfaceInfo, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, showPermissionError(err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		printer.Debugf("iface: net.Interfaces failed, falling back to pcap device list only: %v\n", err)
		ifaces = nil
	}
	byName := make(map[string]net.Interface, len(ifaces))
	for _, i := range ifaces {
		byName[i.Name] = i
	}

	out := make([]model.InterfaceInfo, 0, len(devices))
	for _, dev := range devices {
		info := model.InterfaceInfo{
			DeviceName:  dev.Name,
			Description: dev.Description,
		}
		for _, addr := range dev.Addresses {
			if ip4 := addr.IP.To4(); ip4 != nil && info.IPv4Address == "" {
				info.IPv4Address = ip4.String()
			}
		}

		if netIface, ok := byName[dev.Name]; ok {
			info.FriendlyName = netIface.Name
			info.IsUp = netIface.Flags&net.FlagUp != 0
			info.IsLoopback = netIface.Flags&net.FlagLoopback != 0
			if netIface.HardwareAddr != nil {
				info.MACAddress = netIface.HardwareAddr.String()
			}
			if info.IPv4Address == "" {
				if addrs, err := netIface.Addrs(); err == nil {
					for _, a := range addrs {
						if ipNet, ok := a.(*net.IPNet); ok {
							if ip4 := ipNet.IP.To4(); ip4 != nil {
								info.IPv4Address = ip4.String()
								break
							}
						}
					}
				}
			}
		} else {
			info.FriendlyName = dev.Name
			info.IsLoopback = strings.Contains(strings.ToLower(dev.Name), "lo")
		}

		out = append(out, info)
	}

	return out, nil
}

// showPermissionError adapts the teacher's friendly permission-error
// messaging (originally in apidump's interface-enumeration helper) to a
// CaptureError reason string.
func showPermissionError(err error) error {
	if strings.Contains(err.Error(), "Operation not permitted") {
		if os.Geteuid() == 0 {
			return captureerr.Wrap(captureerr.Capture, err, "running as root but still lacking CAP_NET_RAW; packet capture is unavailable in this environment")
		}
		return captureerr.Wrap(captureerr.Capture, err, "insufficient permissions to list capture devices; try running as root")
	}
	return captureerr.Wrap(captureerr.Capture, errors.Cause(err), "failed to enumerate network interfaces")
}
