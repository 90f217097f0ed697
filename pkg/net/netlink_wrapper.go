package net

import (
	"github.com/vishvananda/netlink"
)

// NetlinkProvider is a wrapper interface over vishvananda/netlink lib
type NetlinkProvider interface {
	// LinkByName returns Link by netdev name
	LinkByName(name string) (netlink.Link, error)
}

// NewNetlinkProviderImpl creates a new NetlinkProviderImpl
func NewNetlinkProviderImpl() *NetlinkProviderImpl {
	return &NetlinkProviderImpl{}
}

type NetlinkProviderImpl struct{}

// LinkByName implements NetlinkProvider interface
func (n NetlinkProviderImpl) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}
