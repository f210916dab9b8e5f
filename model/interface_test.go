package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterfaceInfoDisplayNameFallsBackToDeviceName(t *testing.T) {
	i := InterfaceInfo{DeviceName: "eth0"}
	assert.Equal(t, "eth0", i.DisplayName())

	i.FriendlyName = "Ethernet"
	assert.Equal(t, "Ethernet", i.DisplayName())
}
