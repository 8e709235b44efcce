package controller

import (
	"strconv"

	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/polyglot"
	"github.com/UniversalDevicesInc-PG3/udi-sun-poly/pkg/tracker"
)

const (
	DefaultAddress = "sunctrl"
	NodeName       = "Sun Position"
	NodeDefID      = "SUNCTRL"
)

// Driver codes of the node definition.
const (
	DriverStatus    = "ST"
	DriverAzimuth   = "GV0"
	DriverElevation = "GV1"
	DriverZenith    = "GV2"
	DriverMoonPhase = "GV3"
)

// Units of measure.
const (
	uomBoolean = 2
	uomDegrees = 14
	uomRaw     = 56
)

func node(address string) polyglot.Node {
	return polyglot.Node{
		Address:   address,
		Name:      NodeName,
		NodeDefID: NodeDefID,
		Primary:   address,
		Drivers: []polyglot.Driver{
			{Driver: DriverStatus, Value: "1", UOM: uomBoolean},
			{Driver: DriverAzimuth, Value: "0", UOM: uomDegrees},
			{Driver: DriverElevation, Value: "0", UOM: uomDegrees},
			{Driver: DriverZenith, Value: "0", UOM: uomDegrees},
			{Driver: DriverMoonPhase, Value: "0", UOM: uomRaw},
		},
	}
}

// reportDrivers are the values reported after each refresh.
func reportDrivers(r tracker.Report) []polyglot.Driver {
	return []polyglot.Driver{
		{Driver: DriverAzimuth, Value: formatValue(r.Azimuth), UOM: uomDegrees},
		{Driver: DriverElevation, Value: formatValue(r.Elevation), UOM: uomDegrees},
		{Driver: DriverZenith, Value: formatValue(r.Zenith), UOM: uomDegrees},
		{Driver: DriverMoonPhase, Value: formatValue(r.MoonPhase), UOM: uomRaw},
	}
}

func formatValue(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
