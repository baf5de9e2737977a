// Package sensor samples the node's humidity/temperature sensor and its
// temperature probe on a fixed cycle and turns the running averages into
// the periodic report.
package sensor

import "math"

// Probe sentinel readings. Both mean the sample must be discarded.
const (
	// DisconnectedC is reported when the probe does not answer on the bus.
	DisconnectedC = -127.0
	// PowerOnResetC is the scratchpad default of a probe that has not
	// completed a conversion.
	PowerOnResetC = 85.0
)

// HumidityThermometer reads relative humidity (%) and temperature (°C) in
// one transaction. A failed read returns NaN for both values.
type HumidityThermometer interface {
	Read() (humidity, temperature float64)
}

// Thermometer is a single temperature probe. RequestTemperatures starts a
// conversion; TemperatureC returns its result or one of the sentinels.
type Thermometer interface {
	RequestTemperatures()
	TemperatureC() float64
}

// ValidHumidity reports whether a humidity/temperature pair is usable.
func ValidHumidity(humidity, temperature float64) bool {
	return !math.IsNaN(humidity) && !math.IsNaN(temperature)
}

// ValidProbe reports whether a probe reading is usable.
func ValidProbe(c float64) bool {
	return c != DisconnectedC && c != PowerOnResetC && !math.IsNaN(c)
}
