package sensor

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOHumidity reads a DHT11/DHT22 exposed by the Linux dht11 IIO driver.
// Dir is the device directory, e.g. /sys/bus/iio/devices/iio:device0.
type IIOHumidity struct {
	Dir string
}

// Read returns humidity and temperature, or NaN for both when either file
// cannot be read. The driver reports milli-units.
func (s IIOHumidity) Read() (humidity, temperature float64) {
	h, err := readMilli(filepath.Join(s.Dir, "in_humidityrelative_input"))
	if err != nil {
		return math.NaN(), math.NaN()
	}
	t, err := readMilli(filepath.Join(s.Dir, "in_temp_input"))
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return h, t
}

func readMilli(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return float64(v) / 1000, nil
}

// W1Probe reads a DS18B20 through the Linux w1_therm driver. Path is the
// slave file, e.g. /sys/bus/w1/devices/28-000005e2fdc3/w1_slave.
//
// Reading the slave file triggers the conversion, so RequestTemperatures
// does the read and TemperatureC returns the cached result.
type W1Probe struct {
	Path string

	last float64
}

// NewW1Probe returns a probe with no conversion yet.
func NewW1Probe(path string) *W1Probe {
	return &W1Probe{Path: path, last: PowerOnResetC}
}

func (p *W1Probe) RequestTemperatures() {
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		p.last = DisconnectedC
		return
	}
	p.last = parseW1Slave(raw)
}

func (p *W1Probe) TemperatureC() float64 {
	return p.last
}

// parseW1Slave decodes the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(raw []byte) float64 {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	if !scanner.Scan() || !strings.HasSuffix(strings.TrimSpace(scanner.Text()), "YES") {
		return DisconnectedC
	}
	if !scanner.Scan() {
		return DisconnectedC
	}
	_, value, found := strings.Cut(scanner.Text(), "t=")
	if !found {
		return DisconnectedC
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return DisconnectedC
	}
	return float64(milli) / 1000
}
