package sensor

import (
	"fmt"
	"strconv"
)

// Accumulator keeps the running sums between reports. Count is the number
// of completed cycles; each channel also counts its own accepted samples so
// a rejected reading affects neither its sum nor its mean.
type Accumulator struct {
	Humidity float64
	TempA    float64
	TempB    float64
	Count    int

	pairSamples  int
	probeSamples int
}

// AddPair adds a humidity/temperature reading. Invalid readings are
// ignored and reported as false.
func (a *Accumulator) AddPair(humidity, temperature float64) bool {
	if !ValidHumidity(humidity, temperature) {
		return false
	}
	a.Humidity += humidity
	a.TempA += temperature
	a.pairSamples++
	return true
}

// AddProbe adds a probe reading. Sentinels are ignored and reported as
// false.
func (a *Accumulator) AddProbe(c float64) bool {
	if !ValidProbe(c) {
		return false
	}
	a.TempB += c
	a.probeSamples++
	return true
}

// CompleteCycle records the end of one sampling cycle.
func (a *Accumulator) CompleteCycle() {
	a.Count++
}

// Report returns the per-channel means.
func (a *Accumulator) Report() Report {
	return Report{
		Humidity:         mean(a.Humidity, a.pairSamples),
		Temperature:      mean(a.TempA, a.pairSamples),
		ProbeTemperature: mean(a.TempB, a.probeSamples),
		Cycles:           a.Count,
	}
}

// Reset zeroes every sum and count.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

func mean(sum float64, n int) Mean {
	if n == 0 {
		return Mean{}
	}
	return Mean{Value: sum / float64(n), Samples: n}
}

// Mean is the average of one channel. A Mean with no samples has no value.
type Mean struct {
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
}

// Valid reports whether the mean has at least one sample.
func (m Mean) Valid() bool {
	return m.Samples > 0
}

func (m Mean) String() string {
	if !m.Valid() {
		return "n/a"
	}
	return strconv.FormatFloat(m.Value, 'f', 1, 64)
}

// Report is the summary sent when the event counter reaches its threshold.
type Report struct {
	Humidity         Mean `json:"humidity"`
	Temperature      Mean `json:"temperature"`
	ProbeTemperature Mean `json:"probe_temperature"`
	Cycles           int  `json:"cycles"`
}

// String renders the message body sent to every recipient.
func (r Report) String() string {
	return fmt.Sprintf("60min Avg - DHT H:%s%% T:%sC; DS18B20 T:%sC",
		r.Humidity, r.Temperature, r.ProbeTemperature)
}
