// Package command recognizes the reconfiguration directives carried by
// inbound text messages and applies them to the configuration store.
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"i4.energy/across/telenode/store"
)

// ErrInvalidValue is returned when a directive's value is empty or does not
// fit its field. Nothing is changed or persisted.
var ErrInvalidValue = errors.New("invalid directive value")

// Directive identifies a recognized message.
type Directive int

const (
	Unknown Directive = iota
	SetNumberA
	SetNumberB
	SetNumberC
	SetCustomerID
)

func (d Directive) String() string {
	switch d {
	case SetNumberA:
		return "NUMSETA"
	case SetNumberB:
		return "NUMSETB"
	case SetNumberC:
		return "NUMSETC"
	case SetCustomerID:
		return "SETID"
	default:
		return "unknown"
	}
}

// Target is the configuration a directive is applied to.
type Target interface {
	SetNumber(i int, v string) error
	SetCustomerID(v string) error
}

var directives = []struct {
	prefix    string
	directive Directive
	span      int
	slot      int
}{
	{prefix: "NUMSETA", directive: SetNumberA, span: store.LayoutV1.Numbers[0].Span, slot: 0},
	{prefix: "NUMSETB", directive: SetNumberB, span: store.LayoutV1.Numbers[1].Span, slot: 1},
	{prefix: "NUMSETC", directive: SetNumberC, span: store.LayoutV1.Numbers[2].Span, slot: 2},
	{prefix: "SETID", directive: SetCustomerID, span: store.LayoutV1.CustomerID.Span, slot: -1},
}

// Parse matches body against the directive prefixes. It returns the
// directive and its trimmed value, or Unknown.
func Parse(body string) (Directive, string) {
	body = strings.TrimSpace(body)
	for _, d := range directives {
		if value, ok := strings.CutPrefix(body, d.prefix); ok {
			return d.directive, strings.TrimSpace(value)
		}
	}
	return Unknown, ""
}

// Apply parses body and, when it is a valid directive, updates target.
// Bodies that are not directives return Unknown and a nil error.
func Apply(target Target, body string) (Directive, error) {
	directive, value := Parse(body)
	if directive == Unknown {
		return Unknown, nil
	}

	for _, d := range directives {
		if d.directive != directive {
			continue
		}
		if value == "" || len(value) >= d.span {
			return directive, fmt.Errorf("%s %q: %w", directive, value, ErrInvalidValue)
		}
		var err error
		if d.slot >= 0 {
			err = target.SetNumber(d.slot, value)
		} else {
			err = target.SetCustomerID(value)
		}
		if err != nil {
			return directive, fmt.Errorf("apply %s: %w", directive, err)
		}
		return directive, nil
	}
	return Unknown, nil
}

// Handler applies every message body it receives and logs the outcome.
type Handler struct {
	Target Target
	Logger *slog.Logger
}

// HandleSMS applies body to the handler's target.
func (h Handler) HandleSMS(body string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	directive, err := Apply(h.Target, body)
	switch {
	case err != nil:
		logger.Warn("Rejected directive", "directive", directive, "error", err)
	case directive == Unknown:
		logger.Info("Ignoring message without directive", "body", body)
	default:
		_, value := Parse(body)
		logger.Info("Configuration updated", "directive", directive, "value", value)
	}
}
