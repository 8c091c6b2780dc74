package computed_series

import (
	"github.com/pkg/errors"
	"strconv"
	"strings"
	"time"
)

func trimSpace(parts []string) []string {
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// Parse reads a chain of functions separated by '|', e.g. "avg 30s | gt 0".
func Parse(s string) (Operator, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty expression")
	}

	defs := trimSpace(strings.Split(s, "|"))
	if len(defs) == 1 {
		return parseFunction(defs[0])
	}

	var ops []Operator
	for _, def := range defs {
		op, err := parseFunction(def)
		if err != nil {
			return nil, errors.Wrap(err, "parse function")
		}
		ops = append(ops, op)
	}

	return chain{ops: ops}, nil
}

func parseFloat(parts []string) (float64, error) {
	if len(parts) != 2 {
		return 0, errors.Errorf("%s: invalid number of function parameters", parts[0])
	}
	x, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid float")
	}
	return x, nil
}

func parseFunction(def string) (Operator, error) {
	functionParts := trimSpace(strings.Fields(def))

	if len(functionParts) == 0 {
		return nil, errors.New("invalid number of function parameters")
	}

	switch functionParts[0] {
	case "identity":
		return Identity{}, nil
	case "avg":
		if len(functionParts) < 2 {
			return nil, errors.New("avg: missing duration")
		}
		duration, err := time.ParseDuration(functionParts[1])
		if err != nil {
			return nil, errors.Wrap(err, "parse duration")
		}
		if duration <= 0 {
			return nil, errors.New("avg: duration must be positive")
		}
		switch len(functionParts) {
		case 2:
			return NewComputedSeries(&FcnAvg{}, duration), nil
		case 3:
			switch functionParts[2] {
			case "triangle":
				return NewComputedSeries(&FcnAvgWindow{
					duration: duration,
					scale:    1.0 / float64(duration),
				}, duration), nil
			}
			return nil, errors.New("unknown window")
		default:
			return nil, errors.New("avg: invalid number of function parameters")
		}
	case "gt":
		x, err := parseFloat(functionParts)
		if err != nil {
			return nil, err
		}
		return OpGt{X: x}, nil
	case "add":
		x, err := parseFloat(functionParts)
		if err != nil {
			return nil, err
		}
		return OpAdd{X: x}, nil
	case "scale":
		x, err := parseFloat(functionParts)
		if err != nil {
			return nil, err
		}
		return OpScale{X: x}, nil
	case "CtoF":
		return OpCtoF{}, nil
	case "gate":
		if len(functionParts) != 3 {
			return nil, errors.New("gate: invalid number of function parameters")
		}
		duration, err := time.ParseDuration(functionParts[1])
		if err != nil {
			return nil, errors.Wrap(err, "parse duration")
		}
		target, err := strconv.ParseFloat(functionParts[2], 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid float")
		}
		return NewComputedSeries(&FcnGate{
			target: target,
		}, duration), nil
	default:
		return nil, errors.Errorf("unknown function name %q", functionParts[0])
	}
}
