package activity

import (
	"errors"
	"fmt"
)

var ErrIncompatibleUnit = errors.New("incompatible unit")

type Unit string

const (
	Kilocalorie Unit = "kcal"
	Kilojoule   Unit = "kJ"
	Calorie     Unit = "cal"
	Minute      Unit = "min"
	Second      Unit = "s"
	Hour        Unit = "h"
	Count       Unit = "count"
)

type dimension int

const (
	energy dimension = iota + 1
	duration
	scalar
)

// factor converts one of the unit into the dimension's base unit
// (kilocalories, minutes, counts).
var units = map[Unit]struct {
	dim    dimension
	factor float64
}{
	Kilocalorie: {energy, 1},
	Kilojoule:   {energy, 1 / 4.184},
	Calorie:     {energy, 0.001},
	Minute:      {duration, 1},
	Second:      {duration, 1.0 / 60},
	Hour:        {duration, 60},
	Count:       {scalar, 1},
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// In returns q expressed in u.
func (q Quantity) In(u Unit) (float64, error) {
	from, ok := units[q.Unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, q.Unit)
	}
	to, ok := units[u]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnit, u)
	}
	if from.dim != to.dim {
		return 0, fmt.Errorf("%w: %s to %s", ErrIncompatibleUnit, q.Unit, u)
	}
	if q.Unit == u {
		return q.Value, nil
	}
	return q.Value * from.factor / to.factor, nil
}
