// Package mixing decrypts grove coordinates by repeatedly mixing a list of
// numbers: every number, in its original order, is moved forward or
// backward by its own value.
package mixing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"gregoryjjb/grove/swaplist"
)

var (
	ErrNoValues   = errors.New("no values to mix")
	ErrNoSentinel = errors.New("sentinel value not found")
	ErrOverflow   = errors.New("value overflows after applying decryption key")
	ErrValidation = errors.New("invalid options")
)

// DecryptionKey and DecryptionRounds are the values used for the full
// decryption routine.
const (
	DecryptionKey    = 811589153
	DecryptionRounds = 10
)

// DefaultMaxRounds caps Rounds unless Options.MaxRounds says otherwise.
const DefaultMaxRounds = 1000

// cancelCheckEvery is how many elements Mix moves between context checks.
const cancelCheckEvery = 256

type Options struct {
	DecryptionKey int64 `json:"decryption_key"`
	Rounds        int   `json:"rounds"`
	Offsets       []int `json:"offsets"`
	Sentinel      int64 `json:"sentinel"`
	MaxRounds     int   `json:"max_rounds"`
}

// DefaultOptions mixes once with no key and reads the usual three offsets.
func DefaultOptions() Options {
	return Options{
		DecryptionKey: 1,
		Rounds:        1,
		Offsets:       []int{1000, 2000, 3000},
		Sentinel:      0,
		MaxRounds:     DefaultMaxRounds,
	}
}

// Decrypt is DefaultOptions with the decryption key applied over ten rounds.
func Decrypt() Options {
	o := DefaultOptions()
	o.DecryptionKey = DecryptionKey
	o.Rounds = DecryptionRounds
	return o
}

func (o Options) Validate() error {
	if o.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be at least 1, got %d", ErrValidation, o.Rounds)
	}
	if o.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be at least 1, got %d", ErrValidation, o.MaxRounds)
	}
	if o.Rounds > o.MaxRounds {
		return fmt.Errorf("%w: rounds %d exceeds the limit of %d", ErrValidation, o.Rounds, o.MaxRounds)
	}
	if o.DecryptionKey == 0 {
		return fmt.Errorf("%w: decryption key cannot be 0", ErrValidation)
	}
	if len(o.Offsets) == 0 {
		return fmt.Errorf("%w: at least one offset is required", ErrValidation)
	}
	for _, off := range o.Offsets {
		if off < 0 {
			return fmt.Errorf("%w: offset %d is negative", ErrValidation, off)
		}
	}
	return nil
}

// Observer is told when each round finishes. It may be nil.
type Observer interface {
	RoundDone(round, rounds int)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(round, rounds int)

func (f ObserverFunc) RoundDone(round, rounds int) {
	f(round, rounds)
}

type Result struct {
	Coordinates []int64 `json:"coordinates"`
	Sum         int64   `json:"sum"`
	Mixed       []int64 `json:"-"`
}

// Mix performs one pass over the list in original order.
func Mix[T constraints.Signed](l *swaplist.List[T]) error {
	return MixContext(context.Background(), l)
}

// MixContext is Mix that gives up with ctx.Err() once ctx is done. The list
// is left partially mixed in that case.
func MixContext[T constraints.Signed](ctx context.Context, l *swaplist.List[T]) error {
	n := l.Len()
	if n == 0 {
		return swaplist.ErrEmptyList
	}
	if n == 1 {
		return nil
	}

	// Reduce as int64 before narrowing so large values survive on 32-bit
	// platforms.
	span := int64(n - 1)
	for i := 0; i < n; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		v, err := l.At(i)
		if err != nil {
			return err
		}
		if err := l.Move(i, int(int64(v)%span)); err != nil {
			return err
		}
	}
	return nil
}

// Run applies the key, mixes the requested number of rounds and reads the
// coordinates found after the sentinel. It stops between (and during)
// rounds once ctx is done.
func Run(ctx context.Context, values []int64, opts Options, observer Observer) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if len(values) == 0 {
		return Result{}, ErrNoValues
	}

	keyed, err := applyKey(values, opts.DecryptionKey)
	if err != nil {
		return Result{}, err
	}

	l := swaplist.New(keyed)
	for round := 1; round <= opts.Rounds; round++ {
		if err := MixContext(ctx, l); err != nil {
			return Result{}, fmt.Errorf("round %d: %w", round, err)
		}
		if observer != nil {
			observer.RoundDone(round, opts.Rounds)
		}
	}

	sentinel, err := multiply(opts.Sentinel, opts.DecryptionKey)
	if err != nil {
		return Result{}, err
	}
	start, ok := l.IndexOf(func(v int64) bool { return v == sentinel })
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrNoSentinel, opts.Sentinel)
	}

	mixed, err := l.Values(start)
	if err != nil {
		return Result{}, err
	}

	res := Result{Mixed: mixed}
	for _, off := range opts.Offsets {
		c := mixed[off%len(mixed)]
		res.Coordinates = append(res.Coordinates, c)
		res.Sum += c
	}
	return res, nil
}

func applyKey(values []int64, key int64) ([]int64, error) {
	keyed := make([]int64, len(values))
	for i, v := range values {
		p, err := multiply(v, key)
		if err != nil {
			return nil, err
		}
		keyed[i] = p
	}
	return keyed, nil
}

func multiply(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return p, nil
}
