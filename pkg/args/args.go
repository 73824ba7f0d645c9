package args

import (
	"fmt"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

// StringValue is a pflag.Value whose input is validated and converted by f.
type StringValue struct {
	val string
	p   *string
	f   func(val string) (string, error)
}

func NewStringValueFunc(val string, p *string, f func(val string) (string, error)) *StringValue {
	*p = val
	return &StringValue{val: val, p: p, f: f}
}

func (s *StringValue) Set(val string) error {
	v, err := s.f(val)
	if err != nil {
		return err
	}
	s.val, *s.p = v, v
	return nil
}

func (s *StringValue) Type() string {
	return "string"
}

func (s *StringValue) String() string { return s.val }

// NewSizeBytes accepts human sizes such as 4m or 512k and stores the byte count in i.
func NewSizeBytes(val int64, i *int64) *StringValue {
	var sizeStr string
	*i = val
	return NewStringValueFunc(domain.FormatSizeBytes(val), &sizeStr, func(s string) (string, error) {
		size, err := domain.ParseSizeBytes(s)
		if err != nil {
			return s, fmt.Errorf("unable to parse size, %w", err)
		}
		if size <= 0 {
			return s, fmt.Errorf("size must be positive")
		}
		*i = size
		return s, nil
	})
}

// Required declares a single mandatory positional argument stored by set.
func Required[V any](name, description string, set func(cfg *V, val string) error) *PositionalArg[V] {
	return &PositionalArg[V]{
		Name:        name,
		Description: description,
		Required:    true,
		Parse: func(args []string, cfg *V) ([]string, error) {
			if err := set(cfg, args[0]); err != nil {
				return args, fmt.Errorf("%s: %w", name, err)
			}
			return args[1:], nil
		},
	}
}
