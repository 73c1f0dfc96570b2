// Package retryconfig loads named retry configurations from YAML.
//
// A file lists policies by name:
//
//	policies:
//	  payments:
//	    max_attempts: 5
//	    base_delay: 200ms
//	    max_delay: 5s
//	    jitter: equal
//	  search:
//	    max_attempts: 2
//	    base_delay: 50ms
//	    max_duration: 1s
//
// Durations are Go duration strings. Omitted max_attempts, base_delay and
// multiplier fall back to retry.DefaultConfig. Every problem in the file is
// reported as a *retry.ConfigError; several are joined with errors.Join.
package retryconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/retry/v2"
)

// ErrUnknownPolicy is returned when a set has no policy with the requested name.
var ErrUnknownPolicy = errors.New("retryconfig: unknown policy")

// Jitter strategy names.
const (
	JitterNone      = "none"
	JitterEqual     = "equal"
	JitterFull      = "full"
	JitterDeviation = "deviation"
)

// File is the document root.
type File struct {
	Policies map[string]Entry `yaml:"policies" validate:"min=1,dive"`
}

// Entry describes one policy. Pointer fields are optional.
type Entry struct {
	MaxAttempts  *int           `yaml:"max_attempts" validate:"omitnil,gte=1"`
	BaseDelay    *time.Duration `yaml:"base_delay" validate:"omitnil,gte=0"`
	Multiplier   *float64       `yaml:"multiplier" validate:"omitnil,gte=1"`
	MaxDelay     time.Duration  `yaml:"max_delay" validate:"gte=0"`
	MaxDuration  time.Duration  `yaml:"max_duration" validate:"gte=0"`
	Jitter       string         `yaml:"jitter" validate:"omitempty,oneof=none equal full deviation"`
	JitterFactor float64        `yaml:"jitter_factor" validate:"required_if=Jitter deviation,gte=0,lte=1"`
	Seed         *uint64        `yaml:"seed"`
}

// Config converts the entry into a retry.Config. A seeded entry gets its own
// generator on every call, so each built config replays the same jitter.
func (e Entry) Config() retry.Config {
	cfg := retry.DefaultConfig()
	if e.MaxAttempts != nil {
		cfg.MaxAttempts = *e.MaxAttempts
	}
	if e.BaseDelay != nil {
		cfg.BaseDelay = *e.BaseDelay
	}
	if e.Multiplier != nil {
		cfg.Multiplier = *e.Multiplier
	}
	cfg.MaxDelay = e.MaxDelay
	cfg.MaxDuration = e.MaxDuration

	var r retry.Rand
	if e.Seed != nil {
		r = retry.NewRand(*e.Seed)
	}
	switch e.Jitter {
	case JitterEqual:
		cfg.Jitter = retry.EqualJitter(r)
	case JitterFull:
		cfg.Jitter = retry.FullJitter(r)
	case JitterDeviation:
		cfg.Jitter = retry.Deviation(e.JitterFactor, r)
	}
	return cfg
}

// Set is a validated collection of named entries.
type Set struct {
	entries map[string]Entry
}

// Load decodes and validates a YAML document. Unknown keys are rejected.
func Load(r io.Reader) (*Set, error) {
	var f File

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("retryconfig: decode: %w", err)
	}

	if err := Validate(f); err != nil {
		return nil, err
	}
	return &Set{entries: f.Policies}, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("retryconfig: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Names returns the policy names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Config returns the config for the named policy.
func (s *Set) Config(name string) (retry.Config, error) {
	entry, ok := s.entries[name]
	if !ok {
		return retry.Config{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return entry.Config(), nil
}

// Policy builds a policy for the named config. opts are applied after it,
// so hooks and clocks can be attached at load time.
func (s *Set) Policy(name string, opts ...retry.Option) (*retry.Policy, error) {
	cfg, err := s.Config(name)
	if err != nil {
		return nil, err
	}
	return retry.New(append([]retry.Option{retry.WithConfig(cfg)}, opts...)...), nil
}

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
})

// Validate checks f against its struct tags and against retry.Config's own
// rules, returning every violation.
func Validate(f File) error {
	var errs []error

	if err := validate().Struct(f); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("retryconfig: validate: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, configError(fe))
		}
		return errors.Join(errs...)
	}

	names := make([]string, 0, len(f.Policies))
	for name := range f.Policies {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		err := f.Policies[name].Config().Validate()
		var ce *retry.ConfigError
		if errors.As(err, &ce) {
			errs = append(errs, &retry.ConfigError{
				Field:  fmt.Sprintf("policies[%s].%s", name, ce.Field),
				Value:  ce.Value,
				Reason: ce.Reason,
			})
		}
	}
	return errors.Join(errs...)
}

var reasons = map[string]func(param string) string{
	"gte":         func(p string) string { return "must be at least " + p },
	"lte":         func(p string) string { return "must be at most " + p },
	"min":         func(p string) string { return "must have at least " + p + " entries" },
	"oneof":       func(p string) string { return "must be one of [" + p + "]" },
	"required_if": func(p string) string { return "is required when " + p },
}

func configError(fe validator.FieldError) *retry.ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	reason := "failed " + fe.Tag() + " check"
	if format, ok := reasons[fe.Tag()]; ok {
		reason = format(fe.Param())
	}

	return &retry.ConfigError{Field: field, Value: fe.Value(), Reason: reason}
}
