package retry

import (
	"time"

	"github.com/pkg/errors"
)

const (
	Forever = -1
)

var (
	ErrEmptyPolicy = errors.New("retry policy has no retries")
)

// Retry is one stage of a policy: MaxAttempts republishes, each after Delay.
type Retry struct {
	Delay       time.Duration `yaml:"delay"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

type Policy struct {
	Retries          []Retry `yaml:"retries"`
	FinallyMoveToDlq bool    `yaml:"finallyMoveToDlq"`
}

func NewPolicy(finallyMoveToDlq bool, retries ...Retry) Policy {
	return Policy{
		Retries:          retries,
		FinallyMoveToDlq: finallyMoveToDlq,
	}
}

func WithDelay(delay time.Duration, maxTries int) Retry {
	return Retry{
		Delay:       delay,
		MaxAttempts: maxTries,
	}
}

func ForeverWithDelay(delay time.Duration) Retry {
	return Retry{
		Delay:       delay,
		MaxAttempts: Forever,
	}
}

// Next returns the stage for a message already retried `tries` times.
// False means the policy is exhausted.
func (p Policy) Next(tries int64) (Retry, bool) {
	passed := int64(0)
	for _, retry := range p.Retries {
		if retry.MaxAttempts == Forever {
			return retry, true
		}
		passed += int64(retry.MaxAttempts)
		if tries < passed {
			return retry, true
		}
	}
	return Retry{}, false
}

func (p Policy) Validate() error {
	if len(p.Retries) == 0 {
		return ErrEmptyPolicy
	}
	for i, retry := range p.Retries {
		if retry.Delay < 0 {
			return errors.Errorf("retry %d: negative delay %s", i, retry.Delay)
		}
		if retry.MaxAttempts == 0 || retry.MaxAttempts < Forever {
			return errors.Errorf("retry %d: max attempts must be positive or %d", i, Forever)
		}
		if retry.MaxAttempts == Forever && i != len(p.Retries)-1 {
			return errors.Errorf("retry %d: forever retry must be the last one", i)
		}
	}
	return nil
}
