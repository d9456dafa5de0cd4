package foldcrypto

import (
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// RotationFunc performs one key rotation, returning the new key material.
type RotationFunc func() (*SigningKey, error)

// Rotator periodically invokes a RotationFunc on a cron schedule and hands
// the new key to an installer callback. It does not itself persist keys —
// callers wire Install to the crypto-metadata store.
type Rotator struct {
	cron    *cron.Cron
	rotate  RotationFunc
	install func(*SigningKey)
	lastErr error
}

// NewRotator builds a Rotator. schedule is a standard 5-field cron
// expression (e.g. "0 0 1 * *" for monthly rotation).
func NewRotator(schedule string, rotate RotationFunc, install func(*SigningKey)) (*Rotator, error) {
	r := &Rotator{cron: cron.New(), rotate: rotate, install: install}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, folderrors.Wrap(folderrors.KindInvalidInput, "parse rotation schedule", err, "schedule", schedule)
	}
	return r, nil
}

func (r *Rotator) run() {
	key, err := r.rotate()
	if err != nil {
		r.lastErr = err
		return
	}
	r.lastErr = nil
	r.install(key)
}

// Start begins the cron scheduler.
func (r *Rotator) Start() { r.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight rotation to finish.
func (r *Rotator) Stop() { <-r.cron.Stop().Done() }

// LastError returns the error from the most recent rotation attempt, if any.
func (r *Rotator) LastError() error { return r.lastErr }
