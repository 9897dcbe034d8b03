package keel

import (
	"github.com/danpasecinic/keel/internal/kernel"
)

// ResolveHook observes every component resolution, nested ones included.
type ResolveHook = kernel.ResolveHook

// ReleaseHook observes every decommissioned instance.
type ReleaseHook = kernel.ReleaseHook

type RegisterHook = kernel.RegisterHook
